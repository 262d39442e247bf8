package dify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	cases := []struct {
		name     string
		lines    []string
		wantText string
		wantConv string
	}{
		{
			name: "fragments concatenate in stream order",
			lines: []string{
				`data: {"event":"message","answer":"A"}`,
				`data: {"event":"agent_message","answer":"B"}`,
				`data: {"event":"message","answer":"C"}`,
			},
			wantText: "ABC",
		},
		{
			name: "malformed lines are skipped without breaking order",
			lines: []string{
				`data: {"event":"message","answer":"A"}`,
				`not-json`,
				`data: not even close`,
				`event: ping`,
				`data: {"event":"message","answer":"B"}`,
			},
			wantText: "AB",
		},
		{
			name: "last conversation id wins",
			lines: []string{
				`data: {"event":"message","answer":"x","conversation_id":"conv-1"}`,
				`data: {"event":"message_end","conversation_id":"conv-2"}`,
			},
			wantText: "x",
			wantConv: "conv-2",
		},
		{
			name: "non-answer events contribute no text",
			lines: []string{
				`data: {"event":"agent_thought","thought":"hm"}`,
				`data: {"event":"message_end"}`,
			},
			wantText: "",
		},
		{
			name: "missing answer field counts as empty fragment",
			lines: []string{
				`data: {"event":"message"}`,
				`data: {"event":"message","answer":"ok"}`,
			},
			wantText: "ok",
		},
		{
			name:     "empty payload yields empty answer",
			lines:    nil,
			wantText: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Aggregate(strings.Join(tc.lines, "\n"))
			assert.Equal(t, tc.wantText, got.Text)
			assert.Equal(t, tc.wantConv, got.ConversationID)
		})
	}
}

func TestAggregateIsPure(t *testing.T) {
	raw := "data: {\"event\":\"message\",\"answer\":\"hi\",\"conversation_id\":\"c1\"}\n"
	first := Aggregate(raw)
	second := Aggregate(raw)
	assert.Equal(t, first, second)
}
