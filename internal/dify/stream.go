// internal/dify/stream.go
package dify

import (
	"encoding/json"
	"strings"
)

const dataPrefix = "data: "

// streamEvent is one decoded record of the event stream. Upstream interleaves
// heartbeat and bookkeeping lines; only the fields below matter here.
type streamEvent struct {
	Event          string `json:"event"`
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
}

// Aggregate folds a complete streamed payload into a single answer. Lines
// without the data prefix, and lines whose payload is not valid JSON, are
// skipped. Answer fragments are concatenated in stream order; the last
// conversation id seen wins. A payload with no matching events yields an
// empty Answer, never an error.
func Aggregate(raw string) Answer {
	var ans Answer
	for _, line := range strings.Split(raw, "\n") {
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		var ev streamEvent
		if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &ev); err != nil {
			continue
		}
		if ev.Event == "message" || ev.Event == "agent_message" {
			ans.Text += ev.Answer
		}
		if ev.ConversationID != "" {
			ans.ConversationID = ev.ConversationID
		}
	}
	return ans
}
