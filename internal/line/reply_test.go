package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyRecorder captures reply API calls and can fail the first n of them.
type replyRecorder struct {
	mu       sync.Mutex
	requests []replyRequest
	failNext int
}

func (rr *replyRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rr.mu.Lock()
		defer rr.mu.Unlock()
		var req replyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		rr.requests = append(rr.requests, req)
		if rr.failNext > 0 {
			rr.failNext--
			http.Error(w, `{"message":"Invalid reply token"}`, http.StatusBadRequest)
		}
	}
}

func (rr *replyRecorder) sent() []replyRequest {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return append([]replyRequest(nil), rr.requests...)
}

func newTestReplier(endpoint string) *Replier {
	return &Replier{
		Endpoint:     endpoint,
		ChannelToken: "channel-token",
		HTTP:         &http.Client{Timeout: time.Second},
	}
}

func TestReply_SendsText(t *testing.T) {
	rec := &replyRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	newTestReplier(srv.URL).Reply(context.Background(), "tok-1", "the answer")

	sent := rec.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "tok-1", sent[0].ReplyToken)
	require.Len(t, sent[0].Messages, 1)
	assert.Equal(t, "text", sent[0].Messages[0].Type)
	assert.Equal(t, "the answer", sent[0].Messages[0].Text)
}

func TestReply_EmptyTextGetsFallback(t *testing.T) {
	rec := &replyRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	newTestReplier(srv.URL).Reply(context.Background(), "tok-2", "")

	sent := rec.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, FallbackNoAnswer, sent[0].Messages[0].Text)
}

func TestReply_RetriesOnceWithErrorFallback(t *testing.T) {
	rec := &replyRecorder{failNext: 1}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	newTestReplier(srv.URL).Reply(context.Background(), "tok-3", "real answer")

	sent := rec.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "real answer", sent[0].Messages[0].Text)
	assert.Equal(t, FallbackError, sent[1].Messages[0].Text)
	assert.Equal(t, "tok-3", sent[1].ReplyToken)
}

func TestReply_SecondFailureIsSwallowed(t *testing.T) {
	rec := &replyRecorder{failNext: 2}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	// must not panic or retry beyond the single fallback attempt
	newTestReplier(srv.URL).Reply(context.Background(), "tok-4", "answer")

	assert.Len(t, rec.sent(), 2)
}

func TestReplyError_UsesGenericFallback(t *testing.T) {
	rec := &replyRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	// an expired context must not block the fallback delivery
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	newTestReplier(srv.URL).ReplyError(ctx, "tok-5")

	sent := rec.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, FallbackError, sent[0].Messages[0].Text)
}
