// internal/line/reply.go
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ReplyEndpoint is the Messaging API reply URL.
const ReplyEndpoint = "https://api.line.me/v2/bot/message/reply"

const (
	// FallbackNoAnswer is sent when a turn succeeded but produced no text.
	FallbackNoAnswer = "申し訳ございません。応答を生成できませんでした。"
	// FallbackError is sent when the turn or the delivery itself failed.
	FallbackError = "申し訳ございません。エラーが発生しました。"
)

type replyMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string         `json:"replyToken"`
	Messages   []replyMessage `json:"messages"`
}

// Replier delivers answers back through the Messaging API. Reply tokens are
// single-use and expire within a minute, so delivery is attempted at most
// twice and never reported as an error to the caller.
type Replier struct {
	Endpoint     string
	ChannelToken string
	HTTP         *http.Client
}

// NewReplier creates a Replier for the production reply endpoint.
func NewReplier(channelToken string) *Replier {
	return &Replier{
		Endpoint:     ReplyEndpoint,
		ChannelToken: channelToken,
		HTTP:         &http.Client{Timeout: 10 * time.Second},
	}
}

// Reply sends text addressed by replyToken. Empty text is replaced with the
// no-answer fallback. If the send fails, exactly one more attempt is made
// with the generic error fallback; a second failure is logged and dropped.
func (r *Replier) Reply(ctx context.Context, replyToken, text string) {
	if text == "" {
		text = FallbackNoAnswer
	}
	if err := r.send(ctx, replyToken, text); err != nil {
		zap.S().Errorw("reply delivery failed, sending fallback", "error", err)
		r.ReplyError(ctx, replyToken)
	}
}

// ReplyError sends the generic error fallback, best effort. Used directly
// when the turn failed before any answer existed.
func (r *Replier) ReplyError(ctx context.Context, replyToken string) {
	// the original context may already be expired; the token is still good
	ctx = context.WithoutCancel(ctx)
	if err := r.send(ctx, replyToken, FallbackError); err != nil {
		zap.S().Errorw("fallback reply delivery failed", "error", err)
	}
}

func (r *Replier) send(ctx context.Context, replyToken, text string) error {
	body, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   []replyMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.ChannelToken)

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("reply API status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
