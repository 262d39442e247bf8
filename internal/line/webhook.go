// internal/line/webhook.go
package line

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ffaiyaz23/linerelay/internal/dify"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("linerelay")

// Event is one inbound webhook event. Only text messages are actionable;
// everything else (follow, sticker, postback, ...) is skipped silently.
type Event struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

type webhookBody struct {
	Events []Event `json:"events"`
}

// WebhookHandler serves POST /webhook: verify the batch signature, fan the
// events out concurrently, reply per event, then acknowledge the batch.
type WebhookHandler struct {
	secret       string
	upstream     *dify.Client
	replier      *Replier
	eventTimeout time.Duration
}

// NewWebhookHandler wires the webhook endpoint. eventTimeout bounds each
// event's upstream call so one hung conversation cannot stall the batch.
func NewWebhookHandler(secret string, upstream *dify.Client, replier *Replier, eventTimeout time.Duration) *WebhookHandler {
	return &WebhookHandler{
		secret:       secret,
		upstream:     upstream,
		replier:      replier,
		eventTimeout: eventTimeout,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1) capture the raw body before any parsing; the signature covers
	//    these exact bytes
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}

	// 2) the signature gates the whole batch: no event runs without it
	if !ValidateSignature(h.secret, r.Header.Get("X-Line-Signature"), raw) {
		zap.S().Warnw("webhook signature rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body webhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	batchID := uuid.NewString()
	zap.S().Infow("webhook batch accepted", "batch_id", batchID, "events", len(body.Events))

	// 3) fan out, fan in: every event is attempted before the batch is
	//    acknowledged, and no event's failure reaches another
	g, ctx := errgroup.WithContext(r.Context())
	for _, ev := range body.Events {
		ev := ev
		g.Go(func() error {
			h.handleEvent(ctx, batchID, ev)
			return nil
		})
	}
	_ = g.Wait()

	// 4) acknowledge regardless of per-event outcomes
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleEvent runs one event end to end. It never returns an error: upstream
// and delivery failures end as fallback replies, not batch failures.
func (h *WebhookHandler) handleEvent(ctx context.Context, batchID string, ev Event) {
	if ev.Type != "message" || ev.Message.Type != "text" {
		return
	}

	ctx, span := tracer.Start(ctx, "ProcessWebhookEvent",
		trace.WithAttributes(attribute.String("line.user_id", ev.Source.UserID)),
	)
	defer span.End()

	logger := zap.S().With(
		"batch_id", batchID,
		"trace_id", span.SpanContext().TraceID().String(),
		"user", ev.Source.UserID,
	)

	// each webhook message starts a fresh conversation: the platform carries
	// no cross-turn correlation token
	turn := dify.ChatTurn{Query: ev.Message.Text, User: ev.Source.UserID}

	callCtx, cancel := context.WithTimeout(ctx, h.eventTimeout)
	raw, err := h.upstream.Send(callCtx, turn)
	cancel()
	if err != nil {
		span.RecordError(err)
		logger.Errorw("upstream turn failed", "error", err)
		h.replier.ReplyError(ctx, ev.ReplyToken)
		return
	}

	ans := dify.Aggregate(raw)
	logger.Infow("turn complete",
		"answer_len", len(ans.Text),
		"conversation_id", ans.ConversationID,
	)
	h.replier.Reply(ctx, ev.ReplyToken, ans.Text)
}
