// internal/httpapi/chat.go
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ffaiyaz23/linerelay/internal/dify"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("linerelay")

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Query          string         `json:"query"`
	ConversationID string         `json:"conversation_id"`
	UserID         string         `json:"user_id"`
	Inputs         map[string]any `json:"inputs"`
}

// ChatResponse is the success payload. ConversationID marshals as null when
// upstream never issued one.
type ChatResponse struct {
	Answer         string  `json:"answer"`
	ConversationID *string `json:"conversation_id"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// ChatHandler serves the synchronous chat endpoint: validate, one upstream
// turn, aggregate, respond. CORS is open so a local static page can call it.
type ChatHandler struct {
	upstream *dify.Client
}

// NewChatHandler wires the direct chat endpoint to the upstream client.
func NewChatHandler(upstream *dify.Client) *ChatHandler {
	return &ChatHandler{upstream: upstream}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wrote := false
	respond := func(status int, v any) {
		wrote = true
		writeJSON(w, status, v)
	}
	defer func() {
		if rec := recover(); rec != nil {
			zap.S().Errorw("chat handler panic", "panic", rec)
			if !wrote {
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Server error"})
			}
		}
	}()

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		wrote = true
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		respond(http.StatusMethodNotAllowed, errorResponse{Error: "POST required"})
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		respond(http.StatusBadRequest, errorResponse{Error: "query (string) is required"})
		return
	}

	ctx, span := tracer.Start(r.Context(), "ProcessChat",
		trace.WithAttributes(attribute.String("chat.user_id", req.UserID)),
	)
	defer span.End()

	requestID := uuid.NewString()
	logger := zap.S().With(
		"request_id", requestID,
		"trace_id", span.SpanContext().TraceID().String(),
	)

	raw, err := h.upstream.Send(ctx, dify.ChatTurn{
		Query:          req.Query,
		Inputs:         req.Inputs,
		User:           req.UserID,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		span.RecordError(err)
		var ue *dify.UpstreamError
		if errors.As(err, &ue) && ue.Status != 0 {
			logger.Errorw("upstream rejected turn", "status", ue.Status, "body", ue.Body)
			respond(http.StatusInternalServerError, errorResponse{Error: "Dify API error", Detail: ue.Body})
			return
		}
		logger.Errorw("upstream unreachable", "error", err)
		respond(http.StatusInternalServerError, errorResponse{Error: "Server error"})
		return
	}

	ans := dify.Aggregate(raw)
	logger.Infow("turn complete",
		"answer_len", len(ans.Text),
		"conversation_id", ans.ConversationID,
	)

	resp := ChatResponse{Answer: ans.Text}
	if ans.ConversationID != "" {
		resp.ConversationID = &ans.ConversationID
	}
	respond(http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorw("write response error", "error", err)
	}
}
