package main

import (
	"context"
	"net/http"

	"github.com/ffaiyaz23/linerelay/internal/config"
	"github.com/ffaiyaz23/linerelay/internal/dify"
	"github.com/ffaiyaz23/linerelay/internal/httpapi"
	"github.com/ffaiyaz23/linerelay/internal/line"
	"github.com/ffaiyaz23/linerelay/internal/otel"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	// 0) Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 1) Initialize OpenTelemetry tracing
	ctx := context.Background()
	tp, err := otel.InitTracer(ctx)
	if err != nil {
		// cannot use zap.L() yet, no logger; fallback to panic
		panic("failed to init OTEL: " + err.Error())
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	// 2) Initialize Zap logger and replace globals
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// 3) Missing credentials degrade the endpoints, they don't abort startup
	for _, warning := range cfg.Warnings() {
		zap.S().Warnw(warning)
	}

	// 4) Auto-start the mock upstream if DIFY_URL is blank
	difyURL := cfg.DifyURL
	if difyURL == "" {
		server, addr := dify.StartMockServer(":0")
		defer server.Close()
		difyURL = "http://" + addr + "/v1/chat-messages"
	}
	zap.S().Infow("using upstream", "url", difyURL)

	// 5) Wire up components
	upstream := dify.NewClient(difyURL, cfg.DifyAPIKey, cfg.UpstreamTimeout)
	replier := line.NewReplier(cfg.LineChannelToken)
	chatHandler := httpapi.NewChatHandler(upstream)
	webhookHandler := line.NewWebhookHandler(cfg.LineChannelSecret, upstream, replier, cfg.EventTimeout)

	// 6) Mount endpoints (instrumented with otelhttp)
	http.Handle("/api/chat", otelhttp.NewHandler(chatHandler, "DirectChat"))
	http.Handle("/webhook", otelhttp.NewHandler(webhookHandler, "LineWebhook"))

	// 7) Start HTTP server
	zap.S().Infow("listening", "address", ":"+cfg.Port)
	zap.S().Fatalw("HTTP server failed", "error", http.ListenAndServe(":"+cfg.Port, nil))
}
