// internal/dify/server.go
package dify

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
)

// StartMockServer starts a stand-in upstream on the given address (e.g. ":0")
// serving /v1/chat-messages with a scripted event stream that echoes the
// query. It returns the server instance and the actual listening address.
// Used by main when DIFY_URL is unset, and by the integration test.
func StartMockServer(addr string) (*http.Server, string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat-messages", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		convID := "mock-conv-1"
		if req.ConversationID != nil && *req.ConversationID != "" {
			convID = *req.ConversationID
		}
		full := fmt.Sprintf("Echo: %s", req.Query)

		w.Header().Set("Content-Type", "text/event-stream")
		// ping lines exercise the callers' skip-malformed path
		fmt.Fprint(w, "event: ping\n")
		for _, word := range strings.Split(full, " ") {
			ev := streamEvent{Event: "agent_message", Answer: word + " ", ConversationID: convID}
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		fmt.Fprintf(w, "data: {\"event\": \"message_end\", \"conversation_id\": %q}\n\n", convID)
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Mock upstream listen error: %v", err)
	}
	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Mock upstream error: %v", err)
		}
	}()

	return server, ln.Addr().String()
}
