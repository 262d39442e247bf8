package dify

import "fmt"

// AnonymousUser is sent upstream when the caller supplied no user id.
const AnonymousUser = "local-user"

// ChatTurn is one query submitted upstream. An empty ConversationID starts a
// fresh conversation; a non-empty one resumes the dialogue it names.
type ChatTurn struct {
	Query          string
	Inputs         map[string]any
	User           string
	ConversationID string
}

// Answer is the result of folding a streamed response. Empty ConversationID
// means upstream never reported one.
type Answer struct {
	Text           string
	ConversationID string
}

// UpstreamError distinguishes a non-2xx upstream response (Status, Body set)
// from a transport failure (Err set). A successful turn with an empty answer
// is not an error.
type UpstreamError struct {
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream transport: %v", e.Err)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
