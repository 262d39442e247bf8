// internal/line/signature.go
package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ValidateSignature checks an X-Line-Signature header value against the raw
// request body: base64(HMAC-SHA256(secret, body)). The body must be the exact
// bytes received on the wire; hashing a re-serialized form breaks verification.
// An empty signature never validates, and neither does an empty secret: an
// unconfigured channel secret means every batch is rejected, not that batches
// signed with the empty key are accepted.
func ValidateSignature(secret, signature string, body []byte) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
