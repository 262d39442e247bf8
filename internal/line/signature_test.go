package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"events":[{"type":"message"}]}`)
	good := sign(secret, body)

	assert.True(t, ValidateSignature(secret, good, body))

	// one flipped byte in the body invalidates the signature
	flipped := append([]byte(nil), body...)
	flipped[10] ^= 0x01
	assert.False(t, ValidateSignature(secret, good, flipped))

	assert.False(t, ValidateSignature(secret, "", body), "missing signature is a failure")
	assert.False(t, ValidateSignature(secret, "not-base64-of-anything", body))
	assert.False(t, ValidateSignature("other-secret", good, body))
}

func TestValidateSignature_EmptySecretRejectsEverything(t *testing.T) {
	body := []byte(`{"events":[]}`)

	// an unconfigured secret must not degrade into "accept anything signed
	// with the empty key"
	assert.False(t, ValidateSignature("", sign("", body), body))
	assert.False(t, ValidateSignature("", "", body))
}
