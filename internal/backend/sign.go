package backend

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// signer issues and verifies the signature field carried by presigned
// form uploads. The signature binds an upload to the exact object key
// the presign endpoint issued, so the form target cannot be used to
// write arbitrary paths.
type signer struct {
	secret []byte
}

// newSigner creates a signer with the given secret. An empty secret is
// replaced with a random one, which is fine for a single-process dev
// server because presign and verification share the instance.
func newSigner(secret []byte) (*signer, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate signing secret: %w", err)
		}
	}
	return &signer{secret: secret}, nil
}

// Sign returns the hex-encoded HMAC-SHA256 of the object key.
func (s *signer) Sign(key string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is valid for the object key.
// Comparison is constant time.
func (s *signer) Verify(key, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	return hmac.Equal(mac.Sum(nil), want)
}
