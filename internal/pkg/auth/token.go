package auth

import (
	"crypto/sha256"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrInvalidToken is returned for a missing or wrong operator token.
	ErrInvalidToken = errors.New("invalid operator token")
	// ErrOperatorDisabled is returned when no operator token hash is configured.
	ErrOperatorDisabled = errors.New("operator api disabled")
)

// TokenVerifier checks bearer tokens against the configured bcrypt hash.
// The digest of the last accepted token is remembered so repeated requests
// skip the bcrypt comparison.
type TokenVerifier struct {
	hash   string
	hasher Hasher

	mu       sync.Mutex
	accepted [sha256.Size]byte
	known    bool
}

// NewTokenVerifier constructs TokenVerifier. An empty hash disables the operator API.
func NewTokenVerifier(hash string, hasher Hasher) *TokenVerifier {
	return &TokenVerifier{hash: strings.TrimSpace(hash), hasher: hasher}
}

// Enabled reports whether a token hash is configured.
func (v *TokenVerifier) Enabled() bool {
	return v.hash != ""
}

// Verify returns nil when token matches the configured hash.
func (v *TokenVerifier) Verify(token string) error {
	if !v.Enabled() {
		return ErrOperatorDisabled
	}
	if token == "" {
		return ErrInvalidToken
	}

	digest := sha256.Sum256([]byte(token))
	v.mu.Lock()
	cached := v.known && digest == v.accepted
	v.mu.Unlock()
	if cached {
		return nil
	}

	if err := v.hasher.Compare(v.hash, token); err != nil {
		return ErrInvalidToken
	}

	v.mu.Lock()
	v.accepted, v.known = digest, true
	v.mu.Unlock()
	return nil
}
