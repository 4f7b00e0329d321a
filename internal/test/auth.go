package test

import (
	"errors"

	pkgAuth "github.com/JamesxFarris/Sixxer/internal/pkg/auth"
)

// HasherStub provides deterministic hashing for tests.
type HasherStub struct {
	HashFn    func(string) (string, error)
	CompareFn func(string, string) error
}

// Hash returns a predictable hash for secret.
func (h HasherStub) Hash(secret string) (string, error) {
	if h.HashFn != nil {
		return h.HashFn(secret)
	}
	return "hash:" + secret, nil
}

// Compare validates secret against hash.
func (h HasherStub) Compare(hash string, secret string) error {
	if h.CompareFn != nil {
		return h.CompareFn(hash, secret)
	}
	if hash != "hash:"+secret {
		return errors.New("mismatch")
	}
	return nil
}

// VerifierStub accepts a single token.
type VerifierStub struct {
	Token string
	Err   error
}

// Verify returns Err when set, otherwise checks token equality.
func (v VerifierStub) Verify(token string) error {
	if v.Err != nil {
		return v.Err
	}
	if token != v.Token {
		return pkgAuth.ErrInvalidToken
	}
	return nil
}

var _ pkgAuth.Hasher = HasherStub{}
