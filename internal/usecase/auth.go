package usecase

import (
	"errors"
	"strings"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	pkgAuth "github.com/JamesxFarris/Sixxer/internal/pkg/auth"
)

const minTokenLength = 16

// TokenVerifier checks operator bearer tokens.
type TokenVerifier interface {
	Verify(token string) error
}

// AuthUseCase guards the operator API.
type AuthUseCase struct {
	verifier TokenVerifier
	hasher   pkgAuth.Hasher
}

// NewAuthUseCase constructs AuthUseCase.
func NewAuthUseCase(verifier TokenVerifier, hasher pkgAuth.Hasher) *AuthUseCase {
	return &AuthUseCase{verifier: verifier, hasher: hasher}
}

// Authorize accepts token or fails with ErrInvalidCredentials.
// pkgAuth.ErrOperatorDisabled is returned unchanged.
func (u *AuthUseCase) Authorize(token string) error {
	err := u.verifier.Verify(strings.TrimSpace(token))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pkgAuth.ErrOperatorDisabled):
		return err
	default:
		return domainErrors.ErrInvalidCredentials
	}
}

// HashToken returns the value to configure as OPERATOR_TOKEN_HASH for token.
func (u *AuthUseCase) HashToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if len(token) < minTokenLength {
		return "", domainErrors.ErrInvalidCredentials
	}
	return u.hasher.Hash(token)
}
