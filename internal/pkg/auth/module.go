package auth

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/config"
)

// Module provides operator authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newHasher),
	fx.Provide(newTokenVerifier),
)

func newHasher() Hasher {
	return NewBcryptHasher(0)
}

type verifierParams struct {
	fx.In

	Config *config.Config
	Hasher Hasher
	Logger *slog.Logger
}

func newTokenVerifier(p verifierParams) *TokenVerifier {
	verifier := NewTokenVerifier(p.Config.OperatorTokenHash, p.Hasher)
	if !verifier.Enabled() {
		p.Logger.Warn("OPERATOR_TOKEN_HASH not set, operator api disabled")
	}
	return verifier
}
