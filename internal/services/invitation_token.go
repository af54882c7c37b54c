package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/opsapi/internal/models"
	"github.com/charlesng35/opsapi/pkg/crypto"
	"github.com/charlesng35/opsapi/pkg/logger"
	"github.com/charlesng35/opsapi/pkg/metrics"
)

const (
	// InvitationTokenLength is the fixed length of every invitation token.
	InvitationTokenLength = 64

	tokenPrefixLength = 32
	tokenSeedBytes    = 32
	maxTokenAttempts  = 5
)

// TokenExistsFunc reports whether a token is already stored.
type TokenExistsFunc func(ctx context.Context, token string) (bool, error)

// TokenGenerator issues invitation tokens: a SHA3-derived prefix from fresh entropy followed
// by independently drawn characters, checked against stored tokens a bounded number of times.
type TokenGenerator struct {
	exists    TokenExistsFunc
	attempts  int
	candidate func() (string, error)
	fallback  func() (string, error)
	log       *zap.Logger
}

// NewTokenGenerator builds a generator that checks candidates with exists. A nil exists skips
// the uniqueness check.
func NewTokenGenerator(exists TokenExistsFunc) *TokenGenerator {
	return &TokenGenerator{
		exists:    exists,
		attempts:  maxTokenAttempts,
		candidate: candidateToken,
		fallback:  fallbackToken,
		log:       logger.WithModule("invitation-token"),
	}
}

// InvitationTokenExists returns a TokenExistsFunc backed by the invitations table.
func InvitationTokenExists(db *gorm.DB) TokenExistsFunc {
	return func(ctx context.Context, token string) (bool, error) {
		var count int64
		if err := db.WithContext(ensureContext(ctx)).
			Model(&models.Invitation{}).
			Where("token = ?", token).
			Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	}
}

// Generate returns a token that did not collide with any stored token at check time. After
// the bounded attempts collide it returns an unchecked fallback; the unique index on
// invitations.token remains authoritative.
func (g *TokenGenerator) Generate(ctx context.Context) (string, error) {
	ctx = ensureContext(ctx)

	for attempt := 0; attempt < g.attempts; attempt++ {
		token, err := g.candidate()
		if err != nil {
			return "", fmt.Errorf("invitation token: generate: %w", err)
		}
		if g.exists == nil {
			return token, nil
		}

		taken, err := g.exists(ctx, token)
		if err != nil {
			g.log.Warn("token uniqueness check failed; relying on unique index", zap.Error(err))
			return token, nil
		}
		if !taken {
			return token, nil
		}
		metrics.TokenCollisions.Inc()
	}

	g.log.Warn("token attempts exhausted; using fallback token", zap.Int("attempts", g.attempts))
	token, err := g.fallback()
	if err != nil {
		return "", fmt.Errorf("invitation token: fallback: %w", err)
	}
	return token, nil
}

func candidateToken() (string, error) {
	prefix, err := crypto.RandomDigest(tokenSeedBytes, tokenPrefixLength)
	if err != nil {
		return "", err
	}
	suffix, err := crypto.RandomString(InvitationTokenLength - tokenPrefixLength)
	if err != nil {
		return "", err
	}
	return prefix + suffix, nil
}

func fallbackToken() (string, error) {
	half := InvitationTokenLength / 2
	first, err := uuidDigest(half)
	if err != nil {
		return "", err
	}
	second, err := uuidDigest(half)
	if err != nil {
		return "", err
	}
	return first + second, nil
}

func uuidDigest(n int) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	if id == uuid.Nil {
		return "", errors.New("nil uuid")
	}
	return crypto.DigestString(id[:], n)
}
