package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/config"
	"github.com/positionhq/position-api/internal/platform/logger"
)

// Claims holds the validated contents of a session token.
type Claims struct {
	UserID    uuid.UUID
	Address   string
	ChainID   int64
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// SessionService issues and validates SIWE-backed session tokens.
type SessionService interface {
	// IssueSession creates a signed session token for the given user after
	// a successful SIWE verification.
	IssueSession(ctx context.Context, userID uuid.UUID, address string, chainID int64) (string, error)

	// ValidateSession validates a session token and returns its claims.
	// Returns ErrExpiredToken, ErrWrongTokenType or ErrInvalidToken.
	ValidateSession(ctx context.Context, token string) (*Claims, error)
}

// hmacSessionService implements SessionService using HMAC-SHA256 signing.
type hmacSessionService struct {
	signingKey      []byte
	sessionLifetime time.Duration
	timeFunc        func() time.Time // injectable for testing
	clockSkew       time.Duration    // allowed drift when validating time claims
}

// sessionClaims is the JWT claim structure for session tokens.
type sessionClaims struct {
	UserID    uuid.UUID `json:"uid"`
	Address   string    `json:"addr"`
	ChainID   int64     `json:"cid"`
	TokenType string    `json:"type"`
	jwt.RegisteredClaims
}

// Ensure hmacSessionService implements SessionService.
var _ SessionService = (*hmacSessionService)(nil)

// NewSessionService creates a session service using HMAC-SHA256 signing.
func NewSessionService(cfg config.AuthConfig) (SessionService, error) {
	if len(cfg.SessionSecret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 characters")
	}

	return &hmacSessionService{
		signingKey:      []byte(cfg.SessionSecret),
		sessionLifetime: time.Duration(cfg.SessionLifetimeMinutes) * time.Minute,
		timeFunc:        time.Now,
		clockSkew:       2 * time.Minute,
	}, nil
}

// IssueSession implements SessionService.IssueSession.
func (s *hmacSessionService) IssueSession(ctx context.Context, userID uuid.UUID, address string, chainID int64) (string, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	claims := sessionClaims{
		UserID:    userID,
		Address:   address,
		ChainID:   chainID,
		TokenType: "session",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionLifetime)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		log.Error("failed to sign session token",
			"error", err,
			"user_id", userID,
			"signing_method", jwt.SigningMethodHS256.Name)
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// ValidateSession implements SessionService.ValidateSession.
func (s *hmacSessionService) ValidateSession(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&sessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		parserOpts...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("session validation failed: token expired", "error", err)
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			log.Debug("session validation failed: token not yet valid", "error", err)
			return nil, ErrTokenNotYetValid
		case errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenSignatureInvalid):
			log.Debug("session validation failed: malformed or bad signature", "error", err)
			return nil, ErrInvalidToken
		default:
			log.Debug("session validation failed",
				"error", err,
				"error_type", fmt.Sprintf("%T", err))
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		log.Debug("session validation failed: invalid claims")
		return nil, ErrInvalidToken
	}

	if claims.TokenType != "session" {
		log.Debug("session validation failed: wrong token type",
			"expected", "session",
			"actual", claims.TokenType)
		return nil, ErrWrongTokenType
	}

	return &Claims{
		UserID:    claims.UserID,
		Address:   claims.Address,
		ChainID:   claims.ChainID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}, nil
}
