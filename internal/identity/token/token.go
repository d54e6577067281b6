// Package token issues and verifies the signed, time-bound credentials
// used by the API: short-lived access tokens carrying the principal and
// long-lived refresh tokens carrying only the user id.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/taskhub/taskhub/internal/domain"
)

// ErrInvalidToken is returned for any verification failure. Signature,
// expiry, and issuer/audience failures are deliberately flattened so the
// client learns nothing about why a token was rejected.
var ErrInvalidToken = errors.New("invalid token")

// refreshTokenType is the value of the "type" claim on refresh tokens.
const refreshTokenType = "refresh"

// Config contains token signing settings. Access and refresh tokens are
// signed with separate secrets.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Pair bundles a newly issued access and refresh token.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service issues and verifies JWT credentials. It is stateless aside
// from configuration read at construction.
type Service struct {
	cfg Config
	now func() time.Time
}

// NewService creates a token service.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg, now: time.Now}
}

// NewServiceWithClock creates a token service with an injected clock.
// Used by tests to cross expiry boundaries without sleeping.
func NewServiceWithClock(cfg Config, now func() time.Time) *Service {
	return &Service{cfg: cfg, now: now}
}

type accessClaims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type refreshClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Type   string `json:"type"`
}

// IssueAccessToken encodes the principal into a signed access token.
func (s *Service) IssueAccessToken(principal *domain.Principal) (string, error) {
	now := s.now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.UserID,
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
		UserID:      principal.UserID,
		Email:       principal.Email,
		Role:        string(principal.Role),
		Permissions: principal.Permissions,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.AccessSecret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken encodes the user id into a signed refresh token.
func (s *Service) IssueRefreshToken(userID string) (string, error) {
	now := s.now()
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTTL)),
		},
		UserID: userID,
		Type:   refreshTokenType,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.RefreshSecret))
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// IssueTokenPair issues an access and refresh token for the principal.
func (s *Service) IssueTokenPair(principal *domain.Principal) (*Pair, error) {
	accessToken, err := s.IssueAccessToken(principal)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.IssueRefreshToken(principal.UserID)
	if err != nil {
		return nil, err
	}

	return &Pair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyAccessToken verifies signature, expiry, issuer, and audience,
// and returns the encoded principal.
func (s *Service) VerifyAccessToken(tokenString string) (*domain.Principal, error) {
	var claims accessClaims
	if err := s.parse(tokenString, &claims, s.cfg.AccessSecret); err != nil {
		return nil, ErrInvalidToken
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, ErrInvalidToken
	}

	return &domain.Principal{
		UserID:      userID,
		Email:       claims.Email,
		Role:        domain.Role(claims.Role),
		Permissions: claims.Permissions,
	}, nil
}

// VerifyRefreshToken verifies a refresh token and returns the user id.
// Tokens whose type claim is not "refresh" are rejected, so an access
// token presented to the refresh endpoint never passes.
func (s *Service) VerifyRefreshToken(tokenString string) (string, error) {
	var claims refreshClaims
	if err := s.parse(tokenString, &claims, s.cfg.RefreshSecret); err != nil {
		return "", ErrInvalidToken
	}

	if claims.Type != refreshTokenType {
		return "", ErrInvalidToken
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", ErrInvalidToken
	}

	return userID, nil
}

func (s *Service) parse(tokenString string, claims jwt.Claims, secret string) error {
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	return err
}

// ExtractBearerToken returns the token from an Authorization header
// value, or "" unless the header matches exactly "Bearer <token>".
func ExtractBearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}

	tok := header[len(prefix):]
	if tok == "" || strings.ContainsRune(tok, ' ') {
		return ""
	}
	return tok
}
