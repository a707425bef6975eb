// Package auth signs and checks the tokens handed to clients: bearer access
// tokens for users and the visitor cookie identifying anonymous clients.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrTokenExpired is returned when a token is well formed but past its expiry.
var ErrTokenExpired = errors.New("token expired")

// SessionClaims are carried by access tokens. ID (jti) keys the session registry.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

// VisitorClaims are carried by the anonymous visitor cookie.
type VisitorClaims struct {
	jwt.RegisteredClaims
	UUID string `json:"uuid"`
}

// Signer creates and validates HS256 tokens with a shared secret.
type Signer struct {
	key []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{key: []byte(secret)}
}

// GenerateSessionJWT returns a signed access token and its claims. A fresh
// random jti is assigned to every token.
func (s *Signer) GenerateSessionJWT(userID uint, username string, expire time.Duration) (string, *SessionClaims, error) {
	jti, err := uuid.NewRandom()
	if err != nil {
		return "", nil, fmt.Errorf("generate token id: %w", err)
	}
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
		UserID:   userID,
		Username: username,
	}
	token, err := s.generateJWT(claims)
	if err != nil {
		return "", nil, fmt.Errorf("generating session jwt token: %w", err)
	}
	return token, claims, nil
}

// ValidateSessionJWT checks the signature and expiry of an access token.
func (s *Signer) ValidateSessionJWT(tokenString string) (*SessionClaims, error) {
	claims := new(SessionClaims)
	if _, err := s.validateJWT(tokenString, claims); err != nil {
		return nil, fmt.Errorf("validating session jwt token: %w", err)
	}
	if claims.ID == "" {
		return nil, errors.New("session token without id")
	}
	return claims, nil
}

// GenerateVisitorJWT creates the visitor cookie value for visitorID.
func (s *Signer) GenerateVisitorJWT(visitorID string, expire time.Duration) (string, error) {
	claims := VisitorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
		},
		UUID: visitorID,
	}
	token, err := s.generateJWT(claims)
	if err != nil {
		return "", fmt.Errorf("generating visitor jwt token: %w", err)
	}
	return token, nil
}

// ValidateVisitorJWT returns the visitor id carried by a visitor cookie.
func (s *Signer) ValidateVisitorJWT(tokenString string) (string, error) {
	claims := new(VisitorClaims)
	if _, err := s.validateJWT(tokenString, claims); err != nil {
		return "", fmt.Errorf("validating visitor jwt token: %w", err)
	}
	if _, err := uuid.Parse(claims.UUID); err != nil {
		return "", fmt.Errorf("invalid visitor id: %w", err)
	}
	return claims.UUID, nil
}

func (s *Signer) generateJWT(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("generating jwt token: %w", err)
	}
	return tokenString, nil
}

func (s *Signer) validateJWT(tokenString string, claims jwt.Claims) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("parsing jwt token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return token, nil
}
