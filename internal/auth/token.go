// Package auth issues and validates device tokens.
package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"payslipx/internal/config"
	"payslipx/internal/domain"
)

const audience = "device"

// Claims identifies an anonymous device and its role.
type Claims struct {
	jwt.RegisteredClaims
	DeviceID string      `json:"device_id"`
	Role     domain.Role `json:"role"`
}

// DeviceTokenInput is the DTO for device token requests.
type DeviceTokenInput struct {
	DeviceID string `json:"device_id" binding:"required,max=128"`
	Key      string `json:"key" binding:"required"`
}

// Token is a signed device token.
type Token struct {
	AccessToken string      `json:"access_token"`
	Role        domain.Role `json:"role"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// TokenService signs device tokens with a shared HMAC secret.
type TokenService struct {
	cfg config.AuthConfig
	now func() time.Time
}

// NewTokenService creates a TokenService.
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{cfg: cfg, now: time.Now}
}

// SetClock replaces the time source.
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}

// Issue exchanges the app key or the admin key for a token bound to deviceID.
func (s *TokenService) Issue(input DeviceTokenInput) (*Token, error) {
	deviceID := strings.TrimSpace(input.DeviceID)
	if deviceID == "" {
		return nil, domain.ErrInvalidRequest
	}

	var role domain.Role
	switch {
	case keyMatches(s.cfg.AdminKey, input.Key):
		role = domain.RoleAdmin
	case keyMatches(s.cfg.AppKey, input.Key):
		role = domain.RoleDevice
	default:
		return nil, domain.ErrUnauthorized
	}

	now := s.now()
	expiry := now.Add(s.cfg.TokenExpiry)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   deviceID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{audience},
		},
		DeviceID: deviceID,
		Role:     role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("signing device token: %w", err)
	}
	return &Token{AccessToken: signed, Role: role, ExpiresAt: expiry}, nil
}

// Validate parses a token and checks its signature, expiry and audience.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w: %w", domain.ErrUnauthorized, err)
	}
	if !token.Valid || claims.DeviceID == "" {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

// keyMatches compares in constant time. An unset key never matches.
func keyMatches(want, got string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
