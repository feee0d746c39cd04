// File: internal/services/user_services/auth_service.go
package user_services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/calyra-app/calyra/internal/domain"
	"github.com/calyra-app/calyra/internal/services"
)

const tokenLifetime = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService issues and validates the session tokens carried by API
// callers. Account provisioning (passwords, OAuth) lives with the
// identity provider; this service only deals in the signed claims the
// orchestrator needs: user id and identity class.
type AuthService struct {
	jwtSecret []byte
	logger    services.Logger
}

func NewAuthService(jwtSecret string, logger services.Logger) (*AuthService, error) {
	if jwtSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if logger == nil {
		logger = &services.NoOpLogger{}
	}
	return &AuthService{jwtSecret: []byte(jwtSecret), logger: logger}, nil
}

type sessionClaims struct {
	UserID   uint   `json:"uid"`
	UserType string `json:"utype"`
	jwt.RegisteredClaims
}

// CreateToken signs a session token for a user id and identity class.
func (s *AuthService) CreateToken(userID uint, userType string) (string, error) {
	if userID == 0 {
		return "", errors.New("invalid user ID")
	}
	if userType != domain.UserTypeGuest && userType != domain.UserTypeRegular {
		userType = domain.UserTypeGuest
	}

	now := time.Now()
	claims := sessionClaims{
		UserID:   userID,
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a session token and returns the user id and
// identity class it carries.
func (s *AuthService) ValidateToken(tokenString string) (uint, string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid || claims.UserID == 0 {
		return 0, "", ErrInvalidToken
	}

	userType := claims.UserType
	if userType == "" {
		userType = domain.UserTypeGuest
	}
	return claims.UserID, userType, nil
}
