// Package jwttoken validates the HS256 access tokens minted by the external
// identity service. The ledger never issues end-user tokens itself; the
// generate path exists for tooling and tests.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"custodia/internal/platform/middleware"
	dErrors "custodia/pkg/domain-errors"
)

// Claims represents the JWT claims carried by access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken mints a signed token, used by seed tooling and tests.
func (s *JWTService) GenerateAccessToken(userID uuid.UUID, role string, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a token, returning middleware claims.
func (s *JWTService) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &middleware.JWTClaims{UserID: claims.UserID, Role: claims.Role}, nil
}
