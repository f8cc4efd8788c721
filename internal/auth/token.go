package auth

import (
	"errors"
	"fmt"
	"time"

	"forecast-ingest/edi/internal/constants"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "forecast-ingestd"

var (
	ErrEmptySigningKey = errors.New("signing key is empty")
	ErrInvalidRole     = errors.New("invalid role")
)

// IssueToken mints an HS256 token for subject valid for ttl from now
func IssueToken(signingKey []byte, subject string, role constants.OpsRole, ttl time.Duration, now time.Time) (string, error) {
	if len(signingKey) == 0 {
		return "", ErrEmptySigningKey
	}
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		RoleValue: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature, algorithm, issuer and expiry and returns the claims
func ParseToken(signingKey []byte, raw string, opts ...jwt.ParserOption) (*JWTClaims, error) {
	if len(signingKey) == 0 {
		return nil, ErrEmptySigningKey
	}

	opts = append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	}, opts...)

	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return signingKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !claims.RoleValue.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, claims.RoleValue)
	}
	return claims, nil
}
