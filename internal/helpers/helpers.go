package helpers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joshua-takyi/bashbay-client/internal/models"
)

// TokenValidator reads the identity out of a bearer token. Expiry is not
// checked here: an expired token is still forwarded so that the backend's 401
// drives the refresh-and-retry path.
type TokenValidator struct {
	jwks *keyfunc.JWKS
}

// NewTokenValidator verifies signatures against jwksURL. With an empty URL
// tokens are parsed unverified, which is only meant for development.
func NewTokenValidator(ctx context.Context, jwksURL string, logger *slog.Logger) (*TokenValidator, error) {
	if jwksURL == "" {
		logger.Warn("JWKS_URL not set, bearer tokens are parsed without signature verification")
		return &TokenValidator{}, nil
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error("JWKS refresh failed", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}
	return &TokenValidator{jwks: jwks}, nil
}

func (v *TokenValidator) ValidateToken(tokenStr string) (*CustomClaims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: missing bearer token", models.ErrAuthExpired)
	}

	claims := &CustomClaims{}
	if v.jwks == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
			return nil, fmt.Errorf("%w: malformed token: %v", models.ErrAuthExpired, err)
		}
	} else {
		token, err := jwt.ParseWithClaims(tokenStr, claims, v.jwks.Keyfunc, jwt.WithoutClaimsValidation())
		if err != nil {
			return nil, fmt.Errorf("%w: token validation failed: %v", models.ErrAuthExpired, err)
		}
		if !token.Valid {
			return nil, fmt.Errorf("%w: invalid token", models.ErrAuthExpired)
		}
	}

	if claims.UserID() == "" {
		return nil, errors.Join(models.ErrAuthExpired, errors.New("token carries no user id"))
	}
	return claims, nil
}

func (v *TokenValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
