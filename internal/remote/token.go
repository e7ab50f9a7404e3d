package remote

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// checkToken rejects an API token that is already expired, so a sync attempt
// fails fast as Unauthorized instead of burning a request. The signature is
// not verified here; only the server can do that. Opaque (non-JWT) tokens
// pass through untouched.
func checkToken(token string) error {
	if token == "" {
		return nil
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("%w: token expired", ErrUnauthorized)
	}
	return nil
}
