package helpers

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims covers both Supabase tokens (sub) and backend-issued tokens
// (numeric or string user_id).
type CustomClaims struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	RawID    any    `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the id of the token owner as a string.
func (cc *CustomClaims) UserID() string {
	switch v := cc.RawID.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return cc.Subject
}

func (cc *CustomClaims) GetSafeRole() string {
	if cc.Role == "" {
		return "guest"
	}
	return cc.Role
}
