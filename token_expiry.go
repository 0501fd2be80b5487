package auth

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IsTokenExpired decodes the payload of token without checking the
// signature and compares its exp claim with now. Anything that can not be
// decoded, or carries no exp, counts as expired.
//
// The result only drives pre-emptive refresh. The auth API stays the
// authority on whether a token is valid.
func IsTokenExpired(token string) bool {
	return isTokenExpiredAt(token, time.Now())
}

func isTokenExpiredAt(token string, now time.Time) bool {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || parts[1] == "" {
		return true
	}

	// only the payload segment is read, the header alg is never looked up
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return true
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}

	return exp.Time.Before(now)
}
