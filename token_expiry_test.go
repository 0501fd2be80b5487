package auth

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, IsTokenExpired(signedToken(t, now.Add(time.Hour))))
	assert.True(t, IsTokenExpired(signedToken(t, now.Add(-time.Hour))))
}

func TestIsTokenExpired_Undecodable(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":"soon"}`))

	cases := map[string]string{
		"empty":        "",
		"one segment":  "abc",
		"bad base64":   "a.@@@.c",
		"bad claims":   "eyJhbGciOiJIUzI1NiJ9." + payload + ".sig",
		"not json":     "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".sig",
		"only a space": " ",
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, IsTokenExpired(token))
		})
	}
}

func TestIsTokenExpired_IgnoresHeaderAlgorithm(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS999","typ":"JWT"}`))
	future := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"exp":%d}`, time.Now().Add(time.Hour).Unix())))
	past := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"exp":%d}`, time.Now().Add(-time.Hour).Unix())))

	assert.False(t, IsTokenExpired(header+"."+future+".sig"))
	assert.False(t, IsTokenExpired("."+future+"."))
	assert.True(t, IsTokenExpired(header+"."+past+".sig"))
}

func TestIsTokenExpired_NoExpClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u-1"}).
		SignedString([]byte("test-secret"))
	assert.NoError(t, err)
	assert.True(t, IsTokenExpired(token))
}

func TestIsTokenExpiredAt_UsesGivenClock(t *testing.T) {
	clock := newFakeClock()
	token := signedToken(t, clock.Now().Add(time.Minute))

	assert.False(t, isTokenExpiredAt(token, clock.Now()))
	clock.Advance(2 * time.Minute)
	assert.True(t, isTokenExpiredAt(token, clock.Now()))
}
