package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordStrength(t *testing.T) {
	cases := []struct {
		pw    string
		score int
		label string
	}{
		{"", 0, StrengthWeak},
		{"abc", 1, StrengthWeak},
		{"abcdefgh", 2, StrengthModerate},
		{"Abcdefgh", 3, StrengthModerate},
		{"ABC1!", 3, StrengthModerate},
		{"Abcdefg1", 4, StrengthStrong},
		{"Abcdef1!", 5, StrengthVeryStrong},
		{"Ünïcödé9#", 4, StrengthStrong},
		{"abc def", 2, StrengthModerate},
		{"Abcdefg 1", 5, StrengthVeryStrong},
		{"ÀBCDEFGH", 3, StrengthModerate},
		{"١٢٣٤٥٦٧٨", 2, StrengthModerate},
	}

	for _, tc := range cases {
		t.Run(tc.pw, func(t *testing.T) {
			score, label := PasswordStrength(tc.pw)
			assert.Equal(t, tc.score, score)
			assert.Equal(t, tc.label, label)
		})
	}
}

func TestStrengthLabel(t *testing.T) {
	assert.Equal(t, StrengthWeak, StrengthLabel(-1))
	assert.Equal(t, StrengthModerate, StrengthLabel(2))
	assert.Equal(t, StrengthVeryStrong, StrengthLabel(9))
}
