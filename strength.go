package auth

// Strength labels
const (
	StrengthWeak       = "Weak"
	StrengthModerate   = "Moderate"
	StrengthStrong     = "Strong"
	StrengthVeryStrong = "Very Strong"
)

// PasswordStrength scores pw from 0 to 5: one point for a length of at
// least 8 and one for each of A-Z, a-z, 0-9 and symbol. A symbol is any
// character outside those ASCII classes, whitespace and accented letters
// included.
func PasswordStrength(pw string) (int, string) {
	var upper, lower, digit, symbol bool
	length := 0
	for _, r := range pw {
		length++
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}

	score := 0
	for _, ok := range []bool{length >= minSignupPasswordLength, upper, lower, digit, symbol} {
		if ok {
			score++
		}
	}
	return score, StrengthLabel(score)
}

// StrengthLabel maps a score to its label
func StrengthLabel(score int) string {
	switch {
	case score <= 1:
		return StrengthWeak
	case score <= 3:
		return StrengthModerate
	case score == 4:
		return StrengthStrong
	default:
		return StrengthVeryStrong
	}
}
