package auth

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

const (
	minLoginPasswordLength  = 6
	minSignupPasswordLength = 8
)

// DefaultPhoneRegion is used to parse phone numbers written without a
// country prefix.
const DefaultPhoneRegion = "US"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// LoginRequest payload
type LoginRequest struct {
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
	Next       string `form:"next" json:"next,omitempty"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return strings.TrimSpace(r.Email)
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports the remember me choice
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Credentials converts the request to the auth API payload
func (r LoginRequest) Credentials() Credentials {
	return Credentials{Email: r.GetIdentifier(), Password: r.Password}
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules()...),
		validation.Field(
			&r.Password,
			validation.Required.Error("Password is required"),
			validation.Length(minLoginPasswordLength, 0).Error("Password must be at least 6 characters"),
		),
	)
}

var _ LoginPayload = LoginRequest{}

// SignupRequest is the registration form payload
type SignupRequest struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	Role            string `form:"role" json:"role"`
	RememberMe      bool   `form:"remember_me" json:"remember_me"`
}

// Validate will validate the payload
func (r SignupRequest) Validate() error {
	return r.validate(DefaultPhoneRegion)
}

func (r SignupRequest) validate(region string) error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)

	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName,
			validation.Required.Error("Name is required"),
			validation.Length(1, 200),
		),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Email, emailRules()...),
		validation.Field(&r.Phone, validation.By(ValidatePhone(region))),
		validation.Field(
			&r.Password,
			validation.Required.Error("Password is required"),
			validation.Length(minSignupPasswordLength, 0).Error("Password must be at least 8 characters"),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.By(ValidateOptionalStringEquals(r.Password)),
		),
		validation.Field(&r.Role, validation.By(validateRole)),
	)
}

// Credentials converts the request to the auth API payload. The phone is
// normalised to E.164, role defaults to COACH.
func (r SignupRequest) Credentials(region string) Credentials {
	role, ok := ParseRole(r.Role)
	if !ok {
		role = RoleCoach
	}

	phone := strings.TrimSpace(r.Phone)
	if normalized, err := NormalizePhone(phone, region); err == nil {
		phone = normalized
	}

	return Credentials{
		Email:     strings.TrimSpace(r.Email),
		Password:  r.Password,
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Phone:     phone,
		Role:      role,
	}
}

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Email is required"),
		validation.Match(emailPattern).Error("Please enter a valid email address"),
	}
}

// ValidateStringEquals checks the value equals str
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidateOptionalStringEquals is ValidateStringEquals that accepts an
// empty value
func ValidateOptionalStringEquals(str string) validation.RuleFunc {
	match := ValidateStringEquals(str)
	return func(value any) error {
		if s, _ := value.(string); s == "" {
			return nil
		}
		if err := match(value); err != nil {
			return errors.New("Passwords do not match")
		}
		return nil
	}
}

// ValidatePhone accepts empty values and numbers phonenumbers considers valid
func ValidatePhone(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := NormalizePhone(s, region); err != nil {
			return errors.New("Please enter a valid phone number")
		}
		return nil
	}
}

// NormalizePhone parses number and formats it as E.164
func NormalizePhone(number, region string) (string, error) {
	if region == "" {
		region = DefaultPhoneRegion
	}
	parsed, err := phonenumbers.Parse(number, region)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", errors.New("invalid phone number")
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

func validateRole(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, ok := ParseRole(s); !ok {
		return errors.New("Please choose a valid role")
	}
	return nil
}

// FormatValidationErrorToMap flattens a validation error to field → message
func FormatValidationErrorToMap(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}

	out := ValidationErrors{}
	var fields validation.Errors
	if errors.As(err, &fields) {
		for field, ferr := range fields {
			if ferr == nil {
				continue
			}
			out[field] = ferr.Error()
		}
		return out
	}

	out["form"] = err.Error()
	return out
}
