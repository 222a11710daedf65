package flows

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// PasswordSpecials is the set of characters that satisfies the "special
// character" requirement of the signup password policy.
const PasswordSpecials = `!@#$%^&*(),.?":{}|<>`

// MinPasswordLength is the shortest password signup accepts.
const MinPasswordLength = 8

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[` + regexp.QuoteMeta(PasswordSpecials) + `]`)
)

// ErrPasswordPolicy is the rule error for passwords that miss a character class.
var ErrPasswordPolicy = errors.New("must contain upper and lower case letters, a digit and a special character")

// ValidateLogin checks the login form. The password is only required to be
// present; policy applies at signup.
func ValidateLogin(req LoginRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Email, validation.Required, is.Email),
		validation.Field(&req.Password, validation.Required),
	)
}

// ValidateSignup checks the signup form, including the password policy and the
// confirmation match.
func ValidateSignup(req SignupRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Username, validation.Required),
		validation.Field(&req.Email, validation.Required, is.Email),
		validation.Field(&req.Password,
			validation.Required,
			validation.Length(MinPasswordLength, 0),
			validation.By(passwordPolicy),
		),
		validation.Field(&req.ConfirmPassword,
			validation.Required,
			validation.By(stringEquals(req.Password)),
		),
	)
}

// PasswordMeetsPolicy reports whether p satisfies every signup password rule.
func PasswordMeetsPolicy(p string) bool {
	return utf8.RuneCountInString(p) >= MinPasswordLength && passwordPolicy(p) == nil
}

func passwordPolicy(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !upperRe.MatchString(s) || !lowerRe.MatchString(s) || !digitRe.MatchString(s) || !specialRe.MatchString(s) {
		return ErrPasswordPolicy
	}
	return nil
}

func stringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("passwords do not match")
		}
		return nil
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
