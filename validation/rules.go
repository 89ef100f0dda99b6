package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.SetTagName("binding")
		v.RegisterTagNameFunc(func(sf reflect.StructField) string {
			if src, ok := sourceOf(sf); ok {
				return src.name
			}
			return sf.Name
		})
		_ = v.RegisterValidation("phone", isPhone)
		_ = v.RegisterValidation("password", isStrongPassword)
		validate = v
	})
	return validate
}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,19}$`)

func isPhone(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !phonePattern.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// PasswordRule is the human readable form of the password rule.
const PasswordRule = "must be 8-16 characters with at least one uppercase letter and one special character"

func isStrongPassword(fl validator.FieldLevel) bool {
	return StrongPassword(fl.Field().String())
}

// StrongPassword reports whether pw satisfies the password rule.
func StrongPassword(pw string) bool {
	n := len([]rune(pw))
	if n < 8 || n > 16 {
		return false
	}
	var upper, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && special
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return "valid " + name + " required"
	case "uuid", "uuid4":
		return name + " must be UUID"
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "phone":
		return "invalid " + name
	case "password":
		return name + " " + PasswordRule
	}
	return name + " is invalid"
}
