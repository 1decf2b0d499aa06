// Package validation builds the struct validator shared by config loading and
// the HTTP layer.
package validation

import (
	"strings"

	"braidsbar/queue-service/internal/models"

	"github.com/go-playground/validator/v10"
)

const phoneDigits = 10

// PhonePrefixes are the Ghanaian mobile network prefixes accepted for
// customer phone numbers.
var PhonePrefixes = []string{"020", "050", "024", "025", "054", "055", "059", "027", "057"}

func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("style_category", func(fl validator.FieldLevel) bool {
		return models.IsStyleCategory(fl.Field().String())
	})
	_ = v.RegisterValidation("gh_phone", func(fl validator.FieldLevel) bool {
		return IsPhoneNumber(fl.Field().String())
	})
	return v
}

// NormalizePhone strips spaces and dashes.
func NormalizePhone(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
}

func IsPhoneNumber(raw string) bool {
	phone := NormalizePhone(raw)
	if len(phone) != phoneDigits {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	for _, prefix := range PhonePrefixes {
		if strings.HasPrefix(phone, prefix) {
			return true
		}
	}
	return false
}
