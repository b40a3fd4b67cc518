package handlers

import (
	"errors"
	"regexp"
	"strconv"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"
	"github.com/trystantbm/portfolio-contact/internal/models"
)

// contactEmailPattern requires something@something.something with no whitespace
var contactEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return contactEmailPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	// Lengths are counted in UTF-16 code units, the unit browsers use for
	// string length, so client-side and server-side checks agree
	if err := v.RegisterValidation("utf16min", func(fl validator.FieldLevel) bool {
		minLen, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf16Len(fl.Field().String()) >= minLen
	}); err != nil {
		panic(err)
	}
	return v
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// fieldMessages maps a failing field and rule to the message shown to the visitor.
// Struct field order on ContactSubmission is the validation order.
var fieldMessages = map[string]string{
	"Name.utf16min":           "Name must be at least 2 characters",
	"Email.required":          "Email is required",
	"Email.contact_email":     "Invalid email format",
	"Message.utf16min":        "Message must be at least 10 characters",
	"TurnstileToken.required": "CAPTCHA token is required",
}

// ValidateSubmission checks the contact fields and reports the first failing rule
func ValidateSubmission(sub *models.ContactSubmission) models.ValidationResult {
	err := validate.Struct(sub)
	if err == nil {
		return models.ValidationResult{Valid: true}
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		if msg, ok := fieldMessages[ve[0].StructField()+"."+ve[0].Tag()]; ok {
			return models.ValidationResult{Valid: false, Reason: msg}
		}
	}

	return models.ValidationResult{Valid: false, Reason: "Invalid submission"}
}
