// src/security/validation/field_validator.go
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nuerofin/backend/src/models"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	DefaultMaxStringLength = 255
	MaxURLLength           = 2048
	MinCardDigits          = 12
	MaxCardDigits          = 19
)

var (
	cardDigitsRegex = regexp.MustCompile(`^[0-9]+$`)
	expiryRegex     = regexp.MustCompile(`^(0[1-9]|1[0-2])/([0-9]{2})$`)
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateCardNumber accepts 12 to 19 digits, ignoring whitespace.
func ValidateCardNumber(number string) error {
	digits := models.NormalizeCardNumber(number)
	if digits == "" {
		return fmt.Errorf("%w: card number cannot be empty", ErrValidationFailed)
	}
	if !cardDigitsRegex.MatchString(digits) {
		return fmt.Errorf("%w: card number must contain only digits", ErrValidationFailed)
	}
	if len(digits) < MinCardDigits || len(digits) > MaxCardDigits {
		return fmt.Errorf("%w: card number must have between %d and %d digits", ErrValidationFailed, MinCardDigits, MaxCardDigits)
	}
	return nil
}

// ValidateExpiry accepts an empty value or MM/YY.
func ValidateExpiry(expiry string) error {
	if expiry == "" {
		return nil
	}
	if !expiryRegex.MatchString(expiry) {
		return fmt.Errorf("%w: expiry ('%s') is not in the expected format (MM/YY)", ErrValidationFailed, expiry)
	}
	return nil
}
