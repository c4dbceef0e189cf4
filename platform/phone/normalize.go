// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers typed without a country prefix.
const DefaultRegion = "RU"

// ErrInvalidNumber is returned when input cannot be parsed as a valid number.
var ErrInvalidNumber = errors.New("invalid phone number")

// Normalize parses input and formats it as E.164. Unparsable or invalid
// numbers return ErrInvalidNumber.
func Normalize(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrInvalidNumber
	}

	number, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil {
		return "", ErrInvalidNumber
	}

	if !phonenumbers.IsValidNumber(number) {
		return "", ErrInvalidNumber
	}

	return phonenumbers.Format(number, phonenumbers.E164), nil
}

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	normalized, err := Normalize(input)
	if err != nil {
		return strings.TrimSpace(input)
	}
	return normalized
}

// Digits returns the number without the leading plus, the form GOWA expects
// in recipient JIDs.
func Digits(e164 string) string {
	return strings.TrimPrefix(e164, "+")
}
