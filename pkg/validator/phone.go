package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates the national number is not 9 digits
	ErrInvalidLength = errors.New("phone number must be exactly 9 digits (without +221)")

	// ErrInvalidPrefix indicates the number is not a Senegalese mobile number
	ErrInvalidPrefix = errors.New("phone number must start with 70, 75, 76, 77 or 78")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

// CountryCode is the Senegal calling code
const CountryCode = "221"

// operators maps Senegalese mobile prefixes to their operator
var operators = map[string]string{
	"70": "Expresso",
	"75": "Promobile",
	"76": "Free",
	"77": "Orange",
	"78": "Orange",
}

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator handles mobile-money phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates a Senegalese mobile number
// Accepts: 771234567, 77 123 45 67, +221 77 123 45 67, 00221771234567
// Returns the 9-digit national number and an error if invalid
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) != 9 {
		return "", ErrInvalidLength
	}

	if !v.IsValidPrefix(sanitized) {
		return "", ErrInvalidPrefix
	}

	return sanitized, nil
}

// Sanitize removes separators and the country code
func (v *PhoneValidator) Sanitize(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "\t", "")
	phone = replacer.Replace(phone)

	switch {
	case strings.HasPrefix(phone, "+"+CountryCode):
		phone = phone[len(CountryCode)+1:]
	case strings.HasPrefix(phone, "00"+CountryCode) && len(phone) == 14:
		phone = phone[len(CountryCode)+2:]
	case strings.HasPrefix(phone, CountryCode) && len(phone) == 12:
		phone = phone[len(CountryCode):]
	}

	return phone
}

// IsValidPrefix checks if the national number has a mobile operator prefix
func (v *PhoneValidator) IsValidPrefix(phone string) bool {
	if len(phone) < 2 {
		return false
	}
	_, ok := operators[phone[:2]]
	return ok
}

// E164 returns the number in international format: +221XXXXXXXXX
func (v *PhoneValidator) E164(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}
	return "+" + CountryCode + sanitized, nil
}

// Format formats a phone number for display: 7X XXX XX XX
func (v *PhoneValidator) Format(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s %s %s %s",
		sanitized[0:2],
		sanitized[2:5],
		sanitized[5:7],
		sanitized[7:9],
	), nil
}

// GetOperator returns the mobile operator name based on prefix
func (v *PhoneValidator) GetOperator(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}
	return operators[sanitized[:2]], nil
}
