package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneValidator(t *testing.T) {
	validator := NewPhoneValidator()
	assert.NotNil(t, validator)
}

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"771234567", "771234567", "Standard format"},
		{"77 123 45 67", "771234567", "With spaces"},
		{"77-123-45-67", "771234567", "With dashes"},
		{"77.123.45.67", "771234567", "With dots"},
		{"+221 77 123 45 67", "771234567", "With country code"},
		{"00221771234567", "771234567", "With international prefix"},
		{"221761234567", "761234567", "With bare country code"},
		{"701234567", "701234567", "Expresso 70"},
		{"751234567", "751234567", "Promobile 75"},
		{"761234567", "761234567", "Free 76"},
		{"781234567", "781234567", "Orange 78"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty string"},
		{"   ", ErrEmptyPhone, "Blank string"},
		{"123", ErrInvalidLength, "Too short"},
		{"7712345678", ErrInvalidLength, "Too long"},
		{"331234567", ErrInvalidPrefix, "Landline 33"},
		{"721234567", ErrInvalidPrefix, "Unassigned prefix 72"},
		{"77123456a", ErrInvalidFormat, "Contains letters"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func TestE164(t *testing.T) {
	validator := NewPhoneValidator()

	e164, err := validator.E164("77 123 45 67")
	require.NoError(t, err)
	assert.Equal(t, "+221771234567", e164)

	_, err = validator.E164("12")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	validator := NewPhoneValidator()

	formatted, err := validator.Format("+221771234567")
	require.NoError(t, err)
	assert.Equal(t, "77 123 45 67", formatted)
}

func TestGetOperator(t *testing.T) {
	validator := NewPhoneValidator()

	tests := []struct {
		input    string
		operator string
	}{
		{"771234567", "Orange"},
		{"781234567", "Orange"},
		{"761234567", "Free"},
		{"701234567", "Expresso"},
		{"751234567", "Promobile"},
	}

	for _, tc := range tests {
		t.Run(tc.operator+"_"+tc.input[:2], func(t *testing.T) {
			op, err := validator.GetOperator(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.operator, op)
		})
	}
}
