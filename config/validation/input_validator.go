package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"provsync/internal/utils"
)

// InputValidator validates raw user input from the CLI and TUI forms
type InputValidator struct {
}

// NewInputValidator creates a new InputValidator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateName checks if a provider display name is valid
func (iv *InputValidator) ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("name is too long (max 64 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name contains invalid characters")
		}
	}
	return nil
}

// ValidateURL checks if an optional URL is valid
func (iv *InputValidator) ValidateURL(url string) error {
	if url != "" && !utils.ValidateURL(url) {
		return fmt.Errorf("invalid URL format")
	}
	return nil
}

// ParseTemperature parses an optional temperature. Empty input yields nil.
func (iv *InputValidator) ParseTemperature(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("temperature must be a number")
	}
	if v < 0 || v > MaxTemperature {
		return nil, fmt.Errorf("temperature must be between 0 and %g", MaxTemperature)
	}
	return &v, nil
}

// ParseContextWindow parses an optional context window. Empty input yields nil.
func (iv *InputValidator) ParseContextWindow(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("context window must be an integer")
	}
	if v <= 0 {
		return nil, fmt.Errorf("context window must be positive")
	}
	return &v, nil
}
