// Package validation checks monitor API path parameters before they reach the
// counter registry.
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/giygas/event-counter-api/convert"
)

const (
	maxNameLength  = 256
	maxValueDigits = 10
)

// Patterns rejected in counter names. Names are echoed back in responses and
// log lines, so markup and traversal sequences are refused outright.
var dangerousPatterns = []string{
	"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
	"$(", "${", "`",
	"../", "..\\", "%2e%2e", "file://",
}

// InputValidatorImpl implements interfaces.InputValidator
type InputValidatorImpl struct{}

// NewInputValidator creates a new input validator
func NewInputValidator() *InputValidatorImpl {
	return &InputValidatorImpl{}
}

// ValidateCounterName checks a counter key taken from the URL. Keys are
// already normalized, so they never contain a slash or whitespace.
func (v *InputValidatorImpl) ValidateCounterName(name string) error {
	if name == "" {
		return fmt.Errorf("counter name cannot be empty")
	}

	if len(name) > maxNameLength {
		return fmt.Errorf("counter name too long: maximum %d bytes", maxNameLength)
	}

	for _, r := range name {
		switch {
		case r == '/':
			return fmt.Errorf("counter name cannot contain '/': use the normalized key")
		case unicode.IsSpace(r):
			return fmt.Errorf("counter name cannot contain whitespace: use the normalized key")
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
			return fmt.Errorf("counter name contains invalid characters")
		}
	}

	lower := strings.ToLower(name)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("counter name contains potentially dangerous content")
		}
	}

	return nil
}

// ValidateWindow parses a window length and unit from the URL and returns the
// zero based window, e.g. 10 seconds is 9.999s.
func (v *InputValidatorImpl) ValidateWindow(value, unit string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("window value cannot be empty")
	}

	if len(value) > maxValueDigits {
		return 0, fmt.Errorf("window value too long: maximum %d digits", maxValueDigits)
	}

	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("window value must be a positive integer, got: %s", value)
		}
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid window value: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("window value must be a positive integer, got: %s", value)
	}

	if !convert.IsKnownUnit(unit) {
		return 0, fmt.Errorf("unknown unit %q: use one of ms, seconds, secs, minutes, mins", unit)
	}

	return convert.ToDuration(n, unit), nil
}
