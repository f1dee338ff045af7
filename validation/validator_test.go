package validation

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/giygas/event-counter-api/interfaces"
)

var _ interfaces.InputValidator = (*InputValidatorImpl)(nil)

func TestValidateCounterName(t *testing.T) {
	validator := NewInputValidator()

	testCases := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple key", "testing_1", false},
		{"key from request uri", "monitor_events_10_seconds", false},
		{"key with query", "users?id=1&sort=asc", false},
		{"dots and dashes", "api.v2-health", false},
		{"unicode", "café_menu", false},
		{"repeated characters", "aaaaaaaaaaaaaaaaaaaa", false},
		{"max length", strings.Repeat("a", 256), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 257), true},
		{"raw identifier with slash", "testing/1", true},
		{"space", "testing 1", true},
		{"tab", "testing\t1", true},
		{"null byte", "abc\x00def", true},
		{"control character", "abc\x1bdef", true},
		{"invalid utf8", "abc\xffdef", true},
		{"script tag", "<script>alert(1)", true},
		{"script tag uppercase", "<SCRIPT>", true},
		{"encoded traversal", "%2e%2e_etc", true},
		{"backslash traversal", "..\\windows", true},
		{"command substitution", "$(reboot)", true},
		{"template injection", "${jndi:ldap}", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.ValidateCounterName(tc.input)
			if tc.wantErr && err == nil {
				t.Errorf("Expected error for %q", tc.input)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected error for %q: %v", tc.input, err)
			}
		})
	}
}

func TestValidateWindow(t *testing.T) {
	validator := NewInputValidator()

	testCases := []struct {
		value    string
		unit     string
		expected time.Duration
		wantErr  bool
	}{
		{"10", "seconds", 9999 * time.Millisecond, false},
		{"10", "secs", 9999 * time.Millisecond, false},
		{"10", "Seconds", 9999 * time.Millisecond, false},
		{"5", "minutes", 299999 * time.Millisecond, false},
		{"1", "mins", 59999 * time.Millisecond, false},
		{"3000", "ms", 3000 * time.Millisecond, false},
		{"9999999999", "ms", 9999999999 * time.Millisecond, false},
		{"9999999999", "seconds", time.Duration(math.MaxInt64), false},
		{"9999999999", "minutes", time.Duration(math.MaxInt64), false},
		{"0", "seconds", 0, true},
		{"", "seconds", 0, true},
		{"-5", "seconds", 0, true},
		{"+5", "seconds", 0, true},
		{"1.5", "seconds", 0, true},
		{"abc", "seconds", 0, true},
		{"12345678901", "ms", 0, true},
		{"10", "hours", 0, true},
		{"10", "", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.value+"_"+tc.unit, func(t *testing.T) {
			got, err := validator.ValidateWindow(tc.value, tc.unit)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q %q, got %v", tc.value, tc.unit, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %q %q: %v", tc.value, tc.unit, err)
			}
			if got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}
