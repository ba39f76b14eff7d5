package validator

import (
	"strings"
	"testing"
)

func TestInputValidator_Validate(t *testing.T) {
	v := NewInputValidator()

	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"normal", "create a file named notes.txt", false},
		{"two chars", "ls", false},
		{"empty", "", true},
		{"blank", "    ", true},
		{"too short", "a", true},
		{"too long", strings.Repeat("x", DefaultMaxQueryLength+1), true},
		{"invalid utf8", "ab\xff\xfe", true},
		{"multibyte at limit", strings.Repeat("é", DefaultMaxQueryLength), false},
	}

	for _, tt := range tests {
		err := v.Validate(tt.query)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestInputValidator_Sanitize(t *testing.T) {
	v := NewInputValidator()

	tests := []struct {
		input    string
		expected string
	}{
		{"  hello  ", "hello"},
		{"a   b\t\tc", "a b c"},
		{"line one\nline two", "line one\nline two"},
	}

	for _, tt := range tests {
		result := v.Sanitize(tt.input)
		if result != tt.expected {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
