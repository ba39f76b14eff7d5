// Package validator checks user queries on the way in and decodes model
// replies into protocol steps on the way out.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// spaceRegexp is compiled once at package init and reused across all Sanitize calls.
var spaceRegexp = regexp.MustCompile(`[ \t]+`)

// DefaultMaxQueryLength bounds the query embedded in the seeded prompt.
const DefaultMaxQueryLength = 4000

type InputValidator struct {
	maxLength int
	minLength int
}

func NewInputValidator() *InputValidator {
	return &InputValidator{
		maxLength: DefaultMaxQueryLength,
		minLength: 2,
	}
}

func (v *InputValidator) Validate(query string) error {
	if !utf8.ValidString(query) {
		return errors.New("invalid UTF-8 encoding")
	}

	if strings.TrimSpace(query) == "" {
		return errors.New("query is empty")
	}

	n := utf8.RuneCountInString(query)
	if n < v.minLength {
		return fmt.Errorf("query too short: minimum %d characters", v.minLength)
	}

	if n > v.maxLength {
		return fmt.Errorf("query too long: maximum %d characters", v.maxLength)
	}

	return nil
}

// Sanitize trims the query and collapses runs of blanks; line breaks are kept.
func (v *InputValidator) Sanitize(query string) string {
	query = strings.TrimSpace(query)
	query = spaceRegexp.ReplaceAllString(query, " ")
	return query
}
