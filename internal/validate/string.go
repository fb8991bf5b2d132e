// Package validate provides input validation for user-submitted text such as
// review occasions, go-to orders, notes, and search terms.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrEmpty             = errors.New("string is empty")
)

// Length limits for review and query text, counted in runes.
const (
	MaxOccasionLength   = 60
	MaxGoToOrderLength  = 200
	MaxNoteLength       = 2000
	MaxSearchTermLength = 100
)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength       int            // Minimum length (0 = no minimum)
	MaxLength       int            // Maximum length (0 = no maximum)
	AllowedPattern  *regexp.Regexp // Optional regex pattern for allowed characters
	AllowEmpty      bool           // Whether empty strings are allowed
	TrimSpace       bool           // Whether to trim whitespace before validation
	AllowLineBreaks bool           // Whether \n and \r are accepted as the only control characters
}

// String validates a string against the given constraints.
// Returns the validated (and optionally trimmed) string and an error if validation fails.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidCharacters)
	}

	// Get actual character count (not byte count)
	length := utf8.RuneCountInString(s)

	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}

	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	for _, r := range s {
		if r == '\n' || r == '\r' {
			if constraints.AllowLineBreaks {
				continue
			}
			return "", fmt.Errorf("%w: line breaks are not allowed", ErrInvalidCharacters)
		}
		if unicode.IsControl(r) && r != '\t' {
			return "", fmt.Errorf("%w: control character %U", ErrInvalidCharacters, r)
		}
	}

	if constraints.AllowedPattern != nil && !constraints.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: does not match required pattern", ErrInvalidCharacters)
	}

	return s, nil
}

// Occasion validates a review occasion:
// - Required, 1-60 characters after trimming
// - Single line
// Case is preserved; occasions are compared verbatim downstream.
func Occasion(occasion string) (string, error) {
	return String(occasion, StringConstraints{
		MinLength:  1,
		MaxLength:  MaxOccasionLength,
		AllowEmpty: false,
		TrimSpace:  true,
	})
}

// OptionalText validates an optional free-text field. Blank input yields nil.
func OptionalText(s *string, maxLength int, multiline bool) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v, err := String(*s, StringConstraints{
		MaxLength:       maxLength,
		AllowEmpty:      true,
		TrimSpace:       true,
		AllowLineBreaks: multiline,
	})
	if err != nil {
		return nil, err
	}
	if v == "" {
		return nil, nil
	}
	return &v, nil
}

// GoToOrder validates the optional "go-to order" field: single line, max 200 characters.
func GoToOrder(s *string) (*string, error) {
	return OptionalText(s, MaxGoToOrderLength, false)
}

// Note validates the optional review note: multi-line, max 2000 characters.
func Note(s *string) (*string, error) {
	return OptionalText(s, MaxNoteLength, true)
}

// SearchTerm validates a free-text place name search. Empty is allowed.
func SearchTerm(term string) (string, error) {
	return String(term, StringConstraints{
		MaxLength:  MaxSearchTermLength,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}
