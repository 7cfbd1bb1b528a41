package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Description length bounds, carried over from the public request schema.
const (
	MinDescriptionLength = 10
	MaxDescriptionLength = 2000
)

// ValidateRequest checks a recommendation request at the pipeline entry.
func ValidateRequest(r Request) error {
	desc := strings.TrimSpace(r.Description)
	if desc == "" {
		return NewValidationError("description", r.Description, ErrEmptyDescription)
	}
	n := utf8.RuneCountInString(desc)
	if n < MinDescriptionLength {
		return NewValidationError("description", desc, ErrDescriptionTooShort)
	}
	if n > MaxDescriptionLength {
		return NewValidationError("description", truncate(desc, 64), ErrDescriptionTooLong)
	}
	return nil
}

// ValidateTopK checks the similarity truncation parameter.
func ValidateTopK(k int) error {
	if k < 1 {
		return NewValidationError("top_k", strconv.Itoa(k), ErrInvalidTopK)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
