package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MinPublishedYear = 2000
	MaxPublishedYear = 2030
	MinTitleLength   = 3
	MaxDescLength    = 100
)

// FieldError describes a single constraint violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every field which failed its constraint.
type ValidationErrors []FieldError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ValidateBook checks every field constraint of a book payload.
// It returns nil or a non-empty ValidationErrors.
func ValidateBook(book Book) error {
	var errs ValidationErrors
	if n := utf8.RuneCountInString(book.Title); n < MinTitleLength {
		errs = append(errs, FieldError{"title", fmt.Sprintf("must have at least %d characters", MinTitleLength)})
	}
	if utf8.RuneCountInString(book.Author) < 1 {
		errs = append(errs, FieldError{"author", "must have at least 1 character"})
	}
	if n := utf8.RuneCountInString(book.Description); n < 1 || n > MaxDescLength {
		errs = append(errs, FieldError{"description", fmt.Sprintf("must have between 1 and %d characters", MaxDescLength)})
	}
	if err := ValidateRating(book.Rating); err != nil {
		errs = append(errs, err.(ValidationErrors)...)
	}
	if err := ValidatePublishedDate(book.PublishedDate); err != nil {
		errs = append(errs, err.(ValidationErrors)...)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateRating ensures a rating is within [1, 5].
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ValidationErrors{{"rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating)}}
	}
	return nil
}

// ValidatePublishedDate ensures a publication year is within [2000, 2030].
func ValidatePublishedDate(year int) error {
	if year < MinPublishedYear || year > MaxPublishedYear {
		return ValidationErrors{{"published_date", fmt.Sprintf("must be between %d and %d", MinPublishedYear, MaxPublishedYear)}}
	}
	return nil
}

// ParseBookID converts a path parameter into a positive book id.
func ParseBookID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ValidationErrors{{"id", "must be a positive integer"}}
	}
	return id, nil
}

// ParseIntQuery reads a mandatory integer query parameter.
func ParseIntQuery(field, raw string) (int, error) {
	if raw == "" {
		return 0, ValidationErrors{{field, "is required"}}
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ValidationErrors{{field, "must be an integer"}}
	}
	return v, nil
}
