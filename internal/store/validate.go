package store

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength = 200
	MaxBodyLength  = 20000
)

var (
	// ErrTitleRequired is returned when a story is submitted without a title.
	ErrTitleRequired = errors.New("title is required")

	// ErrTitleTooLong is returned when a title exceeds MaxTitleLength runes.
	ErrTitleTooLong = fmt.Errorf("title must be at most %d characters", MaxTitleLength)

	// ErrBodyTooLong is returned when a body exceeds MaxBodyLength runes.
	ErrBodyTooLong = fmt.Errorf("body must be at most %d characters", MaxBodyLength)

	// ErrInvalidStatus is returned when a status value is not public or private.
	ErrInvalidStatus = errors.New("status must be one of: public, private")
)

// StoryInput is the complete set of story fields a client may write. Anything
// else in a request body (owner, id, timestamps) is never read.
type StoryInput struct {
	Title  string
	Body   string
	Status string
}

// Normalize trims surrounding whitespace, lowercases the status and fills in
// the default status.
func (in StoryInput) Normalize() StoryInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	if in.Status == "" {
		in.Status = StatusPublic
	}
	return in
}

// Validate checks a normalized input.
func (in StoryInput) Validate() error {
	if in.Title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(in.Body) > MaxBodyLength {
		return ErrBodyTooLong
	}
	return ValidateStatus(in.Status)
}

// ValidateStatus checks that s is one of the allowed story statuses.
func ValidateStatus(s string) error {
	switch s {
	case StatusPublic, StatusPrivate:
		return nil
	default:
		return ErrInvalidStatus
	}
}

// IsValidationError reports whether err came from StoryInput.Validate.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrTitleRequired) ||
		errors.Is(err, ErrTitleTooLong) ||
		errors.Is(err, ErrBodyTooLong) ||
		errors.Is(err, ErrInvalidStatus)
}
