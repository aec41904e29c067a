package voteinstruction

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMalformed is wrapped by parse errors for truncated or inconsistent payloads.
	ErrMalformed = errors.New("malformed vote instruction")
	// ErrUnsupported is wrapped by parse errors for instructions that carry no votes.
	ErrUnsupported = errors.New("unsupported vote instruction")
)

// ParseError describes why a vote instruction payload could not be decoded.
type ParseError struct {
	Kind   Kind
	Offset int
	Reason string
	Err    error
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %s (kind=%s offset=%d)", e.Err, e.Reason, e.Kind, e.Offset)
}

// Unwrap returns ErrMalformed or ErrUnsupported.
func (e *ParseError) Unwrap() error {
	return e.Err
}
