package templates

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCollection is returned by Find when no unit's trigger names
	// occur in the window title.
	ErrNoCollection = errors.New("no template found for this window")
	// ErrValidation rejects an entry whose key or snippet is blank.
	ErrValidation = errors.New("invalid entry")
	// ErrDuplicateKey rejects an entry whose key already exists,
	// compared case-insensitively.
	ErrDuplicateKey = errors.New("key already present in the template")
)

// ParseError reports a unit that is not valid template data.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IOError reports a unit or directory that could not be read or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
