package tree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrResolutionCancelled is returned when an item resolution was
	// superseded by a cursor move, a buffer switch or disposal.
	ErrResolutionCancelled = errors.New("tree item resolution cancelled")
	// ErrMissingCapability is wrapped with the name of the provider hook an
	// operation needed.
	ErrMissingCapability = errors.New("provider capability missing")
	ErrInvariant         = errors.New("tree invariant violated")
	ErrDisposed          = errors.New("tree view disposed")
)

// ProviderError reports a failed Children or TreeItem call.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// singleLine collapses line breaks so a message fits on one surface line.
func singleLine(s string) string {
	return lineBreaks.Replace(s)
}
