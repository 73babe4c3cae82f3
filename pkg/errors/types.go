package errors

import (
	"fmt"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// BadMapping represents a path that couldn't be translated between the local
// and remote namespaces because it isn't under the expected root. It always
// indicates that the roots passed at startup are misconfigured, so it's
// treated as fatal.
type BadMapping struct {
	Path string
	Root string
}

func (err BadMapping) Error() string {
	return fmt.Sprintf("path %q is not under root %q", err.Path, err.Root)
}

// ConnectivityError represents a failure to reach or authenticate to the
// remote server. It aborts the run immediately.
type ConnectivityError struct {
	Server string
	Err    error
}

func (err ConnectivityError) Error() string {
	return fmt.Sprintf("unable to reach %q: %s", err.Server, err.Err)
}

// Unwrap returns the underlying transport error.
func (err ConnectivityError) Unwrap() error {
	return err.Err
}

// ListingError represents a failure to enumerate one side of the tree.
// Without a complete snapshot the reconciliation can't be planned, so it
// aborts the run.
type ListingError struct {
	Side string
	Err  error
}

func (err ListingError) Error() string {
	return fmt.Sprintf("unable to list %s tree: %s", err.Side, err.Err)
}

// Unwrap returns the underlying error.
func (err ListingError) Unwrap() error {
	return err.Err
}
