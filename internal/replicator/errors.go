package replicator

import (
	"errors"
	"fmt"
	"strings"

	"bigfish/internal/tree"
)

var (
	// ErrAlreadyStarted is returned when Migrate is called on a replicator
	// that has left the Idle phase. Migrations are never retried in place.
	ErrAlreadyStarted = errors.New("replicator: migration already started")

	// ErrMismatch is returned by Verify when the destination differs
	ErrMismatch = errors.New("replicator: destination does not match source")
)

// Read operations named in ReadError
const (
	OpListRootCollections = "list root collections"
	OpListDocuments       = "list documents"
	OpListSubCollections  = "list sub-collections"
)

// ReadError reports a failed listing or streaming call on the source
type ReadError struct {
	Op   string
	Path tree.Path
	Err  error
}

func (e *ReadError) Error() string {
	if e.Path.IsRoot() {
		return fmt.Sprintf("read: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("read: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports a failed upsert
type WriteError struct {
	Path tree.Path
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// WriteFailures collects every failed upsert of a run that continued past
// errors
type WriteFailures []*WriteError

func (f WriteFailures) Error() string {
	paths := make([]string, len(f))
	for i, e := range f {
		paths[i] = e.Path.String()
	}
	return fmt.Sprintf("%d document(s) failed to write: %s", len(f), strings.Join(paths, ", "))
}

// Unwrap exposes each failure to errors.Is and errors.As
func (f WriteFailures) Unwrap() []error {
	errs := make([]error, len(f))
	for i, e := range f {
		errs[i] = e
	}
	return errs
}

// Paths lists the failed document paths in failure order
func (f WriteFailures) Paths() []string {
	paths := make([]string, len(f))
	for i, e := range f {
		paths[i] = e.Path.String()
	}
	return paths
}
