package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"bigfish/internal/tree"
)

// ErrNotFound is returned by Get when the document does not exist
var ErrNotFound = errors.New("repository: document not found")

// Document is one entry of a collection feed
type Document struct {
	ID     string
	Fields tree.Fields
}

// Source reads a document tree
type Source interface {
	// RootCollections lists the collections directly under the store
	RootCollections(ctx context.Context) ([]string, error)

	// Documents streams the documents of a collection in store order.
	// Iteration stops at the first error, which is yielded once.
	Documents(ctx context.Context, collection tree.Path) iter.Seq2[Document, error]

	// SubCollections lists the collections attached to a document.
	// The document itself need not exist.
	SubCollections(ctx context.Context, doc tree.Path) ([]string, error)
}

// Sink writes documents
type Sink interface {
	// Upsert creates the document or fully replaces its fields
	Upsert(ctx context.Context, doc tree.Path, fields tree.Fields) error
}

// DocumentStore is a complete read/write document store
type DocumentStore interface {
	Source
	Sink

	// Get returns the fields of a document or ErrNotFound
	Get(ctx context.Context, doc tree.Path) (tree.Fields, error)

	// Close releases resources
	Close() error
}

// ConnectionError reports a store that could not be reached or authenticated
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CheckDocumentPath validates that p addresses a document
func CheckDocumentPath(p tree.Path) error {
	if !p.IsDocument() {
		return fmt.Errorf("repository: %q is not a document path", p.String())
	}
	return p.Validate()
}

// CheckCollectionPath validates that p addresses a collection
func CheckCollectionPath(p tree.Path) error {
	if !p.IsCollection() {
		return fmt.Errorf("repository: %q is not a collection path", p.String())
	}
	return p.Validate()
}

// FailedFeed returns a feed that yields err and stops
func FailedFeed(err error) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		yield(Document{}, err)
	}
}
