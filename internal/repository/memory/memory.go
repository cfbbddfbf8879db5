// Package memory is an in-process document store
package memory

import (
	"context"
	"iter"
	"slices"
	"sync"

	"bigfish/internal/repository"
	"bigfish/internal/tree"
)

// Store keeps documents in maps, remembering first-write order
type Store struct {
	mu    sync.RWMutex
	docs  map[string]tree.Fields // document path -> fields
	ids   map[string][]string    // collection path -> document ids
	colls map[string][]string    // document path ("" for root) -> collection names
}

// New creates an empty store
func New() *Store {
	return &Store{
		docs:  make(map[string]tree.Fields),
		ids:   make(map[string][]string),
		colls: make(map[string][]string),
	}
}

// RootCollections lists root collection names
func (s *Store) RootCollections(ctx context.Context) ([]string, error) {
	return s.SubCollections(ctx, tree.Root())
}

// SubCollections lists the collections under a document
func (s *Store) SubCollections(ctx context.Context, doc tree.Path) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !doc.IsRoot() {
		if err := repository.CheckDocumentPath(doc); err != nil {
			return nil, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.colls[doc.String()]...), nil
}

// Documents streams existing documents of a collection
func (s *Store) Documents(ctx context.Context, collection tree.Path) iter.Seq2[repository.Document, error] {
	if err := repository.CheckCollectionPath(collection); err != nil {
		return repository.FailedFeed(err)
	}
	return func(yield func(repository.Document, error) bool) {
		s.mu.RLock()
		ids := append([]string(nil), s.ids[collection.String()]...)
		s.mu.RUnlock()

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				yield(repository.Document{}, err)
				return
			}
			s.mu.RLock()
			fields, ok := s.docs[collection.Doc(id).String()]
			fields = fields.Clone()
			s.mu.RUnlock()
			if !ok {
				continue
			}
			if !yield(repository.Document{ID: id, Fields: fields}, nil) {
				return
			}
		}
	}
}

// Get returns a copy of a document's fields
func (s *Store) Get(ctx context.Context, doc tree.Path) (tree.Fields, error) {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.docs[doc.String()]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return fields.Clone(), nil
}

// Upsert stores a copy of fields, replacing any previous content
func (s *Store) Upsert(ctx context.Context, doc tree.Path, fields tree.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := repository.CheckDocumentPath(doc); err != nil {
		return err
	}
	if fields == nil {
		fields = tree.Fields{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Register every collection level so missing parents stay navigable
	for i := 0; i < len(doc); i += 2 {
		parent := doc[:i].String()
		name := doc[i]
		if !slices.Contains(s.colls[parent], name) {
			s.colls[parent] = append(s.colls[parent], name)
		}
		coll := doc[:i+1].String()
		id := doc[i+1]
		if !slices.Contains(s.ids[coll], id) {
			s.ids[coll] = append(s.ids[coll], id)
		}
	}
	s.docs[doc.String()] = fields.Clone()
	return nil
}

// Len returns the number of stored documents
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Close is a no-op
func (s *Store) Close() error { return nil }

var _ repository.DocumentStore = (*Store)(nil)
