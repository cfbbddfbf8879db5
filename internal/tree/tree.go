package tree

import "sort"

// Node is one stored document together with the sub-collections attached to it
type Node struct {
	ID       string
	Fields   Fields
	Children []*Collection
}

// Collection holds documents in the order the source reported them
type Collection struct {
	Name string
	Docs []*Node
}

// Store is an in-memory copy of a whole document tree
type Store struct {
	Collections []*Collection
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{}
}

// Collection returns the root collection with the given name, or nil
func (s *Store) Collection(name string) *Collection {
	return findCollection(s.Collections, name)
}

// AddCollection appends a root collection
func (s *Store) AddCollection(c *Collection) {
	s.Collections = append(s.Collections, c)
}

// Doc returns the document with the given id, or nil
func (c *Collection) Doc(id string) *Node {
	for _, n := range c.Docs {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Add appends a document
func (c *Collection) Add(n *Node) {
	c.Docs = append(c.Docs, n)
}

// Child returns the sub-collection with the given name, or nil
func (n *Node) Child(name string) *Collection {
	return findCollection(n.Children, name)
}

// AddChild appends a sub-collection
func (n *Node) AddChild(c *Collection) {
	n.Children = append(n.Children, c)
}

func findCollection(cs []*Collection, name string) *Collection {
	for _, c := range cs {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Lookup resolves a document path
func (s *Store) Lookup(p Path) *Node {
	if !p.IsDocument() {
		return nil
	}
	coll := s.Collection(p[0])
	for i := 1; coll != nil; i += 2 {
		n := coll.Doc(p[i])
		if n == nil || i == len(p)-1 {
			return n
		}
		coll = n.Child(p[i+1])
	}
	return nil
}

// WalkFunc is called for every document in depth-first discovery order
type WalkFunc func(path Path, n *Node) error

// Walk visits every document. Returning an error stops the walk.
func (s *Store) Walk(fn WalkFunc) error {
	for _, c := range s.Collections {
		if err := walkCollection(Root().Collection(c.Name), c, fn); err != nil {
			return err
		}
	}
	return nil
}

func walkCollection(p Path, c *Collection, fn WalkFunc) error {
	for _, n := range c.Docs {
		docPath := p.Doc(n.ID)
		if err := fn(docPath, n); err != nil {
			return err
		}
		for _, child := range n.Children {
			if err := walkCollection(docPath.Collection(child.Name), child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Count returns the number of root collections and of documents at any depth
func (s *Store) Count() (collections, documents int) {
	_ = s.Walk(func(Path, *Node) error {
		documents++
		return nil
	})
	return len(s.Collections), documents
}

// Flatten maps every document path to its fields
func (s *Store) Flatten() map[string]Fields {
	out := make(map[string]Fields)
	_ = s.Walk(func(p Path, n *Node) error {
		out[p.String()] = n.Fields
		return nil
	})
	return out
}

// Equal reports whether two stores hold the same documents at the same
// paths with the same fields, ignoring discovery order.
func Equal(a, b *Store) bool {
	return len(Diff(a, b)) == 0
}

// Diff returns the sorted document paths that are missing on one side or
// whose fields differ.
func Diff(a, b *Store) []string {
	fa, fb := a.Flatten(), b.Flatten()
	var diff []string
	for p, fields := range fa {
		other, ok := fb[p]
		if !ok || !FieldsEqual(fields, other) {
			diff = append(diff, p)
		}
	}
	for p := range fb {
		if _, ok := fa[p]; !ok {
			diff = append(diff, p)
		}
	}
	sort.Strings(diff)
	return diff
}
