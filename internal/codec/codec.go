// Package codec reads and writes whole-store snapshots.
//
// A snapshot lists root collections in discovery order; each document
// carries its id, its fields in the tagged encoding of package tree, and
// its sub-collections. Restoring a snapshot reproduces every value kind
// exactly.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"bigfish/internal/tree"
)

// SnapshotVersion is written to every snapshot
const SnapshotVersion = 1

// Importer interface for importing a store from various formats
type Importer interface {
	Parse(r io.Reader) (*tree.Store, error)
	Format() string
}

// Exporter interface for exporting a store to various formats
type Exporter interface {
	Export(store *tree.Store, w io.Writer) error
	Format() string
}

// Codec both imports and exports
type Codec interface {
	Importer
	Exporter
}

// ForPath picks a codec from a file extension; JSON is the default
func ForPath(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYAMLCodec()
	}
	return NewJSONCodec()
}

// ByFormat returns the codec with the given format name
func ByFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("unknown snapshot format %q", format)
}

type snapshot struct {
	Version     int                  `json:"version" yaml:"version"`
	Collections []snapshotCollection `json:"collections" yaml:"collections"`
}

type snapshotCollection struct {
	Name      string             `json:"name" yaml:"name"`
	Documents []snapshotDocument `json:"documents" yaml:"documents"`
}

type snapshotDocument struct {
	ID          string               `json:"id" yaml:"id"`
	Fields      map[string]any       `json:"fields" yaml:"fields"`
	Collections []snapshotCollection `json:"collections,omitempty" yaml:"collections,omitempty"`
}

func toSnapshot(s *tree.Store) *snapshot {
	return &snapshot{
		Version:     SnapshotVersion,
		Collections: toSnapshotCollections(s.Collections),
	}
}

func toSnapshotCollections(cs []*tree.Collection) []snapshotCollection {
	out := make([]snapshotCollection, 0, len(cs))
	for _, c := range cs {
		sc := snapshotCollection{Name: c.Name, Documents: make([]snapshotDocument, 0, len(c.Docs))}
		for _, n := range c.Docs {
			sc.Documents = append(sc.Documents, snapshotDocument{
				ID:          n.ID,
				Fields:      n.Fields.Tagged(),
				Collections: toSnapshotCollections(n.Children),
			})
		}
		out = append(out, sc)
	}
	return out
}

func fromSnapshot(snap *snapshot) (*tree.Store, error) {
	if snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", snap.Version, SnapshotVersion)
	}
	cs, err := fromSnapshotCollections(tree.Root(), snap.Collections)
	if err != nil {
		return nil, err
	}
	return &tree.Store{Collections: cs}, nil
}

func fromSnapshotCollections(parent tree.Path, scs []snapshotCollection) ([]*tree.Collection, error) {
	out := make([]*tree.Collection, 0, len(scs))
	for _, sc := range scs {
		collPath := parent.Collection(sc.Name)
		if err := collPath.Validate(); err != nil {
			return nil, err
		}
		c := &tree.Collection{Name: sc.Name}
		for _, sd := range sc.Documents {
			docPath := collPath.Doc(sd.ID)
			if err := docPath.Validate(); err != nil {
				return nil, err
			}
			fields, err := tree.FieldsFromTagged(sd.Fields)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", docPath, err)
			}
			children, err := fromSnapshotCollections(docPath, sd.Collections)
			if err != nil {
				return nil, err
			}
			c.Add(&tree.Node{ID: sd.ID, Fields: fields, Children: children})
		}
		out = append(out, c)
	}
	return out, nil
}
