package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"bigfish/internal/tree"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports a store from JSON
func (c *JSONCodec) Parse(r io.Reader) (*tree.Store, error) {
	var snap snapshot
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return fromSnapshot(&snap)
}

// Export exports a store to JSON
func (c *JSONCodec) Export(store *tree.Store, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(toSnapshot(store)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
