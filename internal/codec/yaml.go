package codec

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"bigfish/internal/tree"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports a store from YAML. An empty document is an empty store.
func (c *YAMLCodec) Parse(r io.Reader) (*tree.Store, error) {
	var snap snapshot
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&snap); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return fromSnapshot(&snap)
}

// Export exports a store to YAML
func (c *YAMLCodec) Export(store *tree.Store, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(toSnapshot(store)); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
