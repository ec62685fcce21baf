// Package yaml encodes and decodes source configurations as YAML.
package yaml

import (
	"bytes"

	goyaml "github.com/goccy/go-yaml"
	"github.com/fwojciec/wikifuse"
)

var _ wikifuse.ConfigCodec = (*Codec)(nil)

// Codec implements wikifuse.ConfigCodec using goccy/go-yaml.
type Codec struct{}

// NewCodec creates a new Codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Extensions returns the YAML file extensions.
func (c *Codec) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// Decode parses a YAML document into cfg. Unknown keys are rejected.
func (c *Codec) Decode(data []byte, cfg *wikifuse.SourceConfig) error {
	dec := goyaml.NewDecoder(bytes.NewReader(data), goyaml.DisallowUnknownField())
	if err := dec.Decode(cfg); err != nil {
		return wikifuse.Errorf(wikifuse.ECONFIG, "invalid YAML configuration: %v", err)
	}
	return nil
}

// Encode renders cfg as YAML.
func (c *Codec) Encode(cfg *wikifuse.SourceConfig) ([]byte, error) {
	return goyaml.MarshalWithOptions(cfg, goyaml.IndentSequence(true))
}
