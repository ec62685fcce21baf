// Package toml encodes and decodes source configurations as TOML.
package toml

import (
	"bytes"

	"github.com/fwojciec/wikifuse"
	gotoml "github.com/pelletier/go-toml/v2"
)

var _ wikifuse.ConfigCodec = (*Codec)(nil)

// Codec implements wikifuse.ConfigCodec using pelletier/go-toml.
type Codec struct{}

// NewCodec creates a new Codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Extensions returns the TOML file extension.
func (c *Codec) Extensions() []string {
	return []string{".toml"}
}

// Decode parses a TOML document into cfg. Unknown keys are rejected.
func (c *Codec) Decode(data []byte, cfg *wikifuse.SourceConfig) error {
	dec := gotoml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return wikifuse.Errorf(wikifuse.ECONFIG, "invalid TOML configuration: %v", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func (c *Codec) Encode(cfg *wikifuse.SourceConfig) ([]byte, error) {
	return gotoml.Marshal(cfg)
}
