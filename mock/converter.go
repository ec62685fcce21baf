package mock

import "github.com/fwojciec/wikifuse"

var _ wikifuse.Converter = (*Converter)(nil)

// Converter is a mock implementation of wikifuse.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
