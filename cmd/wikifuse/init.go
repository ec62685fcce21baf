package main

import (
	"fmt"
	"slices"

	"github.com/fwojciec/wikifuse"
)

// Run executes the init command.
func (c *InitCmd) Run(deps *Dependencies) error {
	cfg := &wikifuse.SourceConfig{
		Key:            wikifuse.NormalizeSourceKey(c.Source),
		Name:           c.Name,
		Extends:        c.Extends,
		AllowedDomains: c.Domain,
		ListingURLs:    c.Listing,
	}
	if cfg.Key == cfg.Extends {
		cfg.Extends = ""
	}
	if cfg.Extends != "" {
		keys, err := deps.Registry.List()
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
			return err
		}
		if !slices.Contains(keys, wikifuse.NormalizeSourceKey(cfg.Extends)) {
			err := wikifuse.Errorf(wikifuse.ECONFIG, "unknown base configuration %q", cfg.Extends)
			fmt.Fprintf(deps.Stderr, "error: %s\n", wikifuse.ErrorMessage(err))
			return err
		}
	}

	path, err := deps.Writer.Write(cfg, c.Force)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Created %s\n", path)
	return nil
}
