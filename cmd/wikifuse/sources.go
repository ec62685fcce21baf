package main

import (
	"fmt"
	"strconv"
	"strings"
)

// Run executes the sources command.
func (c *SourcesCmd) Run(deps *Dependencies) error {
	keys, err := deps.Registry.List()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		cfg, err := deps.Registry.Load(key)
		if err != nil {
			rows = append(rows, []string{key, "", "", "invalid: " + errorText(err)})
			continue
		}
		rows = append(rows, []string{
			cfg.Key,
			cfg.Extends,
			strconv.Itoa(len(cfg.Rules)),
			strings.Join(cfg.AllowedDomains, ", "),
		})
	}
	fmt.Fprintln(deps.Stdout, renderTable(
		[]string{"Source", "Extends", "Rules", "Domains"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}
