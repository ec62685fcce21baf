package main

import (
	"fmt"
	"strconv"
)

// Run executes the validate command.
func (c *ValidateCmd) Run(deps *Dependencies) error {
	cfg, err := deps.Registry.Load(c.Source)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}
	if err := deps.Validator.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "%s is valid (%d rules)\n", cfg.Key, len(cfg.Rules))

	rows := make([][]string, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		selectors := r.Selectors()
		required := ""
		if r.Required || r.Field == cfg.Identity() {
			required = "yes"
		}
		rows = append(rows, []string{
			r.Field,
			string(r.SelectorType()),
			string(r.ExtractionMode()),
			selectors[0],
			strconv.Itoa(len(selectors) - 1),
			r.PostProcess,
			required,
		})
	}
	fmt.Fprintln(deps.Stdout, renderTable(
		[]string{"Field", "Type", "Mode", "Selector", "Fallbacks", "Post-process", "Required"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
	return nil
}
