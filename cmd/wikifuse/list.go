package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fwojciec/wikifuse"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	filter := wikifuse.CanonicalFilter{Limit: c.Limit}
	if c.Source != "" {
		filter.SourceKey = &c.Source
	}

	entities, err := deps.Store.FindCanonicals(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}

	if len(entities) == 0 {
		fmt.Fprintln(deps.Stdout, "No entities found. Use 'wikifuse scrape' to collect some.")
		return nil
	}

	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, []string{
			string(e.Key),
			e.Get(wikifuse.DefaultIdentityField).String(),
			strconv.Itoa(len(e.ContributingSources)),
			strconv.Itoa(len(e.MergeConflicts)),
			e.UpdatedAt.Format(time.DateOnly),
		})
	}
	fmt.Fprintln(deps.Stdout, renderTable(
		[]string{"Key", "Name", "Sources", "Conflicts", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}
