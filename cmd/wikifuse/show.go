package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fwojciec/wikifuse"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	entity, err := deps.Store.FindCanonical(deps.Ctx, wikifuse.EntityKey(c.Key))
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}

	if c.JSON {
		b, err := sonic.ConfigStd.MarshalIndent(entityJSON(entity), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(deps.Stdout, string(b))
		return nil
	}

	fmt.Fprintf(deps.Stdout, "%s  (updated %s)\n", entity.Key, entity.UpdatedAt.Format(time.DateOnly))

	names := sortedFieldNames(entity.Fields)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		var rejected []string
		for _, v := range entity.MergeConflicts[name] {
			rejected = append(rejected, v.String())
		}
		rows = append(rows, []string{name, entity.Fields[name].String(), strings.Join(rejected, " | ")})
	}
	fmt.Fprintln(deps.Stdout, renderTable([]string{"Field", "Value", "Conflicts"}, rows, nil))

	fmt.Fprintln(deps.Stdout, "Sources:")
	for _, src := range entity.ContributingSources {
		fmt.Fprintf(deps.Stdout, "  %s\n", src)
	}
	return nil
}

type canonicalJSON struct {
	ID                  string           `json:"id"`
	Key                 string           `json:"key"`
	Fields              map[string]any   `json:"fields"`
	ContributingSources []string         `json:"contributing_sources"`
	MergeConflicts      map[string][]any `json:"merge_conflicts,omitempty"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func entityJSON(e *wikifuse.CanonicalEntity) canonicalJSON {
	out := canonicalJSON{
		ID:                  e.ID,
		Key:                 string(e.Key),
		Fields:              make(map[string]any, len(e.Fields)),
		ContributingSources: e.ContributingSources,
		UpdatedAt:           e.UpdatedAt,
	}
	for name, v := range e.Fields {
		out.Fields[name] = plainValue(v)
	}
	if len(e.MergeConflicts) > 0 {
		out.MergeConflicts = make(map[string][]any, len(e.MergeConflicts))
		for name, values := range e.MergeConflicts {
			for _, v := range values {
				out.MergeConflicts[name] = append(out.MergeConflicts[name], plainValue(v))
			}
		}
	}
	return out
}

// plainValue returns v as a JSON-friendly Go value.
func plainValue(v wikifuse.Value) any {
	switch v.Kind {
	case wikifuse.KindList:
		return v.List
	case wikifuse.KindMap:
		return v.Map
	case wikifuse.KindAbsent:
		return nil
	}
	return v.Text
}

func sortedFieldNames(fields map[string]wikifuse.Value) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
