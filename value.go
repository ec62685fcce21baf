package wikifuse

import (
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the canonical layout of date values (ISO 8601 calendar date).
const DateLayout = "2006-01-02"

// ValueKind discriminates the variants of a Value.
type ValueKind int

// Value kinds.
const (
	KindAbsent ValueKind = iota
	KindText
	KindList
	KindDate
	KindMap
)

var kindNames = map[ValueKind]string{
	KindAbsent: "absent",
	KindText:   "text",
	KindList:   "list",
	KindDate:   "date",
	KindMap:    "map",
}

// String returns the kind name.
func (k ValueKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "absent"
}

// MarshalText encodes the kind as its name.
func (k ValueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name. Unknown names decode as absent.
func (k *ValueKind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	*k = KindAbsent
	return nil
}

// Value is a field value: absent, text, list, date or map.
// Dates are stored in Text using DateLayout.
type Value struct {
	Kind ValueKind         `json:"kind"`
	Text string            `json:"text,omitempty"`
	List []string          `json:"list,omitempty"`
	Map  map[string]string `json:"map,omitempty"`
}

// Absent returns the absent value.
func Absent() Value {
	return Value{}
}

// Text returns a text value, or absent if s is empty.
func Text(s string) Value {
	if s == "" {
		return Absent()
	}
	return Value{Kind: KindText, Text: s}
}

// List returns a list value, or absent if there are no items.
func List(items ...string) Value {
	if len(items) == 0 {
		return Absent()
	}
	return Value{Kind: KindList, List: slices.Clone(items)}
}

// Date returns a date value for the calendar day of t.
func Date(t time.Time) Value {
	return Value{Kind: KindDate, Text: t.Format(DateLayout)}
}

// Map returns a map value, or absent if m is empty.
func Map(m map[string]string) Value {
	if len(m) == 0 {
		return Absent()
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return Value{Kind: KindMap, Map: c}
}

// IsAbsent reports whether the value carries no information.
func (v Value) IsAbsent() bool {
	return v.Kind == KindAbsent
}

// Len returns the information length of the value: runes for text,
// entries for lists and maps, and the full layout length for dates.
func (v Value) Len() int {
	switch v.Kind {
	case KindText:
		return utf8.RuneCountInString(v.Text)
	case KindList:
		return len(v.List)
	case KindMap:
		return len(v.Map)
	case KindDate:
		return len(DateLayout)
	}
	return 0
}

// Time returns the date of a date value.
func (v Value) Time() (time.Time, bool) {
	if v.Kind != KindDate {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, v.Text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Equal reports whether two values are identical.
func (v Value) Equal(o Value) bool {
	return v.Key() == o.Key()
}

// Key returns a canonical string form used for comparing values.
func (v Value) Key() string {
	switch v.Kind {
	case KindList:
		return "list:" + strings.Join(v.List, "\x1f")
	case KindMap:
		return "map:" + v.mapString("\x1f")
	case KindAbsent:
		return "absent:"
	}
	return v.Kind.String() + ":" + v.Text
}

// String renders the value for display.
func (v Value) String() string {
	switch v.Kind {
	case KindList:
		return strings.Join(v.List, ", ")
	case KindMap:
		return v.mapString("; ")
	}
	return v.Text
}

func (v Value) mapString(sep string) string {
	keys := make([]string, 0, len(v.Map))
	for k := range v.Map {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + v.Map[k]
	}
	return strings.Join(parts, sep)
}
