// Package dataset holds the tabular output model: field values with an
// explicit missing sentinel, uniform-shape records, and named datasets
// deduplicated by full-row equality.
package dataset

import (
	"strconv"
	"strings"
)

// Value is one resolved field value.
//
// Missing is an explicit state, not an absent key: every declared field name
// appears in every record, so downstream consumers can tell "rule produced
// nothing" from "field not requested".
type Value struct {
	Text    string
	Missing bool
	Reason  string // optional, set when Missing has a diagnosable cause
}

// Some wraps a resolved string.
func Some(s string) Value { return Value{Text: s} }

// None is a plain missing value.
func None() Value { return Value{Missing: true} }

// NoneBecause is a missing value with a diagnostic reason.
func NoneBecause(reason string) Value { return Value{Missing: true, Reason: reason} }

// String renders the value for export. Missing renders empty regardless of
// reason; reasons are diagnostics, not data.
func (v Value) String() string {
	if v.Missing {
		return ""
	}
	return v.Text
}

// Record is one extracted row.
//
// Source is the 1-based index of the snapshot the record came from. It is
// provenance, not data, but it participates in dedup so identical content
// from different pages is retained.
type Record struct {
	Source int
	Fields map[string]Value
}

// key renders a full-row identity string for dedup, covering every column in
// order plus the source index. Missing and empty are distinct on purpose.
func (r Record) key(columns []string) string {
	var b strings.Builder
	for _, c := range columns {
		v := r.Fields[c]
		if v.Missing {
			b.WriteString("\x00?")
		} else {
			b.WriteString("\x00=")
			b.WriteString(v.Text)
		}
	}
	b.WriteString("\x00#")
	b.WriteString(strconv.Itoa(r.Source))
	return b.String()
}

// Dataset is a named, ordered, deduplicated collection of uniform records.
type Dataset struct {
	Name    string
	Columns []string
	Records []Record

	seen map[string]struct{}
}

// NewDataset creates an empty dataset with the given column set.
func NewDataset(name string, columns []string) *Dataset {
	return &Dataset{
		Name:    name,
		Columns: append([]string(nil), columns...),
		seen:    make(map[string]struct{}),
	}
}

// Add appends rec unless an identical row (all columns + source) is already
// present. First-seen order is preserved.
func (d *Dataset) Add(rec Record) {
	k := rec.key(d.Columns)
	if _, dup := d.seen[k]; dup {
		return
	}
	d.seen[k] = struct{}{}
	d.Records = append(d.Records, rec)
}

// Len returns the number of retained records.
func (d *Dataset) Len() int { return len(d.Records) }
