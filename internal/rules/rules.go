// Package rules models a declarative extraction rule set: one container
// query plus an ordered list of field rules, each resolved relative to a
// matched container.
//
// Rule strings are parsed exactly once, at load time. A malformed rule
// becomes a KindInvalid field carrying a fixed reason; resolution later
// surfaces that reason on every record instead of failing the run.
package rules

import (
	"fmt"
	"strings"

	"harvest/internal/document"
)

// Kind discriminates the field rule variants.
type Kind int

const (
	// KindDirect resolves a relative query and reads an attribute
	// (text, href/src as absolute URL, or a named attribute).
	KindDirect Kind = iota

	// KindHeader finds a label element by marker class + text and returns
	// the text of its next sibling carrying a value class. CSS dialect only.
	KindHeader

	// KindTextMatch finds a text node containing a label and returns the
	// text of the parent's next sibling element with a given tag.
	KindTextMatch

	// KindInvalid marks a rule string that failed to parse at load time.
	KindInvalid
)

// DefaultHeaderMarker is the class fragment identifying label elements for
// KindHeader rules when the rule set does not override it.
const DefaultHeaderMarker = "entity__field_header"

// Rule syntax prefixes. Everything else is a direct query.
const (
	headerPrefix    = "HEADER:"
	textMatchPrefix = "TEXT_MATCH:"
)

// Field is one parsed field rule.
type Field struct {
	Name string
	Kind Kind

	// KindDirect.
	Query string
	Attr  string // "text", "href", "src", or a raw attribute name

	// KindHeader.
	Header     string
	ValueClass string

	// KindTextMatch.
	Label      string
	SiblingTag string

	// KindInvalid.
	Reason string
}

// RuleSet is a container query plus its field rules in declared order.
type RuleSet struct {
	Container    string
	Dialect      document.Dialect
	HeaderMarker string
	Fields       []Field
}

// Columns returns the output column names in declared order.
func (rs *RuleSet) Columns() []string {
	cols := make([]string, len(rs.Fields))
	for i, f := range rs.Fields {
		cols[i] = f.Name
	}
	return cols
}

// ParseRule parses one rule string for the named field.
//
// attr applies to direct rules only; empty means "text".
func ParseRule(name, raw, attr string) Field {
	raw = strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(raw, headerPrefix):
		label, arg, ok := splitPayload(strings.TrimPrefix(raw, headerPrefix))
		if !ok {
			return invalidField(name, "malformed HEADER rule: want HEADER:label|value_class")
		}
		return Field{Name: name, Kind: KindHeader, Header: label, ValueClass: arg}

	case strings.HasPrefix(raw, textMatchPrefix):
		label, arg, ok := splitPayload(strings.TrimPrefix(raw, textMatchPrefix))
		if !ok {
			return invalidField(name, "malformed TEXT_MATCH rule: want TEXT_MATCH:label|sibling_tag")
		}
		return Field{Name: name, Kind: KindTextMatch, Label: label, SiblingTag: arg}

	default:
		if raw == "" {
			return invalidField(name, "empty rule")
		}
		if attr == "" {
			attr = "text"
		}
		return Field{Name: name, Kind: KindDirect, Query: raw, Attr: attr}
	}
}

func splitPayload(payload string) (label, arg string, ok bool) {
	label, arg, found := strings.Cut(payload, "|")
	label = strings.TrimSpace(label)
	arg = strings.TrimSpace(arg)
	if !found || label == "" || arg == "" {
		return "", "", false
	}
	return label, arg, true
}

func invalidField(name, reason string) Field {
	return Field{Name: name, Kind: KindInvalid, Reason: reason}
}

// Validate checks rule-set level requirements (container present, at least
// one field, unique field names). Individual invalid rules are not an error
// here; they surface per field during resolution.
func (rs *RuleSet) Validate() error {
	if strings.TrimSpace(rs.Container) == "" {
		return fmt.Errorf("rules: empty container query")
	}
	if len(rs.Fields) == 0 {
		return fmt.Errorf("rules: no fields declared")
	}
	seen := make(map[string]bool, len(rs.Fields))
	for _, f := range rs.Fields {
		if f.Name == "" {
			return fmt.Errorf("rules: field with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("rules: duplicate field %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}
