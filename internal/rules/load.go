package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"harvest/internal/document"
)

// ruleSetJSON is the wire shape of a rule-set file.
//
// Fields stays raw so key order can be recovered: encoding/json map decoding
// would randomize it, and output column order must match declared order.
type ruleSetJSON struct {
	Container    string          `json:"container"`
	Dialect      string          `json:"dialect,omitempty"`
	Attribute    string          `json:"attribute,omitempty"`
	HeaderMarker string          `json:"header_marker,omitempty"`
	Fields       json.RawMessage `json:"fields"`
}

// Load reads and parses a rule-set JSON file.
func Load(path string) (*RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseJSON(b)
}

// ParseJSON parses a rule set from JSON, preserving field declaration order.
//
// Errors here are configuration errors: the run must not start on a rule set
// that cannot be parsed at all. Malformed individual rule strings are NOT
// errors; they load as invalid fields and resolve to a missing value with
// the parse reason attached.
func ParseJSON(b []byte) (*RuleSet, error) {
	var raw ruleSetJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse rules json: %w", err)
	}

	dialect, err := document.ParseDialect(raw.Dialect)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}

	names, ruleStrings, err := decodeOrderedObject(raw.Fields)
	if err != nil {
		return nil, fmt.Errorf("rules: fields: %w", err)
	}

	rs := &RuleSet{
		Container:    raw.Container,
		Dialect:      dialect,
		HeaderMarker: raw.HeaderMarker,
	}
	if rs.HeaderMarker == "" {
		rs.HeaderMarker = DefaultHeaderMarker
	}
	for i, name := range names {
		rs.Fields = append(rs.Fields, ParseRule(name, ruleStrings[i], raw.Attribute))
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

// decodeOrderedObject decodes a flat {"name": "rule", ...} object keeping
// key order, via the token stream.
func decodeOrderedObject(raw json.RawMessage) (keys, values []string, err error) {
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("missing")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key := keyTok.(string)

		var val string
		if err := dec.Decode(&val); err != nil {
			return nil, nil, fmt.Errorf("field %q: rule must be a string: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, val)
	}
	return keys, values, nil
}
