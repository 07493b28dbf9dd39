package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value is a scalar field of a status payload, kept as display text.
// Kiosks send quantities both as numbers and as strings, so any JSON
// scalar is accepted. A number or boolean keeps its literal and is written
// back unquoted. Objects and arrays decode as missing; the renderer reports
// them like any other missing field.
type Value struct {
	text    string
	literal bool
}

// Text returns a Value that encodes as a JSON string.
func Text(s string) Value { return Value{text: s} }

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*v = Value{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Text(s)
	case b[0] == '{' || b[0] == '[':
		*v = Value{}
	default:
		*v = Value{text: string(b), literal: true}
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case !v.literal && v.text == "":
		return []byte("null"), nil
	case v.literal:
		return []byte(v.text), nil
	}
	return json.Marshal(v.text)
}

// Missing reports whether the field was absent, null, blank or not a scalar.
func (v Value) Missing() bool { return strings.TrimSpace(v.text) == "" }

func (v Value) String() string { return v.text }

// Chemical is one ingredient line of a DryMix record.
type Chemical struct {
	Name string `json:"name"`
	Qty  Value  `json:"qty"`
}

// Chemicals is the DryMix ingredient mapping. On the wire it is a JSON
// object; it is decoded into a slice so the document's key order survives.
// Anything other than an object decodes as no chemicals.
type Chemicals []Chemical

func (c *Chemicals) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		*c = nil
		return nil
	}

	out := Chemicals{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("chemical: expected key, got %v", tok)
		}
		var qty Value
		if err := dec.Decode(&qty); err != nil {
			return fmt.Errorf("chemical %q: %w", name, err)
		}
		out = append(out, Chemical{Name: name, Qty: qty})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

func (c Chemicals) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ch := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(ch.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(ch.Qty)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Names returns the ingredient names in document order.
func (c Chemicals) Names() []string {
	names := make([]string, 0, len(c))
	for _, ch := range c {
		names = append(names, ch.Name)
	}
	return names
}
