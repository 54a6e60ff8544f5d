package fields

import (
	"encoding/json"
	"fmt"
)

// Properties holds the type-specific settings of a field. Each field type
// has exactly one concrete implementation.
type Properties interface {
	Kind() Type
	clone() Properties
}

// Extra carries keys the current schema does not know about so they survive
// a load/save cycle.
type Extra map[string]json.RawMessage

func (e Extra) clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// TextProperties configures a free text field.
type TextProperties struct {
	MaxLength int   `json:"max_length,omitempty"`
	Multiline bool  `json:"multiline,omitempty"`
	Extra     Extra `json:"-"`
}

func (p TextProperties) Kind() Type { return TypeText }

func (p TextProperties) clone() Properties {
	p.Extra = p.Extra.clone()
	return p
}

// DateProperties configures a date picker field.
type DateProperties struct {
	Format string `json:"format,omitempty"`
	Extra  Extra  `json:"-"`
}

func (p DateProperties) Kind() Type { return TypeDate }

func (p DateProperties) clone() Properties {
	p.Extra = p.Extra.clone()
	return p
}

// SignatureProperties configures a signature capture field.
type SignatureProperties struct {
	Extra Extra `json:"-"`
}

func (p SignatureProperties) Kind() Type { return TypeSignature }

func (p SignatureProperties) clone() Properties {
	p.Extra = p.Extra.clone()
	return p
}

// CheckboxProperties configures a checkbox field.
type CheckboxProperties struct {
	Checked bool  `json:"checked,omitempty"`
	Extra   Extra `json:"-"`
}

func (p CheckboxProperties) Kind() Type { return TypeCheckbox }

func (p CheckboxProperties) clone() Properties {
	p.Extra = p.Extra.clone()
	return p
}

// DefaultProperties returns the properties given to new fields of type t.
func DefaultProperties(t Type) Properties {
	switch t {
	case TypeDate:
		return DateProperties{Format: "YYYY-MM-DD"}
	case TypeSignature:
		return SignatureProperties{}
	case TypeCheckbox:
		return CheckboxProperties{}
	default:
		return TextProperties{}
	}
}

var knownKeys = map[Type][]string{
	TypeText:      {"kind", "max_length", "multiline"},
	TypeDate:      {"kind", "format"},
	TypeSignature: {"kind"},
	TypeCheckbox:  {"kind", "checked"},
}

// MarshalProperties encodes p as a JSON object tagged with a "kind" key.
// A nil value encodes as null.
func MarshalProperties(p Properties) ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s properties: %w", p.Kind(), err)
	}

	obj := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("failed to encode %s properties: %w", p.Kind(), err)
	}
	for k, v := range extraOf(p) {
		if _, taken := obj[k]; !taken {
			obj[k] = v
		}
	}
	kind, _ := json.Marshal(string(p.Kind()))
	obj["kind"] = kind

	return json.Marshal(obj)
}

// UnmarshalProperties decodes a tagged JSON object. When the payload carries
// no "kind" key, fallback decides which variant to use. Empty input and JSON
// null yield the defaults for fallback.
func UnmarshalProperties(data []byte, fallback Type) (Properties, error) {
	if len(data) == 0 || string(data) == "null" {
		return DefaultProperties(fallback), nil
	}

	obj := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode field properties: %w", err)
	}

	kind := fallback
	if raw, ok := obj["kind"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to decode properties kind: %w", err)
		}
		parsed, err := ParseType(s)
		if err != nil {
			return nil, err
		}
		kind = parsed
	}

	extra := Extra{}
	for k, v := range obj {
		if !contains(knownKeys[kind], k) {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		extra = nil
	}

	switch kind {
	case TypeDate:
		var p DateProperties
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode date properties: %w", err)
		}
		p.Extra = extra
		return p, nil
	case TypeSignature:
		return SignatureProperties{Extra: extra}, nil
	case TypeCheckbox:
		var p CheckboxProperties
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode checkbox properties: %w", err)
		}
		p.Extra = extra
		return p, nil
	default:
		var p TextProperties
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode text properties: %w", err)
		}
		p.Extra = extra
		return p, nil
	}
}

func extraOf(p Properties) Extra {
	switch v := p.(type) {
	case TextProperties:
		return v.Extra
	case DateProperties:
		return v.Extra
	case SignatureProperties:
		return v.Extra
	case CheckboxProperties:
		return v.Extra
	default:
		return nil
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
