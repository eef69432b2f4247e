package domain

import (
	"encoding/json"
	"strconv"
)

// MetaKind identifies the underlying type of a MetaValue.
type MetaKind int

// MetaValue kinds.
const (
	// MetaString is a plain string value.
	MetaString MetaKind = iota

	// MetaNumber is a JSON number.
	MetaNumber

	// MetaBool is a JSON boolean.
	MetaBool

	// MetaNull is JSON null.
	MetaNull

	// MetaRaw is a nested array or object, kept verbatim.
	MetaRaw
)

// MetaValue is a tagged JSON scalar used in a document's metadata map.
// Remote feature flags arrive with mixed types; instead of rejecting
// non-string values, each is kept tagged and coerced to a string on demand.
type MetaValue struct {
	Kind MetaKind
	Str  string
	Num  float64
	Bool bool
	Raw  json.RawMessage
}

// MetaStringValue wraps a plain string.
func MetaStringValue(s string) MetaValue {
	return MetaValue{Kind: MetaString, Str: s}
}

// String applies the explicit stringification rule: strings pass through,
// numbers use the shortest decimal form, booleans become "true"/"false",
// null becomes the empty string, and nested values keep their JSON text.
func (v MetaValue) String() string {
	switch v.Kind {
	case MetaString:
		return v.Str
	case MetaNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case MetaBool:
		return strconv.FormatBool(v.Bool)
	case MetaNull:
		return ""
	case MetaRaw:
		return string(v.Raw)
	default:
		return ""
	}
}

// UnmarshalJSON decodes any JSON value into its tagged form.
func (v *MetaValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = MetaValue{Kind: MetaNull}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = MetaValue{Kind: MetaString, Str: s}
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = MetaValue{Kind: MetaNumber, Num: n}
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = MetaValue{Kind: MetaBool, Bool: b}
		return nil
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	*v = MetaValue{Kind: MetaRaw, Raw: raw}
	return nil
}

// MarshalJSON re-emits the underlying value unchanged.
func (v MetaValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case MetaString:
		return json.Marshal(v.Str)
	case MetaNumber:
		return json.Marshal(v.Num)
	case MetaBool:
		return json.Marshal(v.Bool)
	case MetaNull:
		return []byte("null"), nil
	case MetaRaw:
		return v.Raw, nil
	default:
		return []byte("null"), nil
	}
}
