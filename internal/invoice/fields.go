package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Fields is a flat mapping of named string fields.
// The backend stores some of these as numbers or nulls, so decoding accepts any
// JSON scalar and keeps its literal text. Null decodes to the empty string.
type Fields map[string]string

// Get returns the value for key, or "" when the field is absent.
func (f Fields) Get(key string) string {
	if f == nil {
		return ""
	}
	return f[key]
}

// Clone returns an independent copy. A nil map clones to nil.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Fields) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Fields, len(raw))
	for k, v := range raw {
		s, err := scalarString(v)
		if err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = s
	}
	*f = out
	return nil
}

// scalarString renders a JSON scalar as display text.
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}

	switch raw[0] {
	case 'n':
		return "", nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case '{', '[':
		return "", fmt.Errorf("expected scalar, got %s", string(raw[:1]))
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}
