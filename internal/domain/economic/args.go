package economic

import (
	"bytes"
	"encoding/json"
)

// Arg is one named argument of a remote call.
type Arg struct {
	Key   string
	Value any
}

// Args is an ordered argument structure. Some remote operations are
// positional, so the order of keys is preserved on the wire.
// Values are scalars, nested Args, or slices of either.
type Args []Arg

// NewArgs builds Args from alternating key/value pairs.
// A trailing key without a value is ignored.
func NewArgs(pairs ...any) Args {
	args := make(Args, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		args = args.Set(key, pairs[i+1])
	}
	return args
}

// Get returns the value stored under key
func (a Args) Get(key string) (any, bool) {
	for _, arg := range a {
		if arg.Key == key {
			return arg.Value, true
		}
	}
	return nil, false
}

// Set returns a copy of a with key set to value. An existing key keeps its position.
func (a Args) Set(key string, value any) Args {
	out := make(Args, len(a), len(a)+1)
	copy(out, a)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Arg{Key: key, Value: value})
}

// Keys returns the keys in wire order
func (a Args) Keys() []string {
	keys := make([]string, len(a))
	for i, arg := range a {
		keys[i] = arg.Key
	}
	return keys
}

// Len returns the number of arguments
func (a Args) Len() int {
	return len(a)
}

// Map converts a into plain nested maps. Ordering is lost.
func (a Args) Map() map[string]any {
	m := make(map[string]any, len(a))
	for _, arg := range a {
		m[arg.Key] = plain(arg.Value)
	}
	return m
}

func plain(v any) any {
	switch val := v.(type) {
	case Args:
		return val.Map()
	case Handle:
		return val.Wire().Map()
	case []Args:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item.Map()
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes a as a JSON object in key order
func (a Args) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, arg := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(arg.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(arg.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
