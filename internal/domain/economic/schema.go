package economic

import (
	"fmt"
	"time"
)

// ValueKind is the declared type of a property
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindDecimal
	KindBool
	KindTime
	KindHandle
)

// RenderRule decides whether a property is sent on create/update
type RenderRule int

const (
	// RenderOmitEmpty sends the field only when its value is present
	RenderOmitEmpty RenderRule = iota
	// RenderAlways sends the field even when it is nil
	RenderAlways
	// RenderNever marks a read-only field computed by the remote side
	RenderNever
)

// Property declares one named property of an entity type
type Property struct {
	Name      string
	Remote    string
	Kind      ValueKind
	Rule      RenderRule
	HandleKey string
	// DefaultValue is copied into new entities. A func() any is called per entity.
	DefaultValue any
}

// String declares a string property
func String(name, remote string) Property {
	return Property{Name: name, Remote: remote, Kind: KindString}
}

// Int declares an integer property
func Int(name, remote string) Property {
	return Property{Name: name, Remote: remote, Kind: KindInt}
}

// Decimal declares a decimal property
func Decimal(name, remote string) Property {
	return Property{Name: name, Remote: remote, Kind: KindDecimal}
}

// Bool declares a boolean property
func Bool(name, remote string) Property {
	return Property{Name: name, Remote: remote, Kind: KindBool}
}

// Time declares a date/time property, rendered as RFC 3339
func Time(name, remote string) Property {
	return Property{Name: name, Remote: remote, Kind: KindTime}
}

// Ref declares a handle-typed property rendered as {key: value}
func Ref(name, remote, key string) Property {
	return Property{Name: name, Remote: remote, Kind: KindHandle, HandleKey: key}
}

// Always returns p with RenderAlways
func (p Property) Always() Property {
	p.Rule = RenderAlways
	return p
}

// ReadOnly returns p with RenderNever
func (p Property) ReadOnly() Property {
	p.Rule = RenderNever
	return p
}

// Default returns p with the given default value
func (p Property) Default(v any) Property {
	p.DefaultValue = v
	return p
}

func (p Property) defaultValue() any {
	if fn, ok := p.DefaultValue.(func() any); ok {
		return fn()
	}
	return p.DefaultValue
}

func (p Property) coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch p.Kind {
	case KindString:
		return toString(v), nil
	case KindInt:
		return toInt64(v)
	case KindDecimal:
		return toDecimal(v)
	case KindBool:
		return toBool(v)
	case KindTime:
		return toTime(v)
	case KindHandle:
		h, _ := HandleFromWire(v)
		return h, nil
	default:
		return v, nil
	}
}

func (p Property) wire(v any) any {
	if v == nil {
		return nil
	}
	switch p.Kind {
	case KindHandle:
		h, ok := v.(Handle)
		if !ok {
			return nil
		}
		if ref := h.Ref(p.HandleKey); ref != nil {
			return ref
		}
		return nil
	case KindTime:
		t, ok := v.(time.Time)
		if !ok || t.IsZero() {
			return nil
		}
		return t.Format(time.RFC3339)
	default:
		return v
	}
}

// Schema is the declarative property table of an entity type. Declaration
// order is the wire order for create and update calls.
type Schema struct {
	props  []Property
	byName map[string]int
	remote map[string]int
}

// NewSchema builds a schema from property declarations
func NewSchema(props ...Property) *Schema {
	s := &Schema{
		props:  props,
		byName: make(map[string]int, len(props)),
		remote: make(map[string]int, len(props)),
	}
	for i, p := range props {
		s.byName[p.Name] = i
		s.remote[p.Remote] = i
	}
	return s
}

// Properties returns the declared properties in order
func (s *Schema) Properties() []Property {
	out := make([]Property, len(s.props))
	copy(out, s.props)
	return out
}

// Lookup finds a property by local name
func (s *Schema) Lookup(name string) (Property, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Property{}, false
	}
	return s.props[i], true
}

// Has reports whether name is a declared property
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Defaults returns a fresh property map holding every default value
func (s *Schema) Defaults() map[string]any {
	values := make(map[string]any, len(s.props))
	for _, p := range s.props {
		values[p.Name] = p.defaultValue()
	}
	return values
}

// Render maps property values to the remote argument shape
func (s *Schema) Render(values map[string]any) Args {
	args := make(Args, 0, len(s.props))
	for _, p := range s.props {
		if p.Rule == RenderNever {
			continue
		}
		v := values[p.Name]
		if p.Rule == RenderOmitEmpty && isEmpty(v) {
			continue
		}
		w := p.wire(v)
		if p.Rule == RenderOmitEmpty && w == nil {
			continue
		}
		args = append(args, Arg{Key: p.Remote, Value: w})
	}
	return args
}

// Decode maps a remote record to property values. Unknown remote fields are
// ignored; values that cannot be coerced are a malformed response.
func (s *Schema) Decode(data map[string]any) (map[string]any, error) {
	values := make(map[string]any, len(data))
	for key, raw := range data {
		i, ok := s.remote[key]
		if !ok {
			continue
		}
		p := s.props[i]
		v, err := p.coerce(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrTransportFailure, key, err)
		}
		values[p.Name] = v
	}
	return values, nil
}
