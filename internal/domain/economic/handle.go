package economic

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Handle is the immutable identity of a remote record. A zero field is absent.
type Handle struct {
	ID           int64
	ID1          int64
	ID2          int64
	Number       int64
	Code         string
	Name         string
	SerialNumber int64
	VatCode      string
}

type handleField struct {
	local   string
	wire    string
	get     func(Handle) any
	present func(Handle) bool
	set     func(*Handle, any) error
}

func intField(local, wire string, ptr func(*Handle) *int64) handleField {
	return handleField{
		local:   local,
		wire:    wire,
		get:     func(h Handle) any { return *ptr(&h) },
		present: func(h Handle) bool { return *ptr(&h) != 0 },
		set: func(h *Handle, v any) error {
			n, err := toInt64(v)
			if err != nil {
				return err
			}
			*ptr(h) = n
			return nil
		},
	}
}

func stringField(local, wire string, ptr func(*Handle) *string) handleField {
	return handleField{
		local:   local,
		wire:    wire,
		get:     func(h Handle) any { return *ptr(&h) },
		present: func(h Handle) bool { return strings.TrimSpace(*ptr(&h)) != "" },
		set: func(h *Handle, v any) error {
			*ptr(h) = toString(v)
			return nil
		},
	}
}

// handleFields is the fixed identity field table in wire order.
var handleFields = []handleField{
	intField("id", "Id", func(h *Handle) *int64 { return &h.ID }),
	intField("id1", "Id1", func(h *Handle) *int64 { return &h.ID1 }),
	intField("id2", "Id2", func(h *Handle) *int64 { return &h.ID2 }),
	intField("number", "Number", func(h *Handle) *int64 { return &h.Number }),
	stringField("code", "Code", func(h *Handle) *string { return &h.Code }),
	stringField("name", "Name", func(h *Handle) *string { return &h.Name }),
	intField("serialNumber", "SerialNumber", func(h *Handle) *int64 { return &h.SerialNumber }),
	stringField("vatCode", "VatCode", func(h *Handle) *string { return &h.VatCode }),
}

func lookupHandleField(name string) (handleField, bool) {
	for _, f := range handleFields {
		if f.local == name || f.wire == name {
			return f, true
		}
	}
	return handleField{}, false
}

// IDHandle returns a handle identified by id
func IDHandle(id int64) Handle { return Handle{ID: id} }

// NumberHandle returns a handle identified by number
func NumberHandle(number int64) Handle { return Handle{Number: number} }

// CodeHandle returns a handle identified by code
func CodeHandle(code string) Handle { return Handle{Code: code} }

// SerialNumberHandle returns a handle identified by serial number
func SerialNumberHandle(serial int64) Handle { return Handle{SerialNumber: serial} }

// BuildHandle constructs a handle from identity fields keyed by local
// (id, number, serialNumber, ...) or wire (Id, Number, ...) names.
// Unrecognized fields are rejected.
func BuildHandle(fields map[string]any) (Handle, error) {
	var h Handle
	for name, value := range fields {
		f, ok := lookupHandleField(name)
		if !ok {
			return Handle{}, fmt.Errorf("%w: %s", ErrUnknownHandleField, name)
		}
		if value == nil {
			continue
		}
		if err := f.set(&h, value); err != nil {
			return Handle{}, fmt.Errorf("economic: handle field %s: %w", name, err)
		}
	}
	return h, nil
}

// HandleFromWire decodes a remote handle structure. Unknown keys and
// unparseable values are skipped. The second result reports whether
// the decoded handle is present.
func HandleFromWire(v any) (Handle, bool) {
	var h Handle
	switch val := v.(type) {
	case Handle:
		h = val
	case map[string]any:
		for key, value := range val {
			if f, ok := lookupHandleField(key); ok && value != nil {
				_ = f.set(&h, value)
			}
		}
	case Args:
		return HandleFromWire(val.Map())
	}
	return h, h.Present()
}

// Present reports whether at least one identity field is set
func (h Handle) Present() bool {
	for _, f := range handleFields {
		if f.present(h) {
			return true
		}
	}
	return false
}

// Equal reports whether both handles carry the same present fields with the
// same values. Absent handles never compare equal.
func (h Handle) Equal(other Handle) bool {
	if !h.Present() {
		return false
	}
	for _, f := range handleFields {
		if f.present(h) != f.present(other) {
			return false
		}
		if f.present(h) && f.get(h) != f.get(other) {
			return false
		}
	}
	return true
}

// Field returns the value of a present field by wire or local name
func (h Handle) Field(name string) (any, bool) {
	f, ok := lookupHandleField(name)
	if !ok || !f.present(h) {
		return nil, false
	}
	return f.get(h), true
}

// Wire renders the present fields in the shape the remote call expects
func (h Handle) Wire() Args {
	args := make(Args, 0, 2)
	for _, f := range handleFields {
		if f.present(h) {
			args = append(args, Arg{Key: f.wire, Value: f.get(h)})
		}
	}
	return args
}

// Ref renders a single identity field as a nested structure, e.g. {"Number": 42}.
// With an empty key the first present field is used. It returns nil when
// the field is missing so the property renders as absent.
func (h Handle) Ref(key string) Args {
	if key == "" {
		wire := h.Wire()
		if len(wire) == 0 {
			return nil
		}
		return wire[:1]
	}
	if v, ok := h.Field(key); ok {
		f, _ := lookupHandleField(key)
		return Args{{Key: f.wire, Value: v}}
	}
	return nil
}

// MarshalJSON encodes the wire form
func (h Handle) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Wire())
}

func (h Handle) String() string {
	parts := make([]string, 0, 2)
	for _, arg := range h.Wire() {
		parts = append(parts, fmt.Sprintf("%s: %v", arg.Key, arg.Value))
	}
	return "Handle{" + strings.Join(parts, ", ") + "}"
}
