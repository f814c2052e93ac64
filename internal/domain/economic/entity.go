package economic

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntityType describes one remote entity type: its remote name, property
// schema and which identity field its handle is built from.
type EntityType struct {
	// Name is the remote type name used as the operation prefix (e.g. "Debtor").
	Name string
	// Schema declares properties, defaults and render rules.
	Schema *Schema
	// Identity is the handle field captured on create: "id", "number" or "serialNumber".
	Identity string
	// RenderHandle prepends {"Handle": {...}} to create/update data, even
	// when the handle is still empty.
	RenderHandle bool
	// BulkFetch marks types whose API exposes GetDataArray.
	BulkFetch bool
	// ReadOnly types cannot be saved or destroyed.
	ReadOnly bool
}

// Operation returns the remote operation name for verb on this type
func (t *EntityType) Operation(verb string) string {
	return Operation(t.Name, verb)
}

// Record is implemented by every concrete entity through its embedded Entity.
type Record interface {
	Base() *Entity
}

// Values are initial property values keyed by property name.
// The keys "session" (*Session) and "handle" (Handle) are also accepted.
type Values map[string]any

// properties that never trigger a full load
var exemptProperties = map[string]bool{
	"id":     true,
	"number": true,
	"handle": true,
}

// Entity is the shared base of every domain object. Concrete types embed it
// and add typed accessors on top of Get and set.
type Entity struct {
	typ     *EntityType
	session *Session
	values  map[string]any
	// dirty holds properties assigned locally since the last load or save
	dirty map[string]bool

	handle    Handle
	handleSet bool

	persisted bool
	partial   bool

	// err is the first construction error; it fails every later remote call
	err error
}

func (e *Entity) init(typ *EntityType, values Values) {
	e.typ = typ
	e.values = typ.Schema.Defaults()
	e.dirty = make(map[string]bool)
	e.persisted = false
	e.partial = true
	for name, v := range values {
		if v == nil {
			continue
		}
		switch name {
		case "session":
			s, ok := v.(*Session)
			if !ok {
				e.fail(fmt.Errorf("economic: %s: session must be *Session, got %T", typ.Name, v))
				continue
			}
			e.session = s
		case "handle":
			h, ok := HandleFromWire(v)
			if !ok {
				e.fail(fmt.Errorf("economic: %s: handle %v has no identity field", typ.Name, v))
				continue
			}
			e.SetHandle(h)
		default:
			e.fail(e.assign(name, v))
		}
	}
}

func (e *Entity) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// Err returns the first error met while constructing the entity, if any
func (e *Entity) Err() error {
	return e.err
}

// Base returns the entity itself; it makes every concrete type a Record.
func (e *Entity) Base() *Entity {
	return e
}

// Type returns the entity type descriptor
func (e *Entity) Type() *EntityType {
	return e.typ
}

// Session returns the session used for remote calls, or nil
func (e *Entity) Session() *Session {
	return e.session
}

// SetSession assigns the session used for remote calls
func (e *Entity) SetSession(s *Session) {
	e.session = s
}

// Persisted reports whether a corresponding remote record exists
func (e *Entity) Persisted() bool {
	return e.persisted
}

// SetPersisted overrides the persisted flag
func (e *Entity) SetPersisted(persisted bool) {
	e.persisted = persisted
}

// Partial reports whether only identity properties are known
func (e *Entity) Partial() bool {
	return e.partial
}

// SetPartial overrides the partial flag
func (e *Entity) SetPartial(partial bool) {
	e.partial = partial
}

func (e *Entity) exempt(name string) bool {
	return exemptProperties[name] || name == e.typ.Identity
}

// ID returns the id property without triggering a load
func (e *Entity) ID() int64 {
	id, _ := e.values["id"].(int64)
	return id
}

// SetID assigns the id property
func (e *Entity) SetID(id int64) {
	e.set("id", id)
}

// Number returns the number property without triggering a load
func (e *Entity) Number() int64 {
	n, _ := e.values["number"].(int64)
	return n
}

// SetNumber assigns the number property
func (e *Entity) SetNumber(number int64) {
	e.set("number", number)
}

// Handle returns the entity's identity. It is memoized until the next save
// or identity assignment.
func (e *Entity) Handle() Handle {
	if e.handleSet {
		return e.handle
	}
	var h Handle
	if f, ok := lookupHandleField(e.typ.Identity); ok {
		if v := e.values[e.typ.Identity]; v != nil {
			_ = f.set(&h, v)
		}
	}
	if h.Present() {
		e.handle = h
		e.handleSet = true
	}
	return h
}

// SetHandle replaces the handle and copies its identity field into the properties
func (e *Entity) SetHandle(h Handle) {
	e.handle = h
	e.handleSet = h.Present()
	if v, ok := h.Field(e.typ.Identity); ok && e.typ.Schema.Has(e.typ.Identity) {
		e.values[e.typ.Identity] = v
	}
}

func (e *Entity) invalidateHandle() {
	e.handle = Handle{}
	e.handleSet = false
}

// EnsureLoaded performs a full load when the entity is partial and has a
// handle to load by. It is called by every non-exempt getter.
func (e *Entity) EnsureLoaded(ctx context.Context) error {
	if e.err != nil {
		return e.err
	}
	if !e.partial || !e.Handle().Present() {
		return nil
	}
	if e.session == nil {
		return invalidState("%s %s is partial and has no session to load from", e.typ.Name, e.Handle())
	}
	return e.fetch(ctx, true)
}

// Get returns a property value, loading the entity first when required
func (e *Entity) Get(ctx context.Context, name string) (any, error) {
	if !e.exempt(name) {
		if err := e.EnsureLoaded(ctx); err != nil {
			return nil, err
		}
	}
	return e.values[name], nil
}

// set assigns a declared property and marks it dirty
func (e *Entity) set(name string, v any) {
	e.values[name] = v
	e.dirty[name] = true
	if name == e.typ.Identity {
		e.invalidateHandle()
	}
}

// assign coerces v to the declared kind of name and sets it
func (e *Entity) assign(name string, v any) error {
	p, ok := e.typ.Schema.Lookup(name)
	if !ok {
		return nil
	}
	value, err := p.coerce(v)
	if err != nil {
		return fmt.Errorf("economic: %s.%s: %w", e.typ.Name, name, err)
	}
	e.set(name, value)
	return nil
}

// UpdateProperties sets the given values. Names that are not declared
// properties are ignored.
func (e *Entity) UpdateProperties(values Values) error {
	for name, v := range values {
		if err := e.assign(name, v); err != nil {
			return err
		}
	}
	return nil
}

// GetFullData fetches the complete record and replaces the property set.
func (e *Entity) GetFullData(ctx context.Context) error {
	return e.fetch(ctx, false)
}

func (e *Entity) fetch(ctx context.Context, keepDirty bool) error {
	if e.err != nil {
		return e.err
	}
	if e.session == nil {
		return invalidState("%s has no session", e.typ.Name)
	}
	h := e.Handle()
	if !h.Present() {
		return invalidState("%s has no handle to load", e.typ.Name)
	}
	data, err := e.session.Request(ctx, e.typ.Operation(VerbGetData), NewArgs("entityHandle", h.Wire()))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, e.typ.Name, h)
	}
	return e.load(h, data, keepDirty)
}

// load replaces the property set from a decoded remote record
func (e *Entity) load(h Handle, data map[string]any, keepDirty bool) error {
	decoded, err := e.typ.Schema.Decode(data)
	if err != nil {
		return err
	}
	values := e.typ.Schema.Defaults()
	for name, v := range decoded {
		values[name] = v
	}
	if keepDirty {
		for name := range e.dirty {
			values[name] = e.values[name]
		}
	} else {
		e.dirty = make(map[string]bool)
	}
	e.values = values

	if !h.Present() {
		h, _ = HandleFromWire(data["Handle"])
	}
	if h.Present() {
		e.SetHandle(h)
	}
	e.partial = false
	e.persisted = true
	return nil
}

func (e *Entity) render() Args {
	data := e.typ.Schema.Render(e.values)
	if e.typ.RenderHandle {
		data = append(Args{{Key: "Handle", Value: e.Handle().Wire()}}, data...)
	}
	return data
}

// Save creates the remote record when the entity is not persisted and
// updates it otherwise. The handle memo is rebuilt on next access.
func (e *Entity) Save(ctx context.Context) error {
	if e.typ.ReadOnly {
		return invalidState("%s is read-only", e.typ.Name)
	}
	if e.err != nil {
		return e.err
	}
	if e.session == nil {
		return invalidState("%s has no session", e.typ.Name)
	}
	if !e.persisted {
		return e.create(ctx)
	}
	if err := e.EnsureLoaded(ctx); err != nil {
		return err
	}
	return e.update(ctx)
}

func (e *Entity) create(ctx context.Context) error {
	result, err := e.session.Request(ctx, e.typ.Operation(VerbCreateFromData), NewArgs("data", e.render()))
	if err != nil {
		return err
	}
	if h, ok := HandleFromWire(result); ok {
		if v, ok := h.Field(e.typ.Identity); ok {
			e.values[e.typ.Identity] = v
		}
	}
	e.invalidateHandle()
	e.dirty = make(map[string]bool)
	e.persisted = true
	e.partial = false
	return nil
}

func (e *Entity) update(ctx context.Context) error {
	if _, err := e.session.Request(ctx, e.typ.Operation(VerbUpdateFromData), NewArgs("data", e.render())); err != nil {
		return err
	}
	e.invalidateHandle()
	e.dirty = make(map[string]bool)
	e.partial = false
	return nil
}

// Destroy deletes the remote record and returns the raw result
func (e *Entity) Destroy(ctx context.Context) (map[string]any, error) {
	if e.typ.ReadOnly {
		return nil, invalidState("%s is read-only", e.typ.Name)
	}
	if !e.persisted {
		return nil, invalidState("%s is not persisted", e.typ.Name)
	}
	h := e.Handle()
	if !h.Present() {
		return nil, invalidState("%s has no handle", e.typ.Name)
	}
	if e.session == nil {
		return nil, invalidState("%s has no session", e.typ.Name)
	}
	result, err := e.session.Request(ctx, e.typ.Operation(VerbDelete), NewArgs(HandleArgument(e.typ.Name), h.Wire()))
	if err != nil {
		return nil, err
	}
	e.persisted = false
	e.partial = true
	return result, nil
}

// Equal reports whether other is the same remote record: same remote type
// and equal, present handles.
func (e *Entity) Equal(other Record) bool {
	if other == nil {
		return false
	}
	o := other.Base()
	if o == nil || e.typ == nil || o.typ == nil || e.typ.Name != o.typ.Name {
		return false
	}
	return e.Handle().Equal(o.Handle())
}

func get[T any](ctx context.Context, e *Entity, name string) (T, error) {
	var zero T
	v, err := e.Get(ctx, name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return t, nil
}

func getString(ctx context.Context, e *Entity, name string) (string, error) {
	return get[string](ctx, e, name)
}

func getInt(ctx context.Context, e *Entity, name string) (int64, error) {
	return get[int64](ctx, e, name)
}

func getDecimal(ctx context.Context, e *Entity, name string) (decimal.Decimal, error) {
	return get[decimal.Decimal](ctx, e, name)
}

func getBool(ctx context.Context, e *Entity, name string) (bool, error) {
	return get[bool](ctx, e, name)
}

func getTime(ctx context.Context, e *Entity, name string) (time.Time, error) {
	return get[time.Time](ctx, e, name)
}

func getHandle(ctx context.Context, e *Entity, name string) (Handle, error) {
	return get[Handle](ctx, e, name)
}
