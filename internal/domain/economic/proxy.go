package economic

import (
	"context"
	"fmt"
)

// Proxy is the per-type access point for building, finding and listing
// entities. It holds no state beyond its session and type and never caches
// the entities it returns.
type Proxy[T Record] struct {
	session *Session
	typ     *EntityType
	factory func(Values) T
}

// NewProxy creates a proxy for typ. factory constructs a fresh, unpersisted T.
func NewProxy[T Record](s *Session, typ *EntityType, factory func(Values) T) *Proxy[T] {
	return &Proxy[T]{session: s, typ: typ, factory: factory}
}

// Session returns the session the proxy dispatches through
func (p *Proxy[T]) Session() *Session {
	return p.session
}

// Type returns the managed entity type
func (p *Proxy[T]) Type() *EntityType {
	return p.typ
}

// Build constructs a new, unpersisted entity with the proxy's session attached
func (p *Proxy[T]) Build(values Values) T {
	t := p.factory(values)
	t.Base().SetSession(p.session)
	return t
}

// FromHandle constructs a partial entity known to exist remotely. Reading a
// non-exempt property loads it.
func (p *Proxy[T]) FromHandle(h Handle) T {
	t := p.Build(nil)
	e := t.Base()
	e.SetHandle(h)
	e.persisted = true
	e.partial = true
	return t
}

// Find loads the record identified by h
func (p *Proxy[T]) Find(ctx context.Context, h Handle) (T, error) {
	t := p.FromHandle(h)
	if err := t.Base().GetFullData(ctx); err != nil {
		var zero T
		return zero, err
	}
	return t, nil
}

// Handles lists the identities of every record of the type (GetAll)
func (p *Proxy[T]) Handles(ctx context.Context) ([]Handle, error) {
	op := p.typ.Operation(VerbGetAll)
	data, err := p.session.Request(ctx, op, nil)
	if err != nil {
		return nil, err
	}
	items := Items(data, p.typ.Name+"Handle")
	handles := make([]Handle, 0, len(items))
	for _, item := range items {
		h, ok := HandleFromWire(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s returned an empty handle", ErrTransportFailure, op)
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// All returns every record fully loaded, in the order the remote side lists them.
func (p *Proxy[T]) All(ctx context.Context) ([]T, error) {
	handles, err := p.Handles(ctx)
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return []T{}, nil
	}
	if p.typ.BulkFetch {
		return p.FetchArray(ctx, handles)
	}
	return p.FetchEach(ctx, handles)
}

// FetchEach loads each handle with its own GetData call
func (p *Proxy[T]) FetchEach(ctx context.Context, handles []Handle) ([]T, error) {
	out := make([]T, 0, len(handles))
	for _, h := range handles {
		t, err := p.Find(ctx, h)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// FetchArray loads all handles with one GetDataArray call. The whole batch
// fails with ErrNotFound when the remote side returns fewer or more records
// than requested.
func (p *Proxy[T]) FetchArray(ctx context.Context, handles []Handle) ([]T, error) {
	op := p.typ.Operation(VerbGetDataArray)
	wires := make([]any, len(handles))
	for i, h := range handles {
		wires[i] = h.Wire()
	}
	data, err := p.session.Request(ctx, op, NewArgs("entityHandles", NewArgs(p.typ.Name+"Handle", wires)))
	if err != nil {
		return nil, err
	}
	records := Items(data, p.typ.Name+"Data")
	if len(records) != len(handles) {
		return nil, fmt.Errorf("%w: %s returned %d of %d records", ErrNotFound, op, len(records), len(handles))
	}
	out := make([]T, 0, len(records))
	for i, record := range records {
		t, err := p.fromRecord(handles[i], record)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (p *Proxy[T]) fromRecord(h Handle, record any) (T, error) {
	var zero T
	m, ok := record.(map[string]any)
	if !ok {
		return zero, fmt.Errorf("%w: %s record is %T", ErrTransportFailure, p.typ.Name, record)
	}
	t := p.FromHandle(h)
	if err := t.Base().load(h, m, false); err != nil {
		return zero, err
	}
	return t, nil
}

// Stub maps a handle result item to a partial, persisted entity
func (p *Proxy[T]) Stub(_ context.Context, item any) (T, error) {
	h, ok := HandleFromWire(item)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s result item is not a handle", ErrTransportFailure, p.typ.Name)
	}
	return p.FromHandle(h), nil
}

// Loaded maps a data record result item to a fully loaded entity
func (p *Proxy[T]) Loaded(_ context.Context, item any) (T, error) {
	return p.fromRecord(Handle{}, item)
}

// Items normalizes the value stored under key into a list. The remote
// protocol collapses a one-item list into a bare structure and omits empty
// lists entirely.
func Items(data map[string]any, key string) []any {
	v, ok := data[key]
	if !ok || v == nil {
		return []any{}
	}
	list, ok := v.([]any)
	if !ok {
		return []any{v}
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		if item != nil {
			out = append(out, item)
		}
	}
	return out
}
