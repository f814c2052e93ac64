package economic

import (
	"context"
	"fmt"
)

// Owner is the proxy an Action belongs to
type Owner interface {
	Session() *Session
	Type() *EntityType
}

// ItemMapper converts one result item into the Action's result type
type ItemMapper[R any] func(ctx context.Context, item any) (R, error)

// Action is one named remote operation with its arguments fixed at
// construction. Call may be invoked any number of times.
type Action[R any] struct {
	owner     Owner
	verb      string
	args      Args
	resultKey string
	mapItem   ItemMapper[R]
}

// NewAction binds verb and args to owner. resultKey names the result field
// holding the items; mapItem converts each item.
func NewAction[R any](owner Owner, verb string, args Args, resultKey string, mapItem ItemMapper[R]) *Action[R] {
	return &Action[R]{
		owner:     owner,
		verb:      Verb(verb),
		args:      append(Args(nil), args...),
		resultKey: resultKey,
		mapItem:   mapItem,
	}
}

// Operation returns the remote operation name
func (a *Action[R]) Operation() string {
	return a.owner.Type().Operation(a.verb)
}

// Args returns a copy of the bound arguments
func (a *Action[R]) Args() Args {
	return append(Args(nil), a.args...)
}

// Call dispatches the operation and maps the result into a list: no result
// gives an empty list, a bare structure a one-element list.
func (a *Action[R]) Call(ctx context.Context) ([]R, error) {
	s := a.owner.Session()
	if s == nil {
		return nil, invalidState("%s has no session", a.Operation())
	}
	data, err := s.Request(ctx, a.Operation(), a.args)
	if err != nil {
		return nil, err
	}
	items := Items(data, a.resultKey)
	out := make([]R, 0, len(items))
	for i, item := range items {
		r, err := a.mapItem(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("%s item %d: %w", a.Operation(), i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Identities maps handle items to one scalar identity field (e.g. "SerialNumber")
func Identities(field string) ItemMapper[int64] {
	return func(_ context.Context, item any) (int64, error) {
		h, _ := HandleFromWire(item)
		v, ok := h.Field(field)
		if !ok {
			return 0, fmt.Errorf("%w: result item has no %s", ErrTransportFailure, field)
		}
		n, err := toInt64(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrTransportFailure, err)
		}
		return n, nil
	}
}

// Scalars maps items to strings
func Scalars(_ context.Context, item any) (string, error) {
	return toString(item), nil
}

// ResultValue is the key under which a transport stores a scalar operation
// result (a name, a number) that has no structure of its own.
const ResultValue = "value"
