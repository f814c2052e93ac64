package economic

import (
	"context"
	"fmt"
)

// CashBookType describes the remote CashBook type. Its API exposes GetDataArray.
var CashBookType = &EntityType{
	Name:         "CashBook",
	Identity:     "number",
	RenderHandle: true,
	BulkFetch:    true,
	Schema: NewSchema(
		Int("number", "Number").Always(),
		String("name", "Name").Always(),
	),
}

// CashBook is a journal of unbooked entries
type CashBook struct {
	Entity
}

// NewCashBook returns an unpersisted cash book without a session
func NewCashBook(values Values) *CashBook {
	c := &CashBook{}
	c.init(CashBookType, values)
	return c
}

func (c *CashBook) Name(ctx context.Context) (string, error) {
	return getString(ctx, &c.Entity, "name")
}
func (c *CashBook) SetName(name string) { c.set("name", name) }

// CashBookProxy manages cash books
type CashBookProxy struct {
	*Proxy[*CashBook]
}

func newCashBookProxy(s *Session) *CashBookProxy {
	return &CashBookProxy{Proxy: NewProxy(s, CashBookType, NewCashBook)}
}

// FindByName lists cash books with the given name
func (p *CashBookProxy) FindByName(name string) *Action[*CashBook] {
	return NewAction(p, "FindByName", NewArgs("name", name), CashBookType.Name+"Handle", p.Stub)
}

// GetName looks up the name of a cash book. The result is an unpersisted,
// non-partial cash book carrying only number and name; reading it never loads.
func (p *CashBookProxy) GetName(ctx context.Context, number int64) (*CashBook, error) {
	op := CashBookType.Operation("GetName")
	data, err := p.Session().Request(ctx, op, NewArgs(HandleArgument(CashBookType.Name), NumberHandle(number).Wire()))
	if err != nil {
		return nil, err
	}
	name, ok := data[ResultValue]
	if !ok {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, CashBookType.Name, number)
	}
	cb := p.Build(Values{"number": number, "name": name})
	if err := cb.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s returned %v", ErrTransportFailure, op, err)
	}
	cb.SetPartial(false)
	return cb, nil
}
