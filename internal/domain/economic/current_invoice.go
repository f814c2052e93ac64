package economic

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CurrentInvoiceType describes the remote CurrentInvoice type. Current
// invoices are drafts; booking one turns it into an Invoice.
var CurrentInvoiceType = &EntityType{
	Name:     "CurrentInvoice",
	Identity: "id",
	Schema: NewSchema(
		Int("id", "Id").Always().Default(int64(0)),
		Ref("debtorHandle", "DebtorHandle", "Number"),
		String("debtorName", "DebtorName").Always(),
		String("debtorAddress", "DebtorAddress"),
		String("debtorPostalCode", "DebtorPostalCode"),
		String("debtorCity", "DebtorCity"),
		String("debtorCountry", "DebtorCountry"),
		Ref("attentionHandle", "AttentionHandle", "Id"),
		Time("date", "Date").Default(func() any { return time.Now() }),
		Ref("termOfPaymentHandle", "TermOfPaymentHandle", "Id"),
		Time("dueDate", "DueDate").Always(),
		Ref("currencyHandle", "CurrencyHandle", "Code"),
		Decimal("exchangeRate", "ExchangeRate").Always().Default(decimal.NewFromInt(100)),
		Bool("isVatIncluded", "IsVatIncluded").Always(),
		Ref("layoutHandle", "LayoutHandle", "Id"),
		Time("deliveryDate", "DeliveryDate").Always(),
		String("heading", "Heading"),
		Decimal("netAmount", "NetAmount").Always().Default(decimal.Zero),
		Decimal("vatAmount", "VatAmount").Always().Default(decimal.Zero),
		Decimal("grossAmount", "GrossAmount").Always().Default(decimal.Zero),
		Decimal("margin", "Margin").Always().Default(decimal.Zero),
		Decimal("marginAsPercent", "MarginAsPercent").Always().Default(decimal.Zero),
	),
}

// CurrentInvoice is an unbooked invoice. Lines added to it are saved after
// the invoice itself.
type CurrentInvoice struct {
	Entity

	debtor    cachedRef[*Debtor]
	attention cachedRef[*DebtorContact]
	lines     []*CurrentInvoiceLine
}

// NewCurrentInvoice returns an unpersisted current invoice without a session
func NewCurrentInvoice(values Values) *CurrentInvoice {
	c := &CurrentInvoice{}
	c.init(CurrentInvoiceType, values)
	return c
}

func (c *CurrentInvoice) DebtorHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &c.Entity, "debtorHandle")
}

// SetDebtorHandle assigns the debtor. A cached debtor is dropped only when h differs from it.
func (c *CurrentInvoice) SetDebtorHandle(h Handle) {
	c.debtor.invalidate(h)
	c.set("debtorHandle", h)
}

// SetDebtor assigns the debtor and caches it
func (c *CurrentInvoice) SetDebtor(d *Debtor) {
	h := d.Handle()
	c.SetDebtorHandle(h)
	c.debtor.store(h, d)
}

// Debtor resolves the debtor handle, fetching the debtor at most once per
// handle value. It returns nil when no debtor is assigned.
func (c *CurrentInvoice) Debtor(ctx context.Context) (*Debtor, error) {
	h, err := c.DebtorHandle(ctx)
	if err != nil || !h.Present() {
		return nil, err
	}
	if d, ok := c.debtor.lookup(h); ok {
		return d, nil
	}
	if c.Session() == nil {
		return nil, invalidState("%s has no session", CurrentInvoiceType.Name)
	}
	d, err := c.Session().Debtors().Find(ctx, h)
	if err != nil {
		return nil, err
	}
	c.debtor.store(h, d)
	return d, nil
}

func (c *CurrentInvoice) AttentionHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &c.Entity, "attentionHandle")
}

// SetAttentionHandle assigns the contact. A cached contact is dropped only when h differs from it.
func (c *CurrentInvoice) SetAttentionHandle(h Handle) {
	c.attention.invalidate(h)
	c.set("attentionHandle", h)
}

// SetAttention assigns the contact and caches it
func (c *CurrentInvoice) SetAttention(contact *DebtorContact) {
	h := contact.Handle()
	c.SetAttentionHandle(h)
	c.attention.store(h, contact)
}

// Attention resolves the attention handle the same way Debtor does
func (c *CurrentInvoice) Attention(ctx context.Context) (*DebtorContact, error) {
	h, err := c.AttentionHandle(ctx)
	if err != nil || !h.Present() {
		return nil, err
	}
	if contact, ok := c.attention.lookup(h); ok {
		return contact, nil
	}
	if c.Session() == nil {
		return nil, invalidState("%s has no session", CurrentInvoiceType.Name)
	}
	contact, err := c.Session().DebtorContacts().Find(ctx, h)
	if err != nil {
		return nil, err
	}
	c.attention.store(h, contact)
	return contact, nil
}

func (c *CurrentInvoice) DebtorName(ctx context.Context) (string, error) {
	return getString(ctx, &c.Entity, "debtorName")
}
func (c *CurrentInvoice) SetDebtorName(name string) { c.set("debtorName", name) }

func (c *CurrentInvoice) Date(ctx context.Context) (time.Time, error) {
	return getTime(ctx, &c.Entity, "date")
}
func (c *CurrentInvoice) SetDate(t time.Time) { c.set("date", t) }

func (c *CurrentInvoice) DueDate(ctx context.Context) (time.Time, error) {
	return getTime(ctx, &c.Entity, "dueDate")
}
func (c *CurrentInvoice) SetDueDate(t time.Time) { c.set("dueDate", t) }

func (c *CurrentInvoice) DeliveryDate(ctx context.Context) (time.Time, error) {
	return getTime(ctx, &c.Entity, "deliveryDate")
}
func (c *CurrentInvoice) SetDeliveryDate(t time.Time) { c.set("deliveryDate", t) }

func (c *CurrentInvoice) Heading(ctx context.Context) (string, error) {
	return getString(ctx, &c.Entity, "heading")
}
func (c *CurrentInvoice) SetHeading(heading string) { c.set("heading", heading) }

func (c *CurrentInvoice) ExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &c.Entity, "exchangeRate")
}
func (c *CurrentInvoice) SetExchangeRate(rate decimal.Decimal) { c.set("exchangeRate", rate) }

func (c *CurrentInvoice) IsVatIncluded(ctx context.Context) (bool, error) {
	return getBool(ctx, &c.Entity, "isVatIncluded")
}
func (c *CurrentInvoice) SetIsVatIncluded(included bool) { c.set("isVatIncluded", included) }

func (c *CurrentInvoice) CurrencyHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &c.Entity, "currencyHandle")
}
func (c *CurrentInvoice) SetCurrencyHandle(h Handle) { c.set("currencyHandle", h) }

func (c *CurrentInvoice) TermOfPaymentHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &c.Entity, "termOfPaymentHandle")
}
func (c *CurrentInvoice) SetTermOfPaymentHandle(h Handle) { c.set("termOfPaymentHandle", h) }

func (c *CurrentInvoice) LayoutHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &c.Entity, "layoutHandle")
}
func (c *CurrentInvoice) SetLayoutHandle(h Handle) { c.set("layoutHandle", h) }

func (c *CurrentInvoice) NetAmount(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &c.Entity, "netAmount")
}
func (c *CurrentInvoice) SetNetAmount(v decimal.Decimal) { c.set("netAmount", v) }

func (c *CurrentInvoice) VatAmount(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &c.Entity, "vatAmount")
}
func (c *CurrentInvoice) SetVatAmount(v decimal.Decimal) { c.set("vatAmount", v) }

func (c *CurrentInvoice) GrossAmount(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &c.Entity, "grossAmount")
}
func (c *CurrentInvoice) SetGrossAmount(v decimal.Decimal) { c.set("grossAmount", v) }

func (c *CurrentInvoice) Margin(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &c.Entity, "margin")
}
func (c *CurrentInvoice) SetMargin(v decimal.Decimal) { c.set("margin", v) }

func (c *CurrentInvoice) MarginAsPercent(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &c.Entity, "marginAsPercent")
}
func (c *CurrentInvoice) SetMarginAsPercent(v decimal.Decimal) { c.set("marginAsPercent", v) }

// NewLine builds a line attached to the invoice. It is saved with the invoice.
func (c *CurrentInvoice) NewLine(values Values) *CurrentInvoiceLine {
	line := NewCurrentInvoiceLine(values)
	c.AddLine(line)
	return line
}

// AddLine attaches an existing line to the invoice
func (c *CurrentInvoice) AddLine(line *CurrentInvoiceLine) {
	line.SetSession(c.Session())
	c.lines = append(c.lines, line)
}

// Lines returns the lines attached to the invoice
func (c *CurrentInvoice) Lines() []*CurrentInvoiceLine {
	return append([]*CurrentInvoiceLine(nil), c.lines...)
}

// Save saves the invoice, then each attached line with the invoice's new handle
func (c *CurrentInvoice) Save(ctx context.Context) error {
	if err := c.Entity.Save(ctx); err != nil {
		return err
	}
	h := c.Handle()
	for i, line := range c.lines {
		line.SetSession(c.Session())
		line.SetInvoiceHandle(h)
		if err := line.Save(ctx); err != nil {
			return fmt.Errorf("save %s line %d: %w", CurrentInvoiceType.Name, i+1, err)
		}
	}
	return nil
}

// Book books the invoice under the next free invoice number and returns the
// resulting invoice.
func (c *CurrentInvoice) Book(ctx context.Context) (*Invoice, error) {
	return c.book(ctx, "Book", nil)
}

// BookWithNumber books the invoice under the given invoice number
func (c *CurrentInvoice) BookWithNumber(ctx context.Context, number int64) (*Invoice, error) {
	return c.book(ctx, "BookWithNumber", NewArgs("number", number))
}

func (c *CurrentInvoice) book(ctx context.Context, verb string, extra Args) (*Invoice, error) {
	if !c.Persisted() {
		return nil, invalidState("%s must be saved before booking", CurrentInvoiceType.Name)
	}
	if c.Session() == nil {
		return nil, invalidState("%s has no session", CurrentInvoiceType.Name)
	}
	h := c.Handle()
	if !h.Present() {
		return nil, invalidState("%s has no handle", CurrentInvoiceType.Name)
	}
	op := CurrentInvoiceType.Operation(verb)
	args := append(NewArgs("currentInvoiceHandle", h.Wire()), extra...)
	data, err := c.Session().Request(ctx, op, args)
	if err != nil {
		return nil, err
	}
	invoiceHandle, ok := HandleFromWire(data)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned no invoice handle", ErrTransportFailure, op)
	}
	// the draft no longer exists remotely
	c.persisted = false
	c.partial = true
	return c.Session().Invoices().Find(ctx, invoiceHandle)
}

// CurrentInvoiceProxy manages current invoices
type CurrentInvoiceProxy struct {
	*Proxy[*CurrentInvoice]
}

func newCurrentInvoiceProxy(s *Session) *CurrentInvoiceProxy {
	return &CurrentInvoiceProxy{Proxy: NewProxy(s, CurrentInvoiceType, NewCurrentInvoice)}
}

// FindByDateInterval lists current invoices dated between first and last
func (p *CurrentInvoiceProxy) FindByDateInterval(first, last time.Time) *Action[*CurrentInvoice] {
	return NewAction(p, "FindByDateInterval",
		NewArgs("first", first.Format(time.RFC3339), "last", last.Format(time.RFC3339)),
		CurrentInvoiceType.Name+"Handle", p.Stub)
}
