package economic

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceType describes the remote Invoice type. Booked invoices are read-only.
var InvoiceType = &EntityType{
	Name:     "Invoice",
	Identity: "number",
	ReadOnly: true,
	Schema: NewSchema(
		Int("number", "Number"),
		Ref("debtorHandle", "DebtorHandle", "Number"),
		String("debtorName", "DebtorName"),
		String("debtorAddress", "DebtorAddress"),
		String("debtorPostalCode", "DebtorPostalCode"),
		String("debtorCity", "DebtorCity"),
		String("debtorCountry", "DebtorCountry"),
		Ref("attentionHandle", "AttentionHandle", "Id"),
		Time("date", "Date"),
		Time("dueDate", "DueDate"),
		Ref("currencyHandle", "CurrencyHandle", "Code"),
		Decimal("exchangeRate", "ExchangeRate"),
		Bool("isVatIncluded", "IsVatIncluded"),
		String("heading", "Heading"),
		Decimal("netAmount", "NetAmount"),
		Decimal("vatAmount", "VatAmount"),
		Decimal("grossAmount", "GrossAmount"),
		Decimal("remainder", "Remainder"),
	),
}

// Invoice is a booked invoice
type Invoice struct {
	Entity
}

// NewInvoice returns an invoice value without a session
func NewInvoice(values Values) *Invoice {
	i := &Invoice{}
	i.init(InvoiceType, values)
	return i
}

func (i *Invoice) DebtorHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &i.Entity, "debtorHandle")
}

func (i *Invoice) DebtorName(ctx context.Context) (string, error) {
	return getString(ctx, &i.Entity, "debtorName")
}

func (i *Invoice) Date(ctx context.Context) (time.Time, error) { return getTime(ctx, &i.Entity, "date") }

func (i *Invoice) DueDate(ctx context.Context) (time.Time, error) {
	return getTime(ctx, &i.Entity, "dueDate")
}

func (i *Invoice) Heading(ctx context.Context) (string, error) {
	return getString(ctx, &i.Entity, "heading")
}

func (i *Invoice) NetAmount(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &i.Entity, "netAmount")
}

func (i *Invoice) VatAmount(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &i.Entity, "vatAmount")
}

func (i *Invoice) GrossAmount(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &i.Entity, "grossAmount")
}

// Remainder is the unpaid part of the gross amount
func (i *Invoice) Remainder(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &i.Entity, "remainder")
}

// InvoiceProxy manages booked invoices
type InvoiceProxy struct {
	*Proxy[*Invoice]
}

func newInvoiceProxy(s *Session) *InvoiceProxy {
	return &InvoiceProxy{Proxy: NewProxy(s, InvoiceType, NewInvoice)}
}

// FindByNumber loads the invoice with the given number
func (p *InvoiceProxy) FindByNumber(ctx context.Context, number int64) (*Invoice, error) {
	return p.Find(ctx, NumberHandle(number))
}

// FindByDateInterval lists invoices dated between first and last. The
// remote operation is positional, so first precedes last on the wire.
func (p *InvoiceProxy) FindByDateInterval(first, last time.Time) *Action[*Invoice] {
	return NewAction(p, "FindByDateInterval",
		NewArgs("first", first.Format(time.RFC3339), "last", last.Format(time.RFC3339)),
		InvoiceType.Name+"Handle", p.Stub)
}
