package economic

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CurrentInvoiceLineType describes the remote CurrentInvoiceLine type
var CurrentInvoiceLineType = &EntityType{
	Name:     "CurrentInvoiceLine",
	Identity: "number",
	Schema: NewSchema(
		Int("number", "Number").Always().Default(int64(0)),
		Ref("invoiceHandle", "InvoiceHandle", "Id"),
		String("description", "Description"),
		Time("deliveryDate", "DeliveryDate").Always(),
		Ref("unitHandle", "UnitHandle", "Number"),
		Ref("productHandle", "ProductHandle", "Number"),
		Decimal("quantity", "Quantity"),
		Decimal("unitNetPrice", "UnitNetPrice"),
		Decimal("discountAsPercent", "DiscountAsPercent").Always().Default(decimal.Zero),
		Decimal("unitCostPrice", "UnitCostPrice").Always().Default(decimal.Zero),
		Decimal("totalNetAmount", "TotalNetAmount").Always().Default(decimal.Zero),
		Decimal("totalMargin", "TotalMargin").Always().Default(decimal.Zero),
		Decimal("marginAsPercent", "MarginAsPercent").Always().Default(decimal.Zero),
	),
}

// CurrentInvoiceLine is one line of a current invoice
type CurrentInvoiceLine struct {
	Entity
}

// NewCurrentInvoiceLine returns an unpersisted line without a session
func NewCurrentInvoiceLine(values Values) *CurrentInvoiceLine {
	l := &CurrentInvoiceLine{}
	l.init(CurrentInvoiceLineType, values)
	return l
}

func (l *CurrentInvoiceLine) InvoiceHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &l.Entity, "invoiceHandle")
}
func (l *CurrentInvoiceLine) SetInvoiceHandle(h Handle) { l.set("invoiceHandle", h) }

func (l *CurrentInvoiceLine) Description(ctx context.Context) (string, error) {
	return getString(ctx, &l.Entity, "description")
}
func (l *CurrentInvoiceLine) SetDescription(description string) { l.set("description", description) }

func (l *CurrentInvoiceLine) DeliveryDate(ctx context.Context) (time.Time, error) {
	return getTime(ctx, &l.Entity, "deliveryDate")
}
func (l *CurrentInvoiceLine) SetDeliveryDate(t time.Time) { l.set("deliveryDate", t) }

func (l *CurrentInvoiceLine) UnitHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &l.Entity, "unitHandle")
}
func (l *CurrentInvoiceLine) SetUnitHandle(h Handle) { l.set("unitHandle", h) }

func (l *CurrentInvoiceLine) ProductHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &l.Entity, "productHandle")
}
func (l *CurrentInvoiceLine) SetProductHandle(h Handle) { l.set("productHandle", h) }

func (l *CurrentInvoiceLine) Quantity(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &l.Entity, "quantity")
}
func (l *CurrentInvoiceLine) SetQuantity(q decimal.Decimal) { l.set("quantity", q) }

func (l *CurrentInvoiceLine) UnitNetPrice(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &l.Entity, "unitNetPrice")
}
func (l *CurrentInvoiceLine) SetUnitNetPrice(p decimal.Decimal) { l.set("unitNetPrice", p) }

func (l *CurrentInvoiceLine) DiscountAsPercent(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &l.Entity, "discountAsPercent")
}
func (l *CurrentInvoiceLine) SetDiscountAsPercent(p decimal.Decimal) { l.set("discountAsPercent", p) }

func (l *CurrentInvoiceLine) TotalNetAmount(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &l.Entity, "totalNetAmount")
}
func (l *CurrentInvoiceLine) SetTotalNetAmount(v decimal.Decimal) { l.set("totalNetAmount", v) }

// CurrentInvoiceLineProxy manages current invoice lines
type CurrentInvoiceLineProxy struct {
	*Proxy[*CurrentInvoiceLine]
}

func newCurrentInvoiceLineProxy(s *Session) *CurrentInvoiceLineProxy {
	return &CurrentInvoiceLineProxy{Proxy: NewProxy(s, CurrentInvoiceLineType, NewCurrentInvoiceLine)}
}
