package economic

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// DebtorType describes the remote Debtor type
var DebtorType = &EntityType{
	Name:         "Debtor",
	Identity:     "number",
	RenderHandle: true,
	Schema: NewSchema(
		Int("number", "Number").Always(),
		Ref("debtorGroupHandle", "DebtorGroupHandle", "Number").Always(),
		String("name", "Name").Always(),
		String("vatZone", "VatZone").Always(),
		Ref("currencyHandle", "CurrencyHandle", "Code").Always(),
		Ref("priceGroupHandle", "PriceGroupHandle", "Number").Always(),
		Bool("isAccessible", "IsAccessible").Always(),
		String("ean", "Ean"),
		String("publicEntryNumber", "PublicEntryNumber"),
		String("email", "Email"),
		String("telephoneAndFaxNumber", "TelephoneAndFaxNumber"),
		String("website", "Website"),
		String("address", "Address"),
		String("postalCode", "PostalCode"),
		String("city", "City"),
		String("country", "Country"),
		Decimal("creditMaximum", "CreditMaximum"),
		String("vatNumber", "VatNumber"),
		String("county", "County"),
		String("ciNumber", "CINumber"),
		Ref("termOfPaymentHandle", "TermOfPaymentHandle", "Id").Always(),
		Ref("layoutHandle", "LayoutHandle", "Id").Always(),
		Ref("attentionHandle", "AttentionHandle", "Id"),
		Ref("ourReferenceHandle", "OurReferenceHandle", "Number"),
		Decimal("balance", "Balance").ReadOnly(),
	),
}

// Debtor is a customer account
type Debtor struct {
	Entity
}

// NewDebtor returns an unpersisted debtor without a session
func NewDebtor(values Values) *Debtor {
	d := &Debtor{}
	d.init(DebtorType, values)
	return d
}

func (d *Debtor) Name(ctx context.Context) (string, error) { return getString(ctx, &d.Entity, "name") }
func (d *Debtor) SetName(name string) { d.set("name", name) }

func (d *Debtor) VatZone(ctx context.Context) (string, error) {
	return getString(ctx, &d.Entity, "vatZone")
}
func (d *Debtor) SetVatZone(zone string) { d.set("vatZone", zone) }

func (d *Debtor) DebtorGroupHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &d.Entity, "debtorGroupHandle")
}
func (d *Debtor) SetDebtorGroupHandle(h Handle) { d.set("debtorGroupHandle", h) }

func (d *Debtor) CurrencyHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &d.Entity, "currencyHandle")
}
func (d *Debtor) SetCurrencyHandle(h Handle) { d.set("currencyHandle", h) }

func (d *Debtor) PriceGroupHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &d.Entity, "priceGroupHandle")
}
func (d *Debtor) SetPriceGroupHandle(h Handle) { d.set("priceGroupHandle", h) }

func (d *Debtor) TermOfPaymentHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &d.Entity, "termOfPaymentHandle")
}
func (d *Debtor) SetTermOfPaymentHandle(h Handle) { d.set("termOfPaymentHandle", h) }

func (d *Debtor) LayoutHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &d.Entity, "layoutHandle")
}
func (d *Debtor) SetLayoutHandle(h Handle) { d.set("layoutHandle", h) }

func (d *Debtor) IsAccessible(ctx context.Context) (bool, error) {
	return getBool(ctx, &d.Entity, "isAccessible")
}
func (d *Debtor) SetIsAccessible(accessible bool) { d.set("isAccessible", accessible) }

func (d *Debtor) Email(ctx context.Context) (string, error) { return getString(ctx, &d.Entity, "email") }
func (d *Debtor) SetEmail(email string) { d.set("email", email) }

func (d *Debtor) Address(ctx context.Context) (string, error) {
	return getString(ctx, &d.Entity, "address")
}
func (d *Debtor) SetAddress(address string) { d.set("address", address) }

func (d *Debtor) PostalCode(ctx context.Context) (string, error) {
	return getString(ctx, &d.Entity, "postalCode")
}
func (d *Debtor) SetPostalCode(code string) { d.set("postalCode", code) }

func (d *Debtor) City(ctx context.Context) (string, error) { return getString(ctx, &d.Entity, "city") }
func (d *Debtor) SetCity(city string) { d.set("city", city) }

func (d *Debtor) Country(ctx context.Context) (string, error) {
	return getString(ctx, &d.Entity, "country")
}
func (d *Debtor) SetCountry(country string) { d.set("country", country) }

func (d *Debtor) CINumber(ctx context.Context) (string, error) {
	return getString(ctx, &d.Entity, "ciNumber")
}
func (d *Debtor) SetCINumber(ci string) { d.set("ciNumber", ci) }

func (d *Debtor) CreditMaximum(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &d.Entity, "creditMaximum")
}
func (d *Debtor) SetCreditMaximum(max decimal.Decimal) { d.set("creditMaximum", max) }

// Balance is computed by the remote side and never sent back
func (d *Debtor) Balance(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &d.Entity, "balance")
}

// Contacts lists the debtor's contacts as partial entities
func (d *Debtor) Contacts() *Action[*DebtorContact] {
	s := d.Session()
	owner, contacts := newDebtorProxy(s), newDebtorContactProxy(s)
	if s != nil {
		owner, contacts = s.Debtors(), s.DebtorContacts()
	}
	return NewAction(owner, "GetDebtorContacts",
		NewArgs("debtorHandle", d.Handle().Wire()),
		DebtorContactType.Name+"Handle",
		contacts.Stub,
	)
}

// NewCurrentInvoice builds an unsaved current invoice for the debtor with
// name, address and payment terms copied from it.
func (d *Debtor) NewCurrentInvoice(ctx context.Context) (*CurrentInvoice, error) {
	if d.Session() == nil {
		return nil, invalidState("%s has no session", DebtorType.Name)
	}
	if err := d.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	inv := d.Session().CurrentInvoices().Build(nil)
	inv.SetDebtor(d)
	for from, to := range map[string]string{
		"name":                "debtorName",
		"address":             "debtorAddress",
		"postalCode":          "debtorPostalCode",
		"city":                "debtorCity",
		"country":             "debtorCountry",
		"termOfPaymentHandle": "termOfPaymentHandle",
		"layoutHandle":        "layoutHandle",
		"currencyHandle":      "currencyHandle",
	} {
		if v := d.values[from]; !isEmpty(v) {
			inv.set(to, v)
		}
	}
	return inv, nil
}

// DebtorProxy manages debtors
type DebtorProxy struct {
	*Proxy[*Debtor]
}

func newDebtorProxy(s *Session) *DebtorProxy {
	return &DebtorProxy{Proxy: NewProxy(s, DebtorType, NewDebtor)}
}

// FindByNumber loads the debtor with the given number
func (p *DebtorProxy) FindByNumber(ctx context.Context, number int64) (*Debtor, error) {
	return p.Find(ctx, NumberHandle(number))
}

// FindByCINumber lists debtors registered under a company identification number
func (p *DebtorProxy) FindByCINumber(ci string) *Action[*Debtor] {
	return NewAction(p, "FindByCINumber", NewArgs("ciNumber", ci), DebtorType.Name+"Handle", p.Stub)
}

// FindByName lists debtors with the given name
func (p *DebtorProxy) FindByName(name string) *Action[*Debtor] {
	return NewAction(p, "FindByName", NewArgs("name", name), DebtorType.Name+"Handle", p.Stub)
}

// NextAvailableNumber asks the remote side for an unused debtor number
func (p *DebtorProxy) NextAvailableNumber(ctx context.Context) (int64, error) {
	op := DebtorType.Operation("GetNextAvailableNumber")
	data, err := p.Session().Request(ctx, op, nil)
	if err != nil {
		return 0, err
	}
	n, err := toInt64(data[ResultValue])
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %s returned %v", ErrTransportFailure, op, data[ResultValue])
	}
	return n, nil
}
