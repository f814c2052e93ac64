package economic

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CreditorEntryType describes the remote CreditorEntry type. Entries are
// identified by serial number and are read-only.
var CreditorEntryType = &EntityType{
	Name:     "CreditorEntry",
	Identity: "serialNumber",
	ReadOnly: true,
	Schema: NewSchema(
		Int("serialNumber", "SerialNumber"),
		Ref("accountHandle", "AccountHandle", "Number"),
		Ref("creditorHandle", "CreditorHandle", "Number"),
		Ref("currencyHandle", "CurrencyHandle", "Code"),
		Decimal("amount", "Amount"),
		Decimal("amountDefaultCurrency", "AmountDefaultCurrency"),
		Time("date", "Date"),
		Time("dueDate", "DueDate"),
		String("invoiceNumber", "InvoiceNumber"),
		String("text", "Text"),
		String("type", "Type"),
		Int("voucherNumber", "VoucherNumber"),
		Decimal("remainder", "Remainder"),
		Decimal("remainderDefaultCurrency", "RemainderDefaultCurrency"),
	),
}

// CreditorEntry is one posting on a creditor account
type CreditorEntry struct {
	Entity
}

// NewCreditorEntry returns an entry value without a session
func NewCreditorEntry(values Values) *CreditorEntry {
	e := &CreditorEntry{}
	e.init(CreditorEntryType, values)
	return e
}

// SerialNumber is the entry's identity and never triggers a load
func (e *CreditorEntry) SerialNumber() int64 {
	n, _ := e.values["serialNumber"].(int64)
	return n
}

func (e *CreditorEntry) CreditorHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &e.Entity, "creditorHandle")
}

func (e *CreditorEntry) Amount(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &e.Entity, "amount")
}

func (e *CreditorEntry) Remainder(ctx context.Context) (decimal.Decimal, error) {
	return getDecimal(ctx, &e.Entity, "remainder")
}

func (e *CreditorEntry) Date(ctx context.Context) (time.Time, error) {
	return getTime(ctx, &e.Entity, "date")
}

func (e *CreditorEntry) InvoiceNumber(ctx context.Context) (string, error) {
	return getString(ctx, &e.Entity, "invoiceNumber")
}

func (e *CreditorEntry) Text(ctx context.Context) (string, error) {
	return getString(ctx, &e.Entity, "text")
}

// EntryType is the remote posting kind (e.g. "CreditorInvoice")
func (e *CreditorEntry) EntryType(ctx context.Context) (string, error) {
	return getString(ctx, &e.Entity, "type")
}

func (e *CreditorEntry) VoucherNumber(ctx context.Context) (int64, error) {
	return getInt(ctx, &e.Entity, "voucherNumber")
}

// CreditorEntryProxy manages creditor entries
type CreditorEntryProxy struct {
	*Proxy[*CreditorEntry]
}

func newCreditorEntryProxy(s *Session) *CreditorEntryProxy {
	return &CreditorEntryProxy{Proxy: NewProxy(s, CreditorEntryType, NewCreditorEntry)}
}

// FindBySerialNumber loads the entry with the given serial number
func (p *CreditorEntryProxy) FindBySerialNumber(ctx context.Context, serial int64) (*CreditorEntry, error) {
	return p.Find(ctx, SerialNumberHandle(serial))
}

// FindByInvoiceNumber lists the serial numbers of entries posted for an invoice
func (p *CreditorEntryProxy) FindByInvoiceNumber(invoiceNumber string) *Action[int64] {
	return NewAction(p, "FindByInvoiceNumber",
		NewArgs("invoiceNumber", invoiceNumber),
		CreditorEntryType.Name+"Handle",
		Identities("SerialNumber"),
	)
}

// Match marks the given entries as settled against each other
func (p *CreditorEntryProxy) Match(ctx context.Context, serials ...int64) error {
	if len(serials) == 0 {
		return invalidState("%s match needs at least one entry", CreditorEntryType.Name)
	}
	handles := make([]any, len(serials))
	for i, serial := range serials {
		handles[i] = SerialNumberHandle(serial).Wire()
	}
	_, err := p.Session().Request(ctx, CreditorEntryType.Operation("MatchEntries"),
		NewArgs("entries", NewArgs(CreditorEntryType.Name+"Handle", handles)))
	return err
}
