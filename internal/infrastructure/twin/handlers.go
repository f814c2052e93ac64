package twin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/economic/internal/domain/economic"
	"github.com/shopspring/decimal"
)

type verbHandler func(ctx context.Context, kind Kind, params Record) (map[string]any, error)

type operationHandler func(ctx context.Context, params Record) (map[string]any, error)

// VatRate is applied to the net amount when a current invoice is booked
var VatRate = decimal.RequireFromString("0.25")

func (s *Server) buildVerbs() map[string]verbHandler {
	return map[string]verbHandler{
		economic.VerbGetData:        s.getData,
		economic.VerbGetDataArray:   s.getDataArray,
		economic.VerbGetAll:         s.getAll,
		economic.VerbCreateFromData: s.createFromData,
		economic.VerbUpdateFromData: s.updateFromData,
		economic.VerbDelete:         s.delete,
		"FindByName":                s.findByName,
	}
}

func (s *Server) buildOperations() map[string]operationHandler {
	ops := make(map[string]operationHandler, 10)
	ops[economic.DebtorType.Operation("FindByCINumber")] = s.debtorFindByCINumber
	ops[economic.DebtorType.Operation("GetNextAvailableNumber")] = s.debtorNextAvailableNumber
	ops[economic.DebtorType.Operation("GetDebtorContacts")] = s.debtorContacts
	ops[economic.CashBookType.Operation("GetName")] = s.cashBookName
	ops[economic.CurrentInvoiceType.Operation("Book")] = s.book
	ops[economic.CurrentInvoiceType.Operation("BookWithNumber")] = s.book
	ops[economic.CurrentInvoiceType.Operation("FindByDateInterval")] = s.findByDateInterval(economic.CurrentInvoiceType.Name)
	ops[economic.InvoiceType.Operation("FindByDateInterval")] = s.findByDateInterval(economic.InvoiceType.Name)
	ops[economic.CreditorEntryType.Operation("FindByInvoiceNumber")] = s.creditorEntriesByInvoiceNumber
	ops[economic.CreditorEntryType.Operation("MatchEntries")] = s.matchEntries
	return ops
}

// collapse mirrors the remote API: no items is no value, one item is the
// bare item, more are a list.
func collapse(items []any) any {
	switch len(items) {
	case 0:
		return nil
	case 1:
		return items[0]
	default:
		return items
	}
}

// list accepts a collapsed value and returns it as a list
func list(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	default:
		return []any{val}
	}
}

func keyed(key string, items []any) map[string]any {
	v := collapse(items)
	if v == nil {
		return nil
	}
	return map[string]any{key: v}
}

func handleOf(kind Kind, r Record) map[string]any {
	return map[string]any{kind.Identity: r[kind.Identity]}
}

func handles(kind Kind, records []Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = handleOf(kind, r)
	}
	return out
}

// identity reads kind's identity field out of a handle structure
func identity(kind Kind, v any) (int64, error) {
	h, ok := v.(map[string]any)
	if !ok {
		return 0, invalidParams("%s handle expected, got %T", kind.Name, v)
	}
	id, ok := asInt(h[kind.Identity])
	if !ok || id == 0 {
		return 0, invalidParams("%s handle needs %s", kind.Name, kind.Identity)
	}
	return id, nil
}

func (s *Server) lookup(kind Kind, v any) (Record, error) {
	id, err := identity(kind, v)
	if err != nil {
		return nil, err
	}
	r, ok := s.store.Get(kind, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s %d", economic.ErrNotFound, kind.Name, id)
	}
	return r, nil
}

func (s *Server) getData(_ context.Context, kind Kind, params Record) (map[string]any, error) {
	r, err := s.lookup(kind, params["entityHandle"])
	if err != nil {
		return nil, err
	}
	return r, nil
}

// getDataArray skips handles without a record, so callers see fewer
// records than they asked for.
func (s *Server) getDataArray(_ context.Context, kind Kind, params Record) (map[string]any, error) {
	wrapper, ok := params["entityHandles"].(map[string]any)
	if !ok {
		return nil, invalidParams("entityHandles expected")
	}
	var records []any
	for _, h := range list(wrapper[kind.Name+"Handle"]) {
		r, err := s.lookup(kind, h)
		if err != nil {
			continue
		}
		records = append(records, map[string]any(r))
	}
	return keyed(kind.Name+"Data", records), nil
}

func (s *Server) getAll(_ context.Context, kind Kind, _ Record) (map[string]any, error) {
	return keyed(kind.Name+"Handle", handles(kind, s.store.All(kind))), nil
}

func (s *Server) createFromData(_ context.Context, kind Kind, params Record) (map[string]any, error) {
	if kind.ReadOnly {
		return nil, unknownOperation(kind.Name + economic.VerbCreateFromData)
	}
	data, ok := params["data"].(map[string]any)
	if !ok {
		return nil, invalidParams("data expected")
	}
	r := Record(data).clone()
	if h, ok := r["Handle"].(map[string]any); ok && r[kind.Identity] == nil {
		r[kind.Identity] = h[kind.Identity]
	}
	delete(r, "Handle")
	id, err := s.store.Insert(kind, r)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	return map[string]any{kind.Identity: id}, nil
}

func (s *Server) updateFromData(_ context.Context, kind Kind, params Record) (map[string]any, error) {
	if kind.ReadOnly {
		return nil, unknownOperation(kind.Name + economic.VerbUpdateFromData)
	}
	data, ok := params["data"].(map[string]any)
	if !ok {
		return nil, invalidParams("data expected")
	}
	ref, ok := data["Handle"]
	if !ok {
		ref = map[string]any{kind.Identity: data[kind.Identity]}
	}
	id, err := identity(kind, ref)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(kind, id, Record(data)); err != nil {
		return nil, err
	}
	return map[string]any{kind.Identity: id}, nil
}

func (s *Server) delete(_ context.Context, kind Kind, params Record) (map[string]any, error) {
	if kind.ReadOnly {
		return nil, unknownOperation(kind.Name + economic.VerbDelete)
	}
	id, err := identity(kind, params[economic.HandleArgument(kind.Name)])
	if err != nil {
		return nil, err
	}
	return nil, s.store.Delete(kind, id)
}

func (s *Server) findByName(_ context.Context, kind Kind, params Record) (map[string]any, error) {
	name, _ := params["name"].(string)
	matches := s.store.Where(kind, func(r Record) bool {
		return strings.EqualFold(fmt.Sprint(r["Name"]), name)
	})
	return keyed(kind.Name+"Handle", handles(kind, matches)), nil
}

func mustKind(name string) Kind {
	k, ok := KindOf(name)
	if !ok {
		panic("twin: unknown kind " + name)
	}
	return k
}

func (s *Server) debtorFindByCINumber(_ context.Context, params Record) (map[string]any, error) {
	kind := mustKind(economic.DebtorType.Name)
	ci := fmt.Sprint(params["ciNumber"])
	matches := s.store.Where(kind, func(r Record) bool {
		return fmt.Sprint(r["CINumber"]) == ci
	})
	return keyed(kind.Name+"Handle", handles(kind, matches)), nil
}

func (s *Server) debtorNextAvailableNumber(context.Context, Record) (map[string]any, error) {
	return map[string]any{economic.ResultValue: s.store.NextID(mustKind(economic.DebtorType.Name))}, nil
}

func (s *Server) debtorContacts(_ context.Context, params Record) (map[string]any, error) {
	debtor := mustKind(economic.DebtorType.Name)
	number, err := identity(debtor, params["debtorHandle"])
	if err != nil {
		return nil, err
	}
	contact := mustKind(economic.DebtorContactType.Name)
	matches := s.store.Where(contact, func(r Record) bool {
		n, ok := r.Ref("DebtorHandle", debtor.Identity)
		return ok && n == number
	})
	return keyed(contact.Name+"Handle", handles(contact, matches)), nil
}

func (s *Server) cashBookName(_ context.Context, params Record) (map[string]any, error) {
	r, err := s.lookup(mustKind(economic.CashBookType.Name), params["cashBookHandle"])
	if err != nil {
		return nil, err
	}
	return map[string]any{economic.ResultValue: r["Name"]}, nil
}

func parseDate(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *Server) findByDateInterval(kindName string) operationHandler {
	return func(_ context.Context, params Record) (map[string]any, error) {
		kind := mustKind(kindName)
		first, ok1 := parseDate(params["first"])
		last, ok2 := parseDate(params["last"])
		if !ok1 || !ok2 {
			return nil, invalidParams("first and last must be dates")
		}
		matches := s.store.Where(kind, func(r Record) bool {
			d, ok := parseDate(r["Date"])
			return ok && !d.Before(first) && !d.After(last)
		})
		return keyed(kind.Name+"Handle", handles(kind, matches)), nil
	}
}

func amount(v any) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(fmt.Sprint(v)))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// bookedFields are copied from a current invoice onto the booked invoice
var bookedFields = []string{
	"DebtorHandle", "DebtorName", "DebtorAddress", "DebtorPostalCode", "DebtorCity",
	"DebtorCountry", "AttentionHandle", "Date", "DueDate", "CurrencyHandle",
	"ExchangeRate", "IsVatIncluded", "Heading",
}

// book turns a current invoice and its lines into an invoice. Totals are
// recomputed from the lines.
func (s *Server) book(_ context.Context, params Record) (map[string]any, error) {
	current := mustKind(economic.CurrentInvoiceType.Name)
	invoice := mustKind(economic.InvoiceType.Name)
	line := mustKind(economic.CurrentInvoiceLineType.Name)

	draft, err := s.lookup(current, params["currentInvoiceHandle"])
	if err != nil {
		return nil, err
	}
	id, _ := asInt(draft[current.Identity])

	lines := s.store.Where(line, func(r Record) bool {
		n, ok := r.Ref("InvoiceHandle", current.Identity)
		return ok && n == id
	})
	net := decimal.Zero
	for _, l := range lines {
		net = net.Add(amount(l["Quantity"]).Mul(amount(l["UnitNetPrice"])))
	}
	vat := net.Mul(VatRate).Round(2)
	gross := net.Add(vat)

	booked := Record{}
	for _, f := range bookedFields {
		if v, ok := draft[f]; ok {
			booked[f] = v
		}
	}
	booked["NetAmount"] = net.StringFixed(2)
	booked["VatAmount"] = vat.StringFixed(2)
	booked["GrossAmount"] = gross.StringFixed(2)
	booked["Remainder"] = gross.StringFixed(2)
	if n, ok := params["number"]; ok {
		booked[invoice.Identity] = n
	}

	number, err := s.store.Insert(invoice, booked)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	numbers := make([]int64, 0, len(lines))
	for _, l := range lines {
		n, _ := asInt(l[line.Identity])
		numbers = append(numbers, n)
	}
	if err := s.store.DeleteAll(line, numbers...); err != nil {
		return nil, err
	}
	if err := s.store.Delete(current, id); err != nil {
		return nil, err
	}
	return map[string]any{invoice.Identity: number}, nil
}

func (s *Server) creditorEntriesByInvoiceNumber(_ context.Context, params Record) (map[string]any, error) {
	kind := mustKind(economic.CreditorEntryType.Name)
	number := fmt.Sprint(params["invoiceNumber"])
	matches := s.store.Where(kind, func(r Record) bool {
		return fmt.Sprint(r["InvoiceNumber"]) == number
	})
	return keyed(kind.Name+"Handle", handles(kind, matches)), nil
}

// matchEntries settles the given entries by clearing their remainders
func (s *Server) matchEntries(_ context.Context, params Record) (map[string]any, error) {
	kind := mustKind(economic.CreditorEntryType.Name)
	wrapper, ok := params["entries"].(map[string]any)
	if !ok {
		return nil, invalidParams("entries expected")
	}
	refs := list(wrapper[kind.Name+"Handle"])
	if len(refs) == 0 {
		return nil, invalidParams("no entries to match")
	}
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		r, err := s.lookup(kind, ref)
		if err != nil {
			return nil, err
		}
		id, _ := asInt(r[kind.Identity])
		ids = append(ids, id)
	}
	for _, id := range ids {
		if err := s.store.Update(kind, id, Record{"Remainder": "0.00", "RemainderDefaultCurrency": "0.00"}); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
