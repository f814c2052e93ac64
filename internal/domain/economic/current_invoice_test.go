package economic

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCurrentInvoice_Defaults(t *testing.T) {
	ctx := context.Background()
	before := time.Now()
	inv := NewCurrentInvoice(nil)

	date, err := inv.Date(ctx)
	require.NoError(t, err)
	assert.False(t, date.Before(before))

	rate, err := inv.ExchangeRate(ctx)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(100)))

	net, err := inv.NetAmount(ctx)
	require.NoError(t, err)
	assert.True(t, net.IsZero())
	assert.False(t, inv.Handle().Present())
}

func TestCurrentInvoice_DebtorCache(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves the debtor once per handle", func(t *testing.T) {
		s, transport := newTestSession(t)
		transport.expect("DebtorGetData", mock.Anything, map[string]any{"Number": float64(42), "Name": "Bob"})
		inv := s.CurrentInvoices().Build(nil)
		inv.SetDebtorHandle(NumberHandle(42))

		first, err := inv.Debtor(ctx)
		require.NoError(t, err)
		second, err := inv.Debtor(ctx)
		require.NoError(t, err)

		assert.Same(t, first, second)
		transport.AssertNumberOfCalls(t, "DebtorGetData", 1)
	})

	t.Run("assigning an equal handle keeps the cached debtor", func(t *testing.T) {
		s, transport := newTestSession(t)
		d := s.Debtors().Build(Values{"number": 42})
		inv := s.CurrentInvoices().Build(nil)
		inv.SetDebtor(d)

		inv.SetDebtorHandle(NumberHandle(42))
		got, err := inv.Debtor(ctx)
		require.NoError(t, err)
		assert.Same(t, d, got)
		assert.Empty(t, transport.calls)
	})

	t.Run("assigning a different handle drops it", func(t *testing.T) {
		s, transport := newTestSession(t)
		transport.expect("DebtorGetData", mock.Anything, map[string]any{"Number": float64(43), "Name": "Alice"})
		d := s.Debtors().Build(Values{"number": 42})
		inv := s.CurrentInvoices().Build(nil)
		inv.SetDebtor(d)

		inv.SetDebtorHandle(NumberHandle(43))
		got, err := inv.Debtor(ctx)
		require.NoError(t, err)
		assert.NotSame(t, d, got)
		assert.Equal(t, int64(43), got.Number())
	})

	t.Run("no debtor assigned", func(t *testing.T) {
		inv := NewCurrentInvoice(nil)
		got, err := inv.Debtor(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestCurrentInvoice_AttentionCache(t *testing.T) {
	ctx := context.Background()
	s, transport := newTestSession(t)
	contact := s.DebtorContacts().Build(Values{"id": 9, "name": "Carl"})
	inv := s.CurrentInvoices().Build(nil)

	inv.SetAttention(contact)
	got, err := inv.Attention(ctx)
	require.NoError(t, err)
	assert.Same(t, contact, got)
	assert.Empty(t, transport.calls)

	h, err := inv.AttentionHandle(ctx)
	require.NoError(t, err)
	assert.True(t, h.Equal(IDHandle(9)))
}

func TestCurrentInvoice_SaveWithLines(t *testing.T) {
	ctx := context.Background()
	s, transport := newTestSession(t)
	transport.expect("CurrentInvoiceCreateFromData", mock.Anything, map[string]any{"Id": float64(17)})
	transport.expect("CurrentInvoiceLineCreateFromData", mock.Anything, map[string]any{"Number": float64(1)}).Once()
	transport.expect("CurrentInvoiceLineCreateFromData", mock.Anything, map[string]any{"Number": float64(2)}).Once()

	inv := s.CurrentInvoices().Build(nil)
	inv.SetDebtorHandle(NumberHandle(42))
	inv.SetDebtorName("Bob")
	inv.SetCurrencyHandle(CodeHandle("DKK"))
	inv.SetIsVatIncluded(false)
	inv.SetDueDate(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))

	line := inv.NewLine(Values{"description": "Consulting"})
	line.SetQuantity(decimal.NewFromInt(12))
	line.SetUnitNetPrice(decimal.RequireFromString("19.95"))
	line.SetProductHandle(NumberHandle(101))
	inv.NewLine(Values{"description": "Travel"})

	require.NoError(t, inv.Save(ctx))

	assert.Equal(t, int64(17), inv.ID())
	assert.True(t, inv.Persisted())
	require.Len(t, inv.Lines(), 2)
	for _, l := range inv.Lines() {
		assert.True(t, l.Persisted())
		h, err := l.InvoiceHandle(ctx)
		require.NoError(t, err)
		assert.True(t, h.Equal(IDHandle(17)))
	}

	assert.Equal(t, []string{
		OperationConnect,
		"CurrentInvoiceCreateFromData",
		"CurrentInvoiceLineCreateFromData",
		"CurrentInvoiceLineCreateFromData",
	}, operations(transport))

	call, _ := transport.Last("CurrentInvoiceCreateFromData")
	data, _ := call.Args.Get("data")
	assert.Equal(t, []string{
		"Id", "DebtorHandle", "DebtorName", "Date", "DueDate", "CurrencyHandle", "ExchangeRate",
		"IsVatIncluded", "DeliveryDate", "NetAmount", "VatAmount", "GrossAmount", "Margin", "MarginAsPercent",
	}, data.(Args).Keys())
	debtorRef, _ := data.(Args).Get("DebtorHandle")
	assert.Equal(t, Args{{Key: "Number", Value: int64(42)}}, debtorRef)

	lineCall, _ := transport.Last("CurrentInvoiceLineCreateFromData")
	lineData, _ := lineCall.Args.Get("data")
	invoiceRef, _ := lineData.(Args).Get("InvoiceHandle")
	assert.Equal(t, Args{{Key: "Id", Value: int64(17)}}, invoiceRef)
}

func TestCurrentInvoice_Book(t *testing.T) {
	ctx := context.Background()

	t.Run("book", func(t *testing.T) {
		s, transport := newTestSession(t)
		transport.expect("CurrentInvoiceBook",
			map[string]any{"currentInvoiceHandle": map[string]any{"Id": int64(17)}},
			map[string]any{"Number": float64(1001)},
		)
		transport.expect("InvoiceGetData",
			map[string]any{"entityHandle": map[string]any{"Number": int64(1001)}},
			map[string]any{"Number": float64(1001), "DebtorName": "Bob", "GrossAmount": "250.00"},
		)
		inv := s.CurrentInvoices().FromHandle(IDHandle(17))

		booked, err := inv.Book(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1001), booked.Number())
		gross, err := booked.GrossAmount(ctx)
		require.NoError(t, err)
		assert.True(t, gross.Equal(decimal.NewFromInt(250)))
		assert.False(t, inv.Persisted())
		transport.AssertExpectations(t)
	})

	t.Run("book with number sends ordered arguments", func(t *testing.T) {
		s, transport := newTestSession(t)
		transport.expect("CurrentInvoiceBookWithNumber",
			map[string]any{"currentInvoiceHandle": map[string]any{"Id": int64(17)}, "number": int64(5000)},
			map[string]any{"Number": float64(5000)},
		)
		transport.expect("InvoiceGetData", mock.Anything, map[string]any{"Number": float64(5000)})
		inv := s.CurrentInvoices().FromHandle(IDHandle(17))

		booked, err := inv.BookWithNumber(ctx, 5000)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), booked.Number())

		call, _ := transport.Last("CurrentInvoiceBookWithNumber")
		assert.Equal(t, []string{"currentInvoiceHandle", "number"}, call.Args.Keys())
	})

	t.Run("unsaved invoices cannot be booked", func(t *testing.T) {
		s, _ := newTestSession(t)
		_, err := s.CurrentInvoices().Build(nil).Book(ctx)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestDebtor_NewCurrentInvoice(t *testing.T) {
	ctx := context.Background()
	s, transport := newTestSession(t)
	transport.expect("DebtorGetData", mock.Anything, map[string]any{
		"Number":              float64(42),
		"Name":                "Bob",
		"Address":             "Main Street 1",
		"City":                "Aarhus",
		"TermOfPaymentHandle": map[string]any{"Id": float64(1)},
	})
	d := s.Debtors().FromHandle(NumberHandle(42))

	inv, err := d.NewCurrentInvoice(ctx)
	require.NoError(t, err)

	name, _ := inv.DebtorName(ctx)
	assert.Equal(t, "Bob", name)
	terms, _ := inv.TermOfPaymentHandle(ctx)
	assert.True(t, terms.Equal(IDHandle(1)))
	got, err := inv.Debtor(ctx)
	require.NoError(t, err)
	assert.Same(t, d, got)
	assert.False(t, inv.Persisted())
}

func operations(m *MockTransport) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ops := make([]string, len(m.calls))
	for i, c := range m.calls {
		ops[i] = c.Operation
	}
	return ops
}
