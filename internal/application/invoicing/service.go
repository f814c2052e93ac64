// Package invoicing drafts, books and settles invoices through an
// e-conomic session.
package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/economic/internal/domain/economic"
	"github.com/erp/economic/internal/infrastructure/logger"
	"github.com/erp/economic/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInvalidDraft is returned for drafts that fail validation
var ErrInvalidDraft = errors.New("invoicing: invalid draft")

// Line is one invoice line of a Draft
type Line struct {
	Description   string `validate:"required"`
	ProductNumber int64  `validate:"gte=0"`
	Quantity      decimal.Decimal
	UnitNetPrice  decimal.Decimal
}

// Draft describes an invoice to create for an existing debtor
type Draft struct {
	DebtorNumber int64 `validate:"required,gt=0"`
	Date         time.Time
	DueDate      time.Time
	Heading      string
	Lines        []Line `validate:"required,min=1,dive"`

	// Book books the invoice after saving it
	Book bool
	// InvoiceNumber books under a fixed number; zero lets the remote side pick
	InvoiceNumber int64 `validate:"gte=0"`
}

// Result is the outcome of CreateInvoice. Invoice is nil unless the draft was booked.
type Result struct {
	Draft   *economic.CurrentInvoice
	Invoice *economic.Invoice
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the draft before any remote call is made
func (d Draft) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	for i, l := range d.Lines {
		if !l.Quantity.IsPositive() {
			return fmt.Errorf("%w: line %d quantity must be positive", ErrInvalidDraft, i+1)
		}
		if l.UnitNetPrice.IsNegative() {
			return fmt.Errorf("%w: line %d price must not be negative", ErrInvalidDraft, i+1)
		}
	}
	if d.InvoiceNumber != 0 && !d.Book {
		return fmt.Errorf("%w: invoice number given without booking", ErrInvalidDraft)
	}
	return nil
}

// Service creates invoices and looks up creditor entries
type Service struct {
	session *economic.Session
	logger  *zap.Logger
}

// NewService creates a Service dispatching through session
func NewService(session *economic.Session, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{session: session, logger: log}
}

// CreateInvoice resolves the debtor, saves a current invoice with the draft's
// lines and books it when requested.
func (s *Service) CreateInvoice(ctx context.Context, draft Draft) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoicing", "create_invoice")
	defer span.End()
	telemetry.SetAttributes(span,
		"debtor_number", draft.DebtorNumber,
		"lines", len(draft.Lines),
		"book", draft.Book,
	)
	log := s.logger.With(zap.Int64("debtor_number", draft.DebtorNumber))

	if err := draft.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	debtor, err := s.session.Debtors().FindByNumber(ctx, draft.DebtorNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("find debtor %d: %w", draft.DebtorNumber, err)
	}

	current, err := debtor.NewCurrentInvoice(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("build current invoice: %w", err)
	}
	if !draft.Date.IsZero() {
		current.SetDate(draft.Date)
	}
	if !draft.DueDate.IsZero() {
		current.SetDueDate(draft.DueDate)
	}
	if draft.Heading != "" {
		current.SetHeading(draft.Heading)
	}
	for _, l := range draft.Lines {
		line := current.NewLine(nil)
		line.SetDescription(l.Description)
		line.SetQuantity(l.Quantity)
		line.SetUnitNetPrice(l.UnitNetPrice)
		if l.ProductNumber != 0 {
			line.SetProductHandle(economic.NumberHandle(l.ProductNumber))
		}
	}

	if err := current.Save(ctx); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("save current invoice: %w", err)
	}
	log.Info("current invoice saved", zap.Int64("current_invoice_id", current.ID()))
	result := &Result{Draft: current}
	if !draft.Book {
		return result, nil
	}

	if draft.InvoiceNumber != 0 {
		result.Invoice, err = current.BookWithNumber(ctx, draft.InvoiceNumber)
	} else {
		result.Invoice, err = current.Book(ctx)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return result, fmt.Errorf("book current invoice %d: %w", current.ID(), err)
	}
	telemetry.SetAttributes(span, "invoice_number", result.Invoice.Number())
	log.Info("invoice booked", zap.Int64("invoice_number", result.Invoice.Number()))
	return result, nil
}

// OpenCreditorEntries loads the creditor entries posted for an invoice number
func (s *Service) OpenCreditorEntries(ctx context.Context, invoiceNumber string) ([]*economic.CreditorEntry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoicing", "open_creditor_entries")
	defer span.End()
	telemetry.SetAttributes(span, "invoice_number", invoiceNumber)

	serials, err := s.session.CreditorEntries().FindByInvoiceNumber(invoiceNumber).Call(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("find creditor entries for invoice %s: %w", invoiceNumber, err)
	}

	entries := make([]*economic.CreditorEntry, 0, len(serials))
	for _, serial := range serials {
		entry, err := s.session.CreditorEntries().FindBySerialNumber(ctx, serial)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("load creditor entry %d: %w", serial, err)
		}
		entries = append(entries, entry)
	}
	logger.L(ctx).Debug("creditor entries loaded",
		zap.String("invoice_number", invoiceNumber),
		zap.Int("count", len(entries)),
	)
	return entries, nil
}

// SettleInvoice matches every creditor entry posted for an invoice number.
// It returns the number of entries matched.
func (s *Service) SettleInvoice(ctx context.Context, invoiceNumber string) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoicing", "settle_invoice")
	defer span.End()

	serials, err := s.session.CreditorEntries().FindByInvoiceNumber(invoiceNumber).Call(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("find creditor entries for invoice %s: %w", invoiceNumber, err)
	}
	if len(serials) < 2 {
		return 0, nil
	}
	if err := s.session.CreditorEntries().Match(ctx, serials...); err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("match creditor entries for invoice %s: %w", invoiceNumber, err)
	}
	s.logger.Info("creditor entries matched",
		zap.String("invoice_number", invoiceNumber),
		zap.Int64s("serial_numbers", serials),
	)
	return len(serials), nil
}
