package economic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Call is one remote operation as handed to a Transport
type Call struct {
	Operation string
	Args      Args
	// Token is the session token from Connect; empty for Connect itself
	Token string
}

// Reply is a transport's decoded result
type Reply struct {
	// Data is the operation result; nil when the operation returned nothing
	Data map[string]any
	// Token is set when the remote side issued a session token
	Token string
}

// Transport dispatches remote operations. Implementations map transport
// problems to ErrTransportFailure and missing records to ErrNotFound.
type Transport interface {
	Dispatch(ctx context.Context, call Call) (*Reply, error)
}

// Credentials authenticate a session against one agreement
type Credentials struct {
	AgreementNumber int64  `validate:"required,gt=0"`
	UserName        string `validate:"required"`
	Password        string `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that every credential field is set
func (c Credentials) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return nil
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithLogger sets the logger used for call tracing
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session owns the credentials, the authenticated connection and one proxy
// per entity type. It is safe for concurrent use; entities it returns are not.
type Session struct {
	credentials Credentials
	transport   Transport
	logger      *zap.Logger

	mu        sync.Mutex
	token     string
	connected bool

	proxyMu sync.Mutex
	proxies map[string]any
}

// NewSession validates the credentials and returns an unconnected session
func NewSession(creds Credentials, transport Transport, opts ...SessionOption) (*Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, ErrMissingTransport
	}
	s := &Session{
		credentials: creds,
		transport:   transport,
		logger:      zap.NewNop(),
		proxies:     make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.Int64("agreement_number", creds.AgreementNumber))
	return s, nil
}

// AgreementNumber returns the agreement the session authenticates against
func (s *Session) AgreementNumber() int64 {
	return s.credentials.AgreementNumber
}

// Connect authenticates and stores the session token. Calling it again
// replaces the token.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

func (s *Session) connectLocked(ctx context.Context) error {
	args := NewArgs(
		"agreementNumber", s.credentials.AgreementNumber,
		"userName", s.credentials.UserName,
		"password", s.credentials.Password,
	)
	reply, err := s.transport.Dispatch(ctx, Call{Operation: OperationConnect, Args: args})
	if err != nil {
		s.logger.Warn("connect failed", zap.Error(err))
		return err
	}
	if reply == nil || reply.Token == "" {
		return fmt.Errorf("%w: %s returned no session token", ErrTransportFailure, OperationConnect)
	}
	s.token = reply.Token
	s.connected = true
	s.logger.Debug("connected")
	return nil
}

// Connected reports whether a token has been obtained
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Token returns the current session token
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) ensureConnected(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		if err := s.connectLocked(ctx); err != nil {
			return "", err
		}
	}
	return s.token, nil
}

// Request dispatches operation with args, connecting first if needed.
// An operation that returns nothing yields an empty map.
func (s *Session) Request(ctx context.Context, operation string, args Args) (map[string]any, error) {
	token, err := s.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	reply, err := s.transport.Dispatch(ctx, Call{Operation: operation, Args: args, Token: token})
	if err != nil {
		s.logger.Debug("remote call failed",
			zap.String("operation", operation),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	s.logger.Debug("remote call",
		zap.String("operation", operation),
		zap.Duration("latency", time.Since(start)),
	)
	if reply == nil || reply.Data == nil {
		return map[string]any{}, nil
	}
	return reply.Data, nil
}

// sessionProxy returns the memoized proxy for a type, creating it on first use
func sessionProxy[P any](s *Session, key string, create func() P) P {
	s.proxyMu.Lock()
	defer s.proxyMu.Unlock()
	if p, ok := s.proxies[key].(P); ok {
		return p
	}
	p := create()
	s.proxies[key] = p
	return p
}

// Debtors returns the session's debtor proxy
func (s *Session) Debtors() *DebtorProxy {
	return sessionProxy(s, DebtorType.Name, func() *DebtorProxy { return newDebtorProxy(s) })
}

// DebtorContacts returns the session's debtor contact proxy
func (s *Session) DebtorContacts() *DebtorContactProxy {
	return sessionProxy(s, DebtorContactType.Name, func() *DebtorContactProxy { return newDebtorContactProxy(s) })
}

// CashBooks returns the session's cash book proxy
func (s *Session) CashBooks() *CashBookProxy {
	return sessionProxy(s, CashBookType.Name, func() *CashBookProxy { return newCashBookProxy(s) })
}

// CurrentInvoices returns the session's current invoice proxy
func (s *Session) CurrentInvoices() *CurrentInvoiceProxy {
	return sessionProxy(s, CurrentInvoiceType.Name, func() *CurrentInvoiceProxy { return newCurrentInvoiceProxy(s) })
}

// CurrentInvoiceLines returns the session's current invoice line proxy
func (s *Session) CurrentInvoiceLines() *CurrentInvoiceLineProxy {
	return sessionProxy(s, CurrentInvoiceLineType.Name, func() *CurrentInvoiceLineProxy { return newCurrentInvoiceLineProxy(s) })
}

// Invoices returns the session's invoice proxy
func (s *Session) Invoices() *InvoiceProxy {
	return sessionProxy(s, InvoiceType.Name, func() *InvoiceProxy { return newInvoiceProxy(s) })
}

// CreditorEntries returns the session's creditor entry proxy
func (s *Session) CreditorEntries() *CreditorEntryProxy {
	return sessionProxy(s, CreditorEntryType.Name, func() *CreditorEntryProxy { return newCreditorEntryProxy(s) })
}
