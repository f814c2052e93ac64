// Package twin is an in-memory stand-in for the e-conomic API. It speaks the
// rpc package's envelope, keeps state per entity type and mimics the remote
// quirks the client depends on, such as collapsing one-item lists.
package twin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/erp/economic/internal/domain/economic"
	"github.com/erp/economic/internal/infrastructure/logger"
	"github.com/erp/economic/internal/infrastructure/rpc"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Paths served by the twin
const (
	PathRPC   = "/rpc"
	PathState = "/admin/state"
	PathReset = "/admin/reset"
	PathReady = "/health"
)

const maxRequestSize = 4 << 20

// Config configures a twin server
type Config struct {
	Credentials economic.Credentials
	ServiceName string
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore replaces the server's store
func WithStore(store *Store) Option {
	return func(s *Server) {
		if store != nil {
			s.store = store
		}
	}
}

// Server answers remote operations from an in-memory Store.
type Server struct {
	config Config
	store  *Store
	logger *zap.Logger
	engine *gin.Engine

	verbs      map[string]verbHandler
	operations map[string]operationHandler

	mu       sync.Mutex
	sessions map[string]time.Time
	calls    map[string]int
}

// New creates a server. Credentials are required for Connect.
func New(cfg Config, opts ...Option) (*Server, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "economic-twin"
	}
	s := &Server{
		config:   cfg,
		store:    NewStore(),
		logger:   zap.NewNop(),
		sessions: make(map[string]time.Time),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.verbs = s.buildVerbs()
	s.operations = s.buildOperations()
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(otelgin.Middleware(s.config.ServiceName))
	r.Use(logger.GinMiddleware(s.logger))
	r.Use(logger.Recovery(s.logger))

	r.POST(PathRPC, s.handleRPC)
	r.GET(PathState, s.handleSnapshot)
	r.POST(PathState, s.handleLoadState)
	r.POST(PathReset, s.handleReset)
	r.GET(PathReady, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store returns the backing store
func (s *Server) Store() *Store {
	return s.store
}

// Calls returns how often operation has been dispatched
func (s *Server) Calls(operation string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[operation]
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("twin listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("twin: shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleRPC(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestSize))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	var req rpc.IncomingRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.reply(c, "", nil, &rpc.Fault{Code: rpc.CodeParseError, Message: err.Error()})
		return
	}
	if req.Version != rpc.Version || req.Method == "" {
		s.reply(c, req.ID, nil, &rpc.Fault{Code: rpc.CodeInvalidRequest, Message: "jsonrpc 2.0 request with a method expected"})
		return
	}
	c.Set(logger.GinOperationKey, req.Method)

	params, err := decodeParams(req.Params)
	if err != nil {
		s.reply(c, req.ID, nil, &rpc.Fault{Code: rpc.CodeInvalidParams, Message: err.Error()})
		return
	}

	s.mu.Lock()
	s.calls[req.Method]++
	s.mu.Unlock()

	if req.Method == economic.OperationConnect {
		token, err := s.connect(params)
		if err != nil {
			s.reply(c, req.ID, nil, rpc.FaultFor(err))
			return
		}
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(rpc.SessionCookie, token, 0, "/", "", false, true)
		s.reply(c, req.ID, nil, nil)
		return
	}

	token, _ := c.Cookie(rpc.SessionCookie)
	if !s.authenticated(token) {
		s.reply(c, req.ID, nil, &rpc.Fault{Code: rpc.CodeUnauthorized, Message: "not connected"})
		return
	}

	result, err := s.dispatch(c.Request.Context(), req.Method, params)
	if err != nil {
		logger.GetGinLogger(c).Debug("operation failed", zap.String("operation", req.Method), zap.Error(err))
		s.reply(c, req.ID, nil, rpc.FaultFor(err))
		return
	}
	s.reply(c, req.ID, result, nil)
}

func (s *Server) reply(c *gin.Context, id string, result map[string]any, fault *rpc.Fault) {
	if len(result) == 0 {
		result = nil
	}
	c.JSON(http.StatusOK, rpc.Response{Version: rpc.Version, Result: result, Error: fault, ID: id})
}

func decodeParams(raw json.RawMessage) (Record, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return Record{}, nil
	}
	var params Record
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("params must be an object: %w", err)
	}
	return normalizeRecord(params), nil
}

func (s *Server) connect(params Record) (string, error) {
	agreement, _ := asInt(params["agreementNumber"])
	user, _ := params["userName"].(string)
	password, _ := params["password"].(string)
	creds := s.config.Credentials
	if agreement != creds.AgreementNumber || user != creds.UserName || password != creds.Password {
		return "", &rpc.Fault{Code: rpc.CodeUnauthorized, Message: "invalid agreement number, user name or password"}
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = time.Now()
	s.mu.Unlock()
	s.logger.Debug("session opened", zap.Int64("agreement_number", agreement))
	return token, nil
}

func (s *Server) authenticated(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[token]
	return ok
}

// splitOperation resolves "CurrentInvoiceLineGetData" into its kind and verb
func splitOperation(operation string) (Kind, string, bool) {
	for _, k := range Kinds {
		if verb, ok := strings.CutPrefix(operation, k.Name); ok && verb != "" {
			return k, verb, true
		}
	}
	return Kind{}, "", false
}

func (s *Server) dispatch(ctx context.Context, operation string, params Record) (map[string]any, error) {
	if h, ok := s.operations[operation]; ok {
		return h(ctx, params)
	}
	kind, verb, ok := splitOperation(operation)
	if !ok {
		return nil, unknownOperation(operation)
	}
	h, ok := s.verbs[verb]
	if !ok {
		return nil, unknownOperation(operation)
	}
	return h(ctx, kind, params)
}

func unknownOperation(operation string) error {
	return &rpc.Fault{Code: rpc.CodeUnknownMethod, Message: fmt.Sprintf("unknown operation %s", operation)}
}

func invalidParams(format string, args ...any) error {
	return &rpc.Fault{Code: rpc.CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleLoadState(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestSize))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if err := s.store.LoadState(body); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReset(c *gin.Context) {
	s.store.Reset()
	s.mu.Lock()
	s.calls = make(map[string]int)
	s.mu.Unlock()
	c.Status(http.StatusNoContent)
}
