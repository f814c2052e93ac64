package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/erp/economic/internal/domain/economic"
	"github.com/erp/economic/internal/infrastructure/config"
	"github.com/erp/economic/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Defaults for Config fields left at zero
const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxResponseSize = 10 << 20
)

// Client configuration errors
var (
	ErrMissingEndpoint = errors.New("rpc: endpoint is required")
	ErrInvalidEndpoint = errors.New("rpc: endpoint must be an absolute http(s) URL")
)

// Config holds the client connection settings
type Config struct {
	Endpoint        string
	Timeout         time.Duration
	MaxResponseSize int64
}

// FromConfig maps the application API section
func FromConfig(cfg config.APIConfig) Config {
	return Config{
		Endpoint:        cfg.Endpoint,
		Timeout:         cfg.Timeout,
		MaxResponseSize: cfg.MaxResponseSize,
	}
}

// Validate checks the endpoint and fills defaults
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrMissingEndpoint
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidEndpoint, c.Endpoint)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxResponseSize <= 0 {
		c.MaxResponseSize = DefaultMaxResponseSize
	}
	return nil
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the HTTP client. Its transport is used as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics records every dispatched operation
func WithMetrics(m *telemetry.CallMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client dispatches remote operations over HTTP.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *telemetry.CallMetrics
}

var _ economic.Transport = (*Client)(nil)

// NewClient creates a client for cfg.Endpoint
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Outcome classifies a dispatch error for metrics
func Outcome(err error) string {
	if errors.Is(err, economic.ErrNotFound) {
		return telemetry.OutcomeNotFound
	}
	return telemetry.Outcome(err)
}

// Dispatch sends call and decodes the reply. Faults become
// *economic.RemoteError; everything else that goes wrong is
// economic.ErrTransportFailure.
func (c *Client) Dispatch(ctx context.Context, call economic.Call) (reply *economic.Reply, err error) {
	ctx, span := telemetry.StartSpan(ctx, "economic "+call.Operation,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(string(telemetry.AttrOperation), call.Operation),
	)
	start := time.Now()
	defer func() {
		c.metrics.Record(ctx, call.Operation, time.Since(start), err)
		telemetry.RecordError(span, err)
		span.End()
	}()

	id := uuid.NewString()
	logger := c.logger.With(zap.String("operation", call.Operation), zap.String("request_id", id))

	resp, err := c.post(ctx, call, id)
	if err != nil {
		logger.Warn("remote call failed", zap.Error(err), zap.Duration("latency", time.Since(start)))
		return nil, err
	}
	if resp.body.Error != nil {
		logger.Debug("remote fault",
			zap.Int("code", resp.body.Error.Code),
			zap.String("message", resp.body.Error.Message),
		)
		return nil, resp.body.Error.Remote(call.Operation)
	}

	logger.Debug("remote call", zap.Duration("latency", time.Since(start)))
	return &economic.Reply{Data: resp.body.Result, Token: resp.token}, nil
}

type decodedResponse struct {
	body  Response
	token string
}

func (c *Client) post(ctx context.Context, call economic.Call, id string) (*decodedResponse, error) {
	params := call.Args
	if params == nil {
		params = economic.Args{}
	}
	payload, err := json.Marshal(Request{Version: Version, Method: call.Operation, Params: params, ID: id})
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", economic.ErrTransportFailure, call.Operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", economic.ErrTransportFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if call.Token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: call.Token})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", economic.ErrTransportFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", economic.ErrTransportFailure, err)
	}
	if int64(len(body)) > c.config.MaxResponseSize {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", economic.ErrTransportFailure, c.config.MaxResponseSize)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", economic.ErrTransportFailure, resp.StatusCode)
	}

	out := &decodedResponse{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&out.body); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", economic.ErrTransportFailure, err)
	}
	if out.body.ID != id {
		return nil, fmt.Errorf("%w: response id %q does not match request %q", economic.ErrTransportFailure, out.body.ID, id)
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookie {
			out.token = cookie.Value
		}
	}
	return out, nil
}
