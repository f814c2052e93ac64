package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/economic/internal/domain/economic"
	"github.com/erp/economic/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{Endpoint: srv.URL + "/rpc"}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return c
}

func echo(w http.ResponseWriter, r *http.Request, result map[string]any, fault *Fault) {
	var req IncomingRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Response{Version: Version, Result: result, Error: fault, ID: req.ID})
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingEndpoint)

	for _, endpoint := range []string{"localhost:8089", "ftp://example.com/rpc", "http://"} {
		cfg := Config{Endpoint: endpoint}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidEndpoint, endpoint)
	}

	cfg = FromConfig(config.APIConfig{Endpoint: "https://api.example.com/rpc"})
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, int64(DefaultMaxResponseSize), cfg.MaxResponseSize)
}

func TestClient_Dispatch_Envelope(t *testing.T) {
	var body string
	var cookie *http.Cookie
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		cookie, _ = r.Cookie(SessionCookie)

		var req IncomingRequest
		assert.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, err := uuid.Parse(req.ID)
		assert.NoError(t, err)
		_ = json.NewEncoder(w).Encode(Response{
			Version: Version,
			Result:  map[string]any{"Number": 1001},
			ID:      req.ID,
		})
	})

	reply, err := c.Dispatch(context.Background(), economic.Call{
		Operation: "CurrentInvoiceBookWithNumber",
		Args:      economic.NewArgs("currentInvoiceHandle", economic.IDHandle(17).Wire(), "number", int64(1001)),
		Token:     "cookie",
	})
	require.NoError(t, err)

	assert.Contains(t, body, `"method":"CurrentInvoiceBookWithNumber"`)
	assert.Contains(t, body, `"params":{"currentInvoiceHandle":{"Id":17},"number":1001}`)
	require.NotNil(t, cookie)
	assert.Equal(t, "cookie", cookie.Value)
	assert.Equal(t, json.Number("1001"), reply.Data["Number"])
	assert.Empty(t, reply.Token)
}

func TestClient_Dispatch_CapturesSessionCookie(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, err := r.Cookie(SessionCookie)
		assert.ErrorIs(t, err, http.ErrNoCookie)
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "issued"})
		echo(w, r, nil, nil)
	})

	reply, err := c.Dispatch(context.Background(), economic.Call{
		Operation: economic.OperationConnect,
		Args:      economic.NewArgs("agreementNumber", int64(1), "userName", "api", "password", "x"),
	})
	require.NoError(t, err)
	assert.Equal(t, "issued", reply.Token)
	assert.Nil(t, reply.Data)
}

func TestClient_Dispatch_Errors(t *testing.T) {
	ctx := context.Background()
	call := economic.Call{Operation: "DebtorGetData", Args: economic.NewArgs("entityHandle", economic.NumberHandle(1).Wire())}

	testCases := []struct {
		name     string
		handler  http.HandlerFunc
		category error
	}{
		{
			name: "not found fault",
			handler: func(w http.ResponseWriter, r *http.Request) {
				echo(w, r, nil, &Fault{Code: CodeNotFound, Message: "Debtor 1"})
			},
			category: economic.ErrNotFound,
		},
		{
			name: "other fault",
			handler: func(w http.ResponseWriter, r *http.Request) {
				echo(w, r, nil, &Fault{Code: CodeUnauthorized, Message: "not connected"})
			},
			category: economic.ErrTransportFailure,
		},
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			category: economic.ErrTransportFailure,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<soap:Envelope/>"))
			},
			category: economic.ErrTransportFailure,
		},
		{
			name: "mismatched id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(Response{Version: Version, ID: "other"})
			},
			category: economic.ErrTransportFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, tc.handler)
			_, err := c.Dispatch(ctx, call)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.category)
		})
	}

	t.Run("remote error keeps the fault", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			echo(w, r, nil, &Fault{Code: CodeNotFound, Message: "Debtor 1"})
		})
		_, err := c.Dispatch(ctx, call)
		var remote *economic.RemoteError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, "DebtorGetData", remote.Operation)
		assert.Equal(t, CodeNotFound, remote.Code)
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c, err := NewClient(Config{Endpoint: srv.URL})
		require.NoError(t, err)
		_, err = c.Dispatch(ctx, call)
		assert.ErrorIs(t, err, economic.ErrTransportFailure)
	})

	t.Run("request cannot be built", func(t *testing.T) {
		c, err := NewClient(Config{Endpoint: "http://localhost:8089/rpc"})
		require.NoError(t, err)
		c.config.Endpoint = "http://bad host/rpc"
		_, err = c.Dispatch(ctx, call)
		assert.ErrorIs(t, err, economic.ErrTransportFailure)
		assert.Contains(t, err.Error(), "build request")
	})
}

func TestClient_Dispatch_ResponseLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		echo(w, r, map[string]any{"Name": strings.Repeat("x", 512)}, nil)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{Endpoint: srv.URL, MaxResponseSize: 128})
	require.NoError(t, err)
	_, err = c.Dispatch(context.Background(), economic.Call{Operation: "DebtorGetData"})
	assert.ErrorIs(t, err, economic.ErrTransportFailure)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestFaultFor(t *testing.T) {
	fault := &Fault{Code: CodeInvalidParams, Message: "bad"}
	assert.Same(t, fault, FaultFor(fault))
	assert.Equal(t, CodeNotFound, FaultFor(economic.ErrNotFound).Code)
	assert.Equal(t, CodeInternal, FaultFor(io.ErrUnexpectedEOF).Code)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "not_found", Outcome(&economic.RemoteError{Category: economic.ErrNotFound}))
	assert.Equal(t, "error", Outcome(economic.ErrTransportFailure))
	assert.Equal(t, "ok", Outcome(nil))
}
