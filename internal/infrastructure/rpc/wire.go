// Package rpc carries e-conomic remote operations over HTTP as JSON
// envelopes. The Client implements economic.Transport; the wire types are
// shared with the local twin server.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erp/economic/internal/domain/economic"
)

// Version is the envelope protocol version
const Version = "2.0"

// SessionCookie carries the session token issued by Connect
const SessionCookie = "economic_session"

// Fault codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeUnknownMethod  = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeUnauthorized   = -32001
	CodeNotFound       = -32004
)

// Request is one remote operation on the wire. Params keep argument order.
type Request struct {
	Version string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  economic.Args `json:"params"`
	ID      string        `json:"id"`
}

// IncomingRequest is a Request as decoded by the server side
type IncomingRequest struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      string          `json:"id"`
}

// Response carries either a result or a fault
type Response struct {
	Version string         `json:"jsonrpc"`
	Result  map[string]any `json:"result,omitempty"`
	Error   *Fault         `json:"error,omitempty"`
	ID      string         `json:"id"`
}

// Fault is a remote error
type Fault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (f *Fault) Error() string {
	return fmt.Sprintf("rpc fault %d: %s", f.Code, f.Message)
}

// Remote converts f into the domain error for operation
func (f *Fault) Remote(operation string) *economic.RemoteError {
	category := economic.ErrTransportFailure
	if f.Code == CodeNotFound {
		category = economic.ErrNotFound
	}
	return &economic.RemoteError{
		Operation: operation,
		Code:      f.Code,
		Message:   f.Message,
		Category:  category,
	}
}

// FaultFor maps a server-side error to a fault. Errors that are already
// faults pass through; ErrNotFound becomes CodeNotFound.
func FaultFor(err error) *Fault {
	var fault *Fault
	switch {
	case errors.As(err, &fault):
		return fault
	case errors.Is(err, economic.ErrNotFound):
		return &Fault{Code: CodeNotFound, Message: err.Error()}
	default:
		return &Fault{Code: CodeInternal, Message: err.Error()}
	}
}
