package economic

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTransport is a testify mock of Transport. Each remote operation is
// mocked as a method of its own name taking the arguments as a plain map.
type MockTransport struct {
	mock.Mock

	mu    sync.Mutex
	calls []Call
}

func (m *MockTransport) Dispatch(ctx context.Context, call Call) (*Reply, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	args := m.MethodCalled(call.Operation, call.Args.Map())
	var reply *Reply
	if r := args.Get(0); r != nil {
		reply = r.(*Reply)
	}
	return reply, args.Error(1)
}

// Count returns how often operation was dispatched
func (m *MockTransport) Count(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Operation == operation {
			n++
		}
	}
	return n
}

// Last returns the most recent call to operation
func (m *MockTransport) Last(operation string) (Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Operation == operation {
			return m.calls[i], true
		}
	}
	return Call{}, false
}

func (m *MockTransport) expectConnect(token string) {
	m.On(OperationConnect, mock.Anything).Return(&Reply{Token: token}, nil)
}

func (m *MockTransport) expect(operation string, args any, data map[string]any) *mock.Call {
	return m.On(operation, args).Return(&Reply{Data: data}, nil)
}

func testCredentials() Credentials {
	return Credentials{AgreementNumber: 123456, UserName: "api", Password: "passw0rd"}
}

func newTestSession(t *testing.T) (*Session, *MockTransport) {
	t.Helper()
	transport := &MockTransport{}
	transport.expectConnect("cookie")
	s, err := NewSession(testCredentials(), transport)
	require.NoError(t, err)
	return s, transport
}
