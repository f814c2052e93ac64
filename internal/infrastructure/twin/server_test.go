package twin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/erp/economic/internal/domain/economic"
	"github.com/erp/economic/internal/infrastructure/rpc"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var testCredentials = economic.Credentials{AgreementNumber: 1234, UserName: "api", Password: "secret"}

func newTestServer(t *testing.T, seed map[string][]Record) *Server {
	t.Helper()
	s, err := New(Config{Credentials: testCredentials}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	if seed != nil {
		require.NoError(t, s.Store().Seed(seed))
	}
	return s
}

// rpcCall posts one envelope and decodes the response
func rpcCall(t *testing.T, s *Server, token, method string, params economic.Args) (rpc.Response, *httptest.ResponseRecorder) {
	t.Helper()
	if params == nil {
		params = economic.Args{}
	}
	body, err := json.Marshal(rpc.Request{Version: rpc.Version, Method: method, Params: params, ID: "req-1"})
	require.NoError(t, err)
	return post(t, s, token, body)
}

func post(t *testing.T, s *Server, token string, body []byte) (rpc.Response, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, PathRPC, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: rpc.SessionCookie, Value: token})
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp rpc.Response
	dec := json.NewDecoder(w.Body)
	dec.UseNumber()
	require.NoError(t, dec.Decode(&resp))
	return resp, w
}

func connect(t *testing.T, s *Server) string {
	t.Helper()
	resp, w := rpcCall(t, s, "", economic.OperationConnect, economic.NewArgs(
		"agreementNumber", testCredentials.AgreementNumber,
		"userName", testCredentials.UserName,
		"password", testCredentials.Password,
	))
	require.Nil(t, resp.Error)
	for _, c := range w.Result().Cookies() {
		if c.Name == rpc.SessionCookie {
			return c.Value
		}
	}
	t.Fatal("no session cookie issued")
	return ""
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, economic.ErrInvalidCredentials)
}

func TestServer_Connect(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("rejects bad credentials", func(t *testing.T) {
		resp, w := rpcCall(t, s, "", economic.OperationConnect, economic.NewArgs(
			"agreementNumber", testCredentials.AgreementNumber,
			"userName", testCredentials.UserName,
			"password", "wrong",
		))
		require.NotNil(t, resp.Error)
		assert.Equal(t, rpc.CodeUnauthorized, resp.Error.Code)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("issues a session cookie", func(t *testing.T) {
		token := connect(t, s)
		assert.NotEmpty(t, token)
		assert.Equal(t, 2, s.Calls(economic.OperationConnect))
	})
}

func TestServer_RequiresSession(t *testing.T) {
	s := newTestServer(t, map[string][]Record{"Debtor": {{"Number": 42, "Name": "Bob"}}})

	resp, _ := rpcCall(t, s, "", "DebtorGetAll", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeUnauthorized, resp.Error.Code)

	resp, _ = rpcCall(t, s, "forged", "DebtorGetAll", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeUnauthorized, resp.Error.Code)
}

func TestServer_EnvelopeFaults(t *testing.T) {
	s := newTestServer(t, nil)
	token := connect(t, s)

	resp, _ := post(t, s, token, []byte("{not json"))
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeParseError, resp.Error.Code)

	resp, _ = post(t, s, token, []byte(`{"jsonrpc":"1.0","method":"DebtorGetAll","id":"x"}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, "x", resp.ID)

	resp, _ = post(t, s, token, []byte(`{"jsonrpc":"2.0","method":"DebtorGetAll","params":[1],"id":"x"}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)

	resp, _ = rpcCall(t, s, token, "ProductGetAll", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeUnknownMethod, resp.Error.Code)

	resp, _ = rpcCall(t, s, token, "DebtorRenumber", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeUnknownMethod, resp.Error.Code)
}

func TestServer_GetData(t *testing.T) {
	s := newTestServer(t, map[string][]Record{"Debtor": {{"Number": 42, "Name": "Bob"}}})
	token := connect(t, s)

	resp, _ := rpcCall(t, s, token, "DebtorGetData", economic.NewArgs("entityHandle", economic.NumberHandle(42).Wire()))
	require.Nil(t, resp.Error)
	assert.Equal(t, "Bob", resp.Result["Name"])
	assert.Equal(t, json.Number("42"), resp.Result["Number"])
	assert.Equal(t, "req-1", resp.ID)

	resp, _ = rpcCall(t, s, token, "DebtorGetData", economic.NewArgs("entityHandle", economic.NumberHandle(7).Wire()))
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeNotFound, resp.Error.Code)

	resp, _ = rpcCall(t, s, token, "DebtorGetData", economic.NewArgs("entityHandle", "42"))
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)
}

func TestServer_GetAllCollapses(t *testing.T) {
	s := newTestServer(t, nil)
	token := connect(t, s)

	resp, _ := rpcCall(t, s, token, "CashBookGetAll", nil)
	require.Nil(t, resp.Error)
	assert.Nil(t, resp.Result)

	require.NoError(t, s.Store().Seed(map[string][]Record{"CashBook": {{"Number": 1, "Name": "Main"}}}))
	resp, _ = rpcCall(t, s, token, "CashBookGetAll", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"Number": json.Number("1")}, resp.Result["CashBookHandle"])

	require.NoError(t, s.Store().Seed(map[string][]Record{"CashBook": {{"Number": 1}, {"Number": 2}}}))
	resp, _ = rpcCall(t, s, token, "CashBookGetAll", nil)
	require.Nil(t, resp.Error)
	assert.Len(t, resp.Result["CashBookHandle"], 2)
}

func TestServer_GetDataArraySkipsMissing(t *testing.T) {
	s := newTestServer(t, map[string][]Record{
		"CashBook": {{"Number": 1, "Name": "Main"}, {"Number": 2, "Name": "Petty"}},
	})
	token := connect(t, s)

	handles := []any{economic.NumberHandle(1).Wire(), economic.NumberHandle(3).Wire()}
	resp, _ := rpcCall(t, s, token, "CashBookGetDataArray",
		economic.NewArgs("entityHandles", economic.NewArgs("CashBookHandle", handles)))
	require.Nil(t, resp.Error)

	data, ok := resp.Result["CashBookData"].(map[string]any)
	require.True(t, ok, "one record collapses to a bare structure")
	assert.Equal(t, "Main", data["Name"])
}

func TestServer_CreateUpdateDelete(t *testing.T) {
	s := newTestServer(t, nil)
	token := connect(t, s)

	resp, _ := rpcCall(t, s, token, "DebtorContactCreateFromData", economic.NewArgs("data", economic.NewArgs(
		"Handle", economic.Args{},
		"Id", nil,
		"DebtorHandle", economic.NumberHandle(42).Wire(),
		"Name", "Jane",
	)))
	require.Nil(t, resp.Error)
	assert.Equal(t, json.Number("1"), resp.Result["Id"])

	resp, _ = rpcCall(t, s, token, "DebtorContactUpdateFromData", economic.NewArgs("data", economic.NewArgs(
		"Handle", economic.IDHandle(1).Wire(),
		"Id", int64(1),
		"Email", "jane@example.com",
	)))
	require.Nil(t, resp.Error)

	contact, _ := KindOf("DebtorContact")
	r, ok := s.Store().Get(contact, 1)
	require.True(t, ok)
	assert.Equal(t, "Jane", r["Name"])
	assert.Equal(t, "jane@example.com", r["Email"])

	resp, _ = rpcCall(t, s, token, "DebtorContactDelete", economic.NewArgs("debtorContactHandle", economic.IDHandle(1).Wire()))
	require.Nil(t, resp.Error)
	assert.Nil(t, resp.Result)
	_, ok = s.Store().Get(contact, 1)
	assert.False(t, ok)

	resp, _ = rpcCall(t, s, token, "DebtorContactDelete", economic.NewArgs("debtorContactHandle", economic.IDHandle(1).Wire()))
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeNotFound, resp.Error.Code)
}

func TestServer_ReadOnlyTypes(t *testing.T) {
	s := newTestServer(t, nil)
	token := connect(t, s)

	for _, op := range []string{"InvoiceCreateFromData", "CreditorEntryUpdateFromData", "InvoiceDelete"} {
		resp, _ := rpcCall(t, s, token, op, economic.NewArgs("data", economic.NewArgs("Number", int64(1))))
		require.NotNil(t, resp.Error, op)
		assert.Equal(t, rpc.CodeUnknownMethod, resp.Error.Code, op)
	}
}

func TestServer_FindByName(t *testing.T) {
	s := newTestServer(t, map[string][]Record{
		"DebtorContact": {
			{"Id": 1, "Name": "Jane"},
			{"Id": 2, "Name": "John"},
			{"Id": 3, "Name": "jane"},
		},
	})
	token := connect(t, s)

	resp, _ := rpcCall(t, s, token, "DebtorContactFindByName", economic.NewArgs("name", "Jane"))
	require.Nil(t, resp.Error)
	assert.Len(t, resp.Result["DebtorContactHandle"], 2)

	resp, _ = rpcCall(t, s, token, "DebtorContactFindByName", economic.NewArgs("name", "John"))
	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"Id": json.Number("2")}, resp.Result["DebtorContactHandle"])

	resp, _ = rpcCall(t, s, token, "DebtorContactFindByName", economic.NewArgs("name", "Nobody"))
	require.Nil(t, resp.Error)
	assert.Nil(t, resp.Result)
}

func TestServer_DebtorOperations(t *testing.T) {
	s := newTestServer(t, map[string][]Record{
		"Debtor": {{"Number": 42, "Name": "Bob", "CINumber": "12345678"}},
		"DebtorContact": {
			{"Id": 1, "Name": "Jane", "DebtorHandle": map[string]any{"Number": 42}},
			{"Id": 2, "Name": "Other", "DebtorHandle": map[string]any{"Number": 7}},
		},
	})
	token := connect(t, s)

	resp, _ := rpcCall(t, s, token, "DebtorGetNextAvailableNumber", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, json.Number("43"), resp.Result[economic.ResultValue])

	resp, _ = rpcCall(t, s, token, "DebtorFindByCINumber", economic.NewArgs("ciNumber", "12345678"))
	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"Number": json.Number("42")}, resp.Result["DebtorHandle"])

	resp, _ = rpcCall(t, s, token, "DebtorGetDebtorContacts", economic.NewArgs("debtorHandle", economic.NumberHandle(42).Wire()))
	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"Id": json.Number("1")}, resp.Result["DebtorContactHandle"])
}

func TestServer_CashBookGetName(t *testing.T) {
	s := newTestServer(t, map[string][]Record{"CashBook": {{"Number": 1, "Name": "Main"}}})
	token := connect(t, s)

	resp, _ := rpcCall(t, s, token, "CashBookGetName", economic.NewArgs("cashBookHandle", economic.NumberHandle(1).Wire()))
	require.Nil(t, resp.Error)
	assert.Equal(t, "Main", resp.Result[economic.ResultValue])

	resp, _ = rpcCall(t, s, token, "CashBookGetName", economic.NewArgs("cashBookHandle", economic.NumberHandle(9).Wire()))
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeNotFound, resp.Error.Code)
}

func TestServer_Book(t *testing.T) {
	s := newTestServer(t, map[string][]Record{
		"CurrentInvoice": {{"Id": 5, "DebtorHandle": map[string]any{"Number": 42}, "DebtorName": "Bob", "Date": "2024-03-01T00:00:00Z"}},
		"CurrentInvoiceLine": {
			{"Number": 1, "InvoiceHandle": map[string]any{"Id": 5}, "Quantity": "2", "UnitNetPrice": "50.00"},
			{"Number": 2, "InvoiceHandle": map[string]any{"Id": 5}, "Quantity": "1", "UnitNetPrice": "20"},
			{"Number": 3, "InvoiceHandle": map[string]any{"Id": 6}, "Quantity": "9", "UnitNetPrice": "9"},
		},
	})
	token := connect(t, s)

	resp, _ := rpcCall(t, s, token, "CurrentInvoiceBookWithNumber", economic.NewArgs(
		"currentInvoiceHandle", economic.IDHandle(5).Wire(),
		"number", int64(1001),
	))
	require.Nil(t, resp.Error)
	assert.Equal(t, json.Number("1001"), resp.Result["Number"])

	invoice, _ := KindOf("Invoice")
	booked, ok := s.Store().Get(invoice, 1001)
	require.True(t, ok)
	assert.Equal(t, "Bob", booked["DebtorName"])
	assert.Equal(t, "120.00", booked["NetAmount"])
	assert.Equal(t, "30.00", booked["VatAmount"])
	assert.Equal(t, "150.00", booked["GrossAmount"])
	assert.Equal(t, "150.00", booked["Remainder"])

	current, _ := KindOf("CurrentInvoice")
	_, ok = s.Store().Get(current, 5)
	assert.False(t, ok)
	line, _ := KindOf("CurrentInvoiceLine")
	assert.Len(t, s.Store().All(line), 1)

	resp, _ = rpcCall(t, s, token, "CurrentInvoiceBook", economic.NewArgs("currentInvoiceHandle", economic.IDHandle(5).Wire()))
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeNotFound, resp.Error.Code)
}

func TestServer_FindByDateInterval(t *testing.T) {
	s := newTestServer(t, map[string][]Record{
		"Invoice": {
			{"Number": 1, "Date": "2024-01-15T00:00:00Z"},
			{"Number": 2, "Date": "2024-02-15T00:00:00Z"},
			{"Number": 3, "Date": "2024-03-15"},
		},
	})
	token := connect(t, s)

	resp, _ := rpcCall(t, s, token, "InvoiceFindByDateInterval", economic.NewArgs(
		"first", "2024-02-01T00:00:00Z",
		"last", "2024-03-31T00:00:00Z",
	))
	require.Nil(t, resp.Error)
	assert.Len(t, resp.Result["InvoiceHandle"], 2)

	resp, _ = rpcCall(t, s, token, "InvoiceFindByDateInterval", economic.NewArgs("first", "soon", "last", "later"))
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)
}

func TestServer_CreditorEntries(t *testing.T) {
	s := newTestServer(t, map[string][]Record{
		"CreditorEntry": {
			{"SerialNumber": 10, "InvoiceNumber": "INV-7", "Remainder": "-500.00"},
			{"SerialNumber": 11, "InvoiceNumber": "INV-7", "Remainder": "500.00"},
			{"SerialNumber": 12, "InvoiceNumber": "INV-8", "Remainder": "80.00"},
		},
	})
	token := connect(t, s)

	resp, _ := rpcCall(t, s, token, "CreditorEntryFindByInvoiceNumber", economic.NewArgs("invoiceNumber", "INV-7"))
	require.Nil(t, resp.Error)
	assert.Len(t, resp.Result["CreditorEntryHandle"], 2)

	handles := []any{economic.SerialNumberHandle(10).Wire(), economic.SerialNumberHandle(11).Wire()}
	resp, _ = rpcCall(t, s, token, "CreditorEntryMatchEntries",
		economic.NewArgs("entries", economic.NewArgs("CreditorEntryHandle", handles)))
	require.Nil(t, resp.Error)

	entry, _ := KindOf("CreditorEntry")
	r, _ := s.Store().Get(entry, 10)
	assert.Equal(t, "0.00", r["Remainder"])
	r, _ = s.Store().Get(entry, 12)
	assert.Equal(t, "80.00", r["Remainder"])

	resp, _ = rpcCall(t, s, token, "CreditorEntryMatchEntries",
		economic.NewArgs("entries", economic.NewArgs("CreditorEntryHandle", []any{economic.SerialNumberHandle(99).Wire()})))
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeNotFound, resp.Error.Code)
}

func TestServer_Admin(t *testing.T) {
	s := newTestServer(t, map[string][]Record{"Debtor": {{"Number": 42, "Name": "Bob"}}})
	token := connect(t, s)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, PathState, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Name":"Bob"`)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, PathState,
		strings.NewReader(`{"CashBook":[{"Number":3,"Name":"Bank"}]}`)))
	require.Equal(t, http.StatusNoContent, w.Code)
	debtor, _ := KindOf("Debtor")
	assert.Empty(t, s.Store().All(debtor))
	book, _ := KindOf("CashBook")
	assert.Len(t, s.Store().All(book), 1)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, PathState, strings.NewReader(`{"Product":[]}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	rpcCall(t, s, token, "CashBookGetAll", nil)
	assert.Equal(t, 1, s.Calls("CashBookGetAll"))

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, PathReset, nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, s.Store().All(book))
	assert.Zero(t, s.Calls("CashBookGetAll"))

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, PathReady, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
