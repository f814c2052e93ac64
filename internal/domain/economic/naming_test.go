package economic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperation(t *testing.T) {
	testCases := []struct {
		typeName string
		verb     string
		want     string
	}{
		{"Debtor", "GetData", "DebtorGetData"},
		{"Debtor", "get_data", "DebtorGetData"},
		{"CashBook", "get_data_array", "CashBookGetDataArray"},
		{"CurrentInvoice", "book_with_number", "CurrentInvoiceBookWithNumber"},
		{"DebtorContact", "findByName", "DebtorContactFindByName"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, Operation(tc.typeName, tc.verb))
		})
	}
}

func TestHandleArgument(t *testing.T) {
	assert.Equal(t, "cashBookHandle", HandleArgument("CashBook"))
	assert.Equal(t, "debtorHandle", HandleArgument("Debtor"))
}
