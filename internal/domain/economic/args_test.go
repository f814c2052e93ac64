package economic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs_MarshalJSONKeepsOrder(t *testing.T) {
	args := NewArgs(
		"currentInvoiceHandle", IDHandle(5).Wire(),
		"number", 1001,
	)

	raw, err := json.Marshal(args)
	require.NoError(t, err)
	assert.Equal(t, `{"currentInvoiceHandle":{"Id":5},"number":1001}`, string(raw))
}

func TestArgs_Set(t *testing.T) {
	args := NewArgs("a", 1, "b", 2)

	replaced := args.Set("a", 3)
	assert.Equal(t, []string{"a", "b"}, replaced.Keys())
	v, _ := replaced.Get("a")
	assert.Equal(t, 3, v)

	original, _ := args.Get("a")
	assert.Equal(t, 1, original, "Set must not modify the receiver")

	appended := args.Set("c", 4)
	assert.Equal(t, []string{"a", "b", "c"}, appended.Keys())
}

func TestArgs_Map(t *testing.T) {
	args := NewArgs(
		"entityHandles", NewArgs("CashBookHandle", []any{NumberHandle(1).Wire(), NumberHandle(2).Wire()}),
	)

	assert.Equal(t, map[string]any{
		"entityHandles": map[string]any{
			"CashBookHandle": []any{
				map[string]any{"Number": int64(1)},
				map[string]any{"Number": int64(2)},
			},
		},
	}, args.Map())
}

func TestNewArgs_IgnoresDanglingKey(t *testing.T) {
	assert.Equal(t, 1, NewArgs("a", 1, "b").Len())
}
