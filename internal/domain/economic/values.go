package economic

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Coercion of decoded remote values. The remote side sends numbers as JSON
// numbers or as numeric strings depending on the operation.

func toInt64(v any) (int64, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("economic: %v is not an integer", val)
		}
		return int64(val), nil
	case json.Number:
		return strconv.ParseInt(val.String(), 10, 64)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseInt(s, 10, 64)
	case decimal.Decimal:
		return val.IntPart(), nil
	default:
		return 0, fmt.Errorf("economic: cannot convert %T to integer", v)
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case json.Number:
		return decimal.NewFromString(val.String())
	case string:
		if strings.TrimSpace(val) == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.TrimSpace(val))
	default:
		return decimal.Zero, fmt.Errorf("economic: cannot convert %T to decimal", v)
	}
}

func toBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(val))
	default:
		return false, fmt.Errorf("economic: cannot convert %T to bool", v)
	}
}

// timeLayouts are tried in order when decoding dates.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func toTime(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("economic: cannot parse time %q", s)
	default:
		return time.Time{}, fmt.Errorf("economic: cannot convert %T to time", v)
	}
}

// isEmpty reports whether a property value counts as absent for rendering.
// Numbers and booleans are present once set, even when zero.
func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case Handle:
		return !val.Present()
	case time.Time:
		return val.IsZero()
	case Args:
		return len(val) == 0
	default:
		return false
	}
}
