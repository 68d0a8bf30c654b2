package frame

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical rendering of Date cells.
const DateLayout = "2006-01-02"

// Format renders a cell as text. Missing cells render as "null".
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(DateLayout)
	case bool:
		return strconv.FormatBool(x)
	default:
		return "?"
	}
}

// Key returns the canonical join/group key of a cell and whether the cell is
// present. Int and String cells with the same digits share a key.
func Key(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	return Format(v), true
}

// ToFloat converts numeric cells to float64.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// Compare orders two cells: missing first, then by kind, then by value.
// Strings compare byte-wise so ordering does not depend on locale.
func Compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	fa, aNum := ToFloat(a)
	fb, bNum := ToFloat(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case time.Time:
		return x.Compare(b.(time.Time))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	}
	return strings.Compare(Format(a), Format(b))
}

func kindOf(v any) Kind {
	switch v.(type) {
	case int64:
		return Int
	case float64:
		return Float
	case time.Time:
		return Date
	case bool:
		return Bool
	default:
		return String
	}
}

// Coerce converts a value produced by a database driver (or any loosely typed
// source) into the cell representation of kind k. Values that cannot be
// represented become nil.
func Coerce(v any, k Kind) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil
	}
	switch k {
	case Int:
		switch x := v.(type) {
		case int64:
			return x
		case int:
			return int64(x)
		case int32:
			return int64(x)
		case int16:
			return int64(x)
		case int8:
			return int64(x)
		case uint8:
			return int64(x)
		case float64:
			return int64(x)
		case float32:
			return int64(x)
		case bool:
			if x {
				return int64(1)
			}
			return int64(0)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				return n
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return int64(f)
			}
		}
	case Float:
		switch x := v.(type) {
		case float64:
			return x
		case float32:
			return float64(x)
		case int64:
			return float64(x)
		case int:
			return float64(x)
		case int32:
			return float64(x)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f
			}
		}
	case Date:
		switch x := v.(type) {
		case time.Time:
			y, m, d := x.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		case string:
			s := strings.TrimSpace(x)
			if len(s) >= len(DateLayout) {
				if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
					return t
				}
			}
		}
	case Bool:
		switch x := v.(type) {
		case bool:
			return x
		case int64:
			return x != 0
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b
			}
		}
	default:
		switch x := v.(type) {
		case string:
			return x
		default:
			return Format(x)
		}
	}
	return nil
}
