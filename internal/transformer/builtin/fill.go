package builtin

import (
	"fmt"

	"dmart/internal/etlerr"
	"dmart/internal/frame"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("builtin")

// FillString replaces missing cells of every String column with Value.
// Columns of other kinds are untouched.
type FillString struct {
	Value string
}

func (f FillString) Apply(in *frame.Frame) (*frame.Frame, error) {
	fns := map[int]func(any) any{}
	for j, c := range in.Columns() {
		if c.Kind == frame.String {
			fns[j] = fillWith(f.Value)
		}
	}
	return mapIfAny(in, fns, nil), nil
}

// FillNumeric replaces missing cells of every Int and Float column with
// Value. Int columns receive the value truncated toward zero.
type FillNumeric struct {
	Value float64
}

func (f FillNumeric) Apply(in *frame.Frame) (*frame.Frame, error) {
	fns := map[int]func(any) any{}
	for j, c := range in.Columns() {
		switch c.Kind {
		case frame.Int:
			fns[j] = fillWith(int64(f.Value))
		case frame.Float:
			fns[j] = fillWith(f.Value)
		}
	}
	return mapIfAny(in, fns, nil), nil
}

// FillColumns replaces missing cells of the named columns with per-column
// values (string, int, int64 or float64).
//
// A named column that does not exist is a SchemaError. A value whose kind
// does not fit the column is skipped, or a TypeCoercionError when Strict is
// set. A column with no values at all adopts the kind of its fill value.
type FillColumns struct {
	Values map[string]any
	Strict bool
}

func (f FillColumns) Apply(in *frame.Frame) (*frame.Frame, error) {
	fns := map[int]func(any) any{}
	kinds := map[int]frame.Kind{}
	for name, v := range f.Values {
		j, ok := in.Index(name)
		if !ok {
			return nil, etlerr.Missing(etlerr.StageClean, in.Name(), name)
		}
		col := in.ColumnAt(j)
		vk, err := valueKind(v)
		if err != nil {
			return nil, &etlerr.TypeCoercionError{
				Stage: etlerr.StageClean, Entity: in.Name(), Column: name, Kind: col.Kind.String(), Value: v,
			}
		}
		if cell, ok := fitCell(v, col.Kind); ok {
			fns[j] = fillWith(cell)
			continue
		}
		if allMissing(in, j) {
			cell, _ := fitCell(v, vk)
			fns[j] = fillWith(cell)
			kinds[j] = vk
			continue
		}
		if f.Strict {
			return nil, &etlerr.TypeCoercionError{
				Stage: etlerr.StageClean, Entity: in.Name(), Column: name, Kind: col.Kind.String(), Value: v,
			}
		}
		log.Warningf("fill: entity=%s column=%q fill=%v skipped: column is %s", in.Name(), name, v, col.Kind)
	}
	return mapIfAny(in, fns, kinds), nil
}

func fillWith(v any) func(any) any {
	return func(cell any) any {
		if cell == nil {
			return v
		}
		return cell
	}
}

func mapIfAny(in *frame.Frame, fns map[int]func(any) any, kinds map[int]frame.Kind) *frame.Frame {
	if len(fns) == 0 {
		return in
	}
	return in.MapColumns(fns, kinds)
}

func allMissing(in *frame.Frame, j int) bool {
	for i := 0; i < in.Len(); i++ {
		if in.Value(i, j) != nil {
			return false
		}
	}
	return true
}

// valueKind returns the natural kind of a Go fill value.
func valueKind(v any) (frame.Kind, error) {
	switch v.(type) {
	case string:
		return frame.String, nil
	case int, int64:
		return frame.Int, nil
	case float64:
		return frame.Float, nil
	case bool:
		return frame.Bool, nil
	default:
		return 0, fmt.Errorf("unsupported fill value %T", v)
	}
}

// fitCell converts a fill value into a cell of kind k: strings fill String
// columns, numbers fill Int and Float columns, bools fill Bool columns.
func fitCell(v any, k frame.Kind) (any, bool) {
	switch x := v.(type) {
	case string:
		if k == frame.String {
			return x, true
		}
	case int:
		return fitNumber(float64(x), int64(x), k)
	case int64:
		return fitNumber(float64(x), x, k)
	case float64:
		return fitNumber(x, int64(x), k)
	case bool:
		if k == frame.Bool {
			return x, true
		}
	}
	return nil, false
}

func fitNumber(f float64, n int64, k frame.Kind) (any, bool) {
	switch k {
	case frame.Int:
		return n, true
	case frame.Float:
		return f, true
	}
	return nil, false
}
