package analysis

import (
	"math"

	"dmart/internal/frame"

	"github.com/shopspring/decimal"
)

// Aggregation accumulates cells of one group.
type Aggregation interface {
	Add(v any) Aggregation
	Result() any
}

// NewAggregation returns a fresh accumulator for f over a column of kind k.
func NewAggregation(f Func, k frame.Kind) Aggregation {
	switch f {
	case Sum:
		return &SumAggregation{intResult: k == frame.Int}
	case Avg:
		return &AvgAggregation{}
	case CountDistinct:
		return &CountDistinctAggregation{seen: map[string]struct{}{}}
	default:
		return &CountAggregation{}
	}
}

// SumAggregation adds numbers exactly so the total does not depend on row
// order. Non-numeric cells are ignored.
type SumAggregation struct {
	sum       decimal.Decimal
	n         int64
	intResult bool
}

func (s *SumAggregation) Add(v any) Aggregation {
	if d, ok := toDecimal(v); ok {
		s.sum = s.sum.Add(d)
		s.n++
	}
	return s
}

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

// Result is nil when no value was added, int64 for integer columns and
// float64 otherwise. An integer total outside int64 falls back to float64.
func (s *SumAggregation) Result() any {
	if s.n == 0 {
		return nil
	}
	if s.intResult && s.sum.GreaterThanOrEqual(minInt64) && s.sum.LessThanOrEqual(maxInt64) {
		return s.sum.IntPart()
	}
	return s.sum.InexactFloat64()
}

// CountAggregation counts non-null cells.
type CountAggregation struct{ n int64 }

func (c *CountAggregation) Add(v any) Aggregation {
	if v != nil {
		c.n++
	}
	return c
}

func (c *CountAggregation) Result() any { return c.n }

// CountDistinctAggregation counts distinct non-null cells.
type CountDistinctAggregation struct{ seen map[string]struct{} }

func (c *CountDistinctAggregation) Add(v any) Aggregation {
	if k, ok := frame.Key(v); ok {
		c.seen[k] = struct{}{}
	}
	return c
}

func (c *CountDistinctAggregation) Result() any { return int64(len(c.seen)) }

// AvgAggregation averages numeric cells; the mean of nothing is nil.
type AvgAggregation struct {
	sum decimal.Decimal
	n   int64
}

func (a *AvgAggregation) Add(v any) Aggregation {
	if d, ok := toDecimal(v); ok {
		a.sum = a.sum.Add(d)
		a.n++
	}
	return a
}

func (a *AvgAggregation) Result() any {
	if a.n == 0 {
		return nil
	}
	return a.sum.Div(decimal.NewFromInt(a.n)).InexactFloat64()
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case int64:
		return decimal.NewFromInt(x), true
	case float64:
		// NaN and infinities have no decimal form; they are skipped like nulls.
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(x), true
	default:
		return decimal.Decimal{}, false
	}
}
