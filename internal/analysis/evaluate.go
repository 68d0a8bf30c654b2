package analysis

import (
	"dmart/internal/frame"
)

// Evaluate runs q over full by hash-grouping in memory.
func Evaluate(full *frame.Frame, q Query) (Report, error) {
	if err := Validate(full, []Query{q}); err != nil {
		return Report{}, err
	}
	vj, _ := full.Index(q.Column)
	kind := full.ColumnAt(vj).Kind

	if q.Select == Scalar {
		agg := NewAggregation(q.Func, kind)
		for i := 0; i < full.Len(); i++ {
			agg.Add(full.Value(i, vj))
		}
		return Finalize(q, []Group{{Value: agg.Result()}}), nil
	}

	kj, _ := full.Index(q.GroupBy)
	type bucket struct {
		key any
		agg Aggregation
	}
	buckets := map[string]*bucket{}
	var null *bucket
	order := make([]*bucket, 0, 64)
	for i := 0; i < full.Len(); i++ {
		kv := full.Value(i, kj)
		var b *bucket
		if k, ok := frame.Key(kv); ok {
			b = buckets[k]
			if b == nil {
				b = &bucket{key: kv, agg: NewAggregation(q.Func, kind)}
				buckets[k] = b
				order = append(order, b)
			}
		} else {
			if null == nil {
				null = &bucket{agg: NewAggregation(q.Func, kind)}
				order = append(order, null)
			}
			b = null
		}
		b.agg.Add(full.Value(i, vj))
	}

	groups := make([]Group, len(order))
	for i, b := range order {
		groups[i] = Group{Key: b.key, Value: b.agg.Result()}
	}
	return Finalize(q, groups), nil
}
