// Package join implements the inner equi-joins that enrich sales with their
// product and customer attributes.
package join

import (
	"fmt"

	"dmart/internal/etlerr"
	"dmart/internal/frame"
	"dmart/internal/loader"

	"github.com/RoaringBitmap/roaring"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("join")

// Key columns and output dataset names.
const (
	ProductKey  = "product_id"
	CustomerKey = "customer_id"

	SalesWithProduct = "sales_with_product"
	FullData         = "full_data"
)

// RightSuffix is appended to a right-side column whose name is already taken
// by a left-side column.
const RightSuffix = "_right"

// maxSampleKeys bounds how many unmatched keys are logged per join.
const maxSampleKeys = 5

// Stats describes how the rows of one join matched.
type Stats struct {
	Name           string
	Key            string
	Left           int
	Right          int
	Output         int
	UnmatchedLeft  int
	UnmatchedRight int
	// SampleUnmatched holds a few left keys without a match, for logs.
	SampleUnmatched []string
}

func (s Stats) String() string {
	return fmt.Sprintf("join=%s key=%s left=%d right=%d out=%d unmatched_left=%d unmatched_right=%d",
		s.Name, s.Key, s.Left, s.Right, s.Output, s.UnmatchedLeft, s.UnmatchedRight)
}

// Inner joins left and right on key. The result keeps left order; a left row
// with several matches yields them in right order. Null keys never match.
// Output columns are left's followed by right's without its key column.
func Inner(left, right *frame.Frame, key, name string) (*frame.Frame, Stats, error) {
	st := Stats{Name: name, Key: key, Left: left.Len(), Right: right.Len()}

	lk, ok := left.Index(key)
	if !ok {
		return nil, st, etlerr.Missing(etlerr.StageJoin, left.Name(), key)
	}
	rk, ok := right.Index(key)
	if !ok {
		return nil, st, etlerr.Missing(etlerr.StageJoin, right.Name(), key)
	}

	// Build on the right side.
	index := make(map[string][]int, right.Len())
	for i := 0; i < right.Len(); i++ {
		if k, ok := frame.Key(right.Value(i, rk)); ok {
			index[k] = append(index[k], i)
		}
	}

	cols, rightCols := joinColumns(left, right, rk)

	matchedLeft := roaring.New()
	matchedRight := roaring.New()
	rows := make([][]any, 0, left.Len())
	for i := 0; i < left.Len(); i++ {
		k, ok := frame.Key(left.Value(i, lk))
		if !ok {
			continue
		}
		hits := index[k]
		if len(hits) == 0 {
			continue
		}
		matchedLeft.Add(uint32(i))
		for _, r := range hits {
			matchedRight.Add(uint32(r))
			row := make([]any, 0, len(cols))
			row = append(row, left.Row(i)...)
			for _, j := range rightCols {
				row = append(row, right.Value(r, j))
			}
			rows = append(rows, row)
		}
	}

	st.Output = len(rows)
	st.UnmatchedLeft = left.Len() - int(matchedLeft.GetCardinality())
	st.UnmatchedRight = right.Len() - int(matchedRight.GetCardinality())
	if st.UnmatchedLeft > 0 {
		st.SampleUnmatched = sampleUnmatched(left, lk, matchedLeft)
	}

	out, err := frame.New(name, cols, rows)
	if err != nil {
		return nil, st, &etlerr.StageError{Stage: etlerr.StageJoin, Err: err}
	}
	return out, st, nil
}

// joinColumns returns the output schema and the right-side column positions
// that follow the left columns.
func joinColumns(left, right *frame.Frame, rk int) ([]frame.Column, []int) {
	cols := left.Columns()
	taken := make(map[string]bool, len(cols)+right.Width())
	for _, c := range cols {
		taken[c.Name] = true
	}
	rightCols := make([]int, 0, right.Width()-1)
	for j, c := range right.Columns() {
		if j == rk {
			continue
		}
		for taken[c.Name] {
			c.Name += RightSuffix
		}
		taken[c.Name] = true
		cols = append(cols, c)
		rightCols = append(rightCols, j)
	}
	return cols, rightCols
}

func sampleUnmatched(left *frame.Frame, lk int, matched *roaring.Bitmap) []string {
	unmatched := roaring.Flip(matched, 0, uint64(left.Len()))
	var out []string
	it := unmatched.Iterator()
	for it.HasNext() && len(out) < maxSampleKeys {
		out = append(out, frame.Format(left.Value(int(it.Next()), lk)))
	}
	return out
}

// Result is the joined dataset plus the statistics of both joins.
type Result struct {
	Full  *frame.Frame
	Stats []Stats
}

// Join enriches sales with product attributes, then with customer attributes.
// Rows without a match on either side are dropped.
func Join(ds loader.Datasets) (Result, error) {
	swp, st1, err := Inner(ds.Sales, ds.Products, ProductKey, SalesWithProduct)
	if err != nil {
		return Result{}, err
	}
	logStats(st1)

	full, st2, err := Inner(swp, ds.Customers, CustomerKey, FullData)
	if err != nil {
		return Result{}, err
	}
	logStats(st2)

	return Result{Full: full, Stats: []Stats{st1, st2}}, nil
}

func logStats(st Stats) {
	log.Infof("join: %s", st)
	if st.UnmatchedLeft > 0 {
		log.Warningf("join: join=%s dropped=%d sample_keys=%v", st.Name, st.UnmatchedLeft, st.SampleUnmatched)
	}
}
