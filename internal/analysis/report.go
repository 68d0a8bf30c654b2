package analysis

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"dmart/internal/frame"

	"github.com/zeebo/xxh3"
)

// Group is one grouping key with its aggregate value. Key is nil for the
// null group and for Scalar queries.
type Group struct {
	Key   any
	Value any
}

// Report is the outcome of one query.
type Report struct {
	Number  int
	Name    string
	Title   string
	Summary string
	Select  Selection
	Columns []string
	Rows    [][]any
}

// Finalize orders groups and applies the query's selection. Every engine
// funnels its raw groups through here so ordering and tie-breaks agree.
func Finalize(q Query, groups []Group) Report {
	r := Report{
		Number:  q.Number,
		Name:    q.Name,
		Title:   q.Title,
		Summary: q.Summary,
		Select:  q.Select,
		Columns: q.Columns(),
	}
	switch q.Select {
	case Scalar:
		var v any
		if len(groups) > 0 {
			v = groups[0].Value
		}
		r.Rows = [][]any{{v}}
	case Top:
		if best, ok := top(groups); ok {
			r.Rows = [][]any{{best.Key, best.Value}}
		} else {
			r.Rows = [][]any{}
		}
	default:
		sorted := slices.Clone(groups)
		slices.SortStableFunc(sorted, func(a, b Group) int { return frame.Compare(a.Key, b.Key) })
		r.Rows = make([][]any, len(sorted))
		for i, g := range sorted {
			r.Rows[i] = []any{g.Key, g.Value}
		}
	}
	return r
}

// top returns the group with the highest value. Ties go to the smallest key;
// the null key loses every tie. A null value ranks below any number.
func top(groups []Group) (Group, bool) {
	if len(groups) == 0 {
		return Group{}, false
	}
	best := groups[0]
	for _, g := range groups[1:] {
		if better(g, best) {
			best = g
		}
	}
	return best, true
}

func better(a, b Group) bool {
	if c := frame.Compare(a.Value, b.Value); c != 0 {
		return c > 0
	}
	switch {
	case a.Key == nil:
		return false
	case b.Key == nil:
		return true
	}
	return frame.Compare(a.Key, b.Key) < 0
}

// Result is the ordered set of reports of one run.
type Result struct {
	Reports []Report
}

// Get returns the report with the given query name.
func (r Result) Get(name string) (Report, bool) {
	for _, rep := range r.Reports {
		if rep.Name == name {
			return rep, true
		}
	}
	return Report{}, false
}

// Fingerprint hashes a canonical encoding of every report. Two runs over
// unchanged inputs on the same engine yield the same fingerprint.
func (r Result) Fingerprint() uint64 {
	var b strings.Builder
	for _, rep := range r.Reports {
		b.WriteString(strconv.Itoa(rep.Number))
		b.WriteByte('|')
		b.WriteString(rep.Name)
		b.WriteByte('|')
		b.WriteString(strings.Join(rep.Columns, ","))
		b.WriteByte('\n')
		for _, row := range rep.Rows {
			for j, v := range row {
				if j > 0 {
					b.WriteByte('\x1f')
				}
				b.WriteString(canonical(v))
			}
			b.WriteByte('\n')
		}
	}
	return xxh3.HashString(b.String())
}

// canonical tags values with their type so 1 and "1" hash differently.
func canonical(v any) string {
	switch x := v.(type) {
	case nil:
		return "N"
	case float64:
		return "F" + strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return "I" + strconv.FormatInt(x, 10)
	default:
		return "S" + frame.Format(x)
	}
}

// Diff lists the differences between two results. Numbers are compared as
// float64 with relative tolerance tol, so an engine that sums in floating
// point still matches one that sums exactly.
func Diff(a, b Result, tol float64) []string {
	var out []string
	if len(a.Reports) != len(b.Reports) {
		return []string{fmt.Sprintf("report count %d != %d", len(a.Reports), len(b.Reports))}
	}
	for i := range a.Reports {
		ra, rb := a.Reports[i], b.Reports[i]
		if ra.Name != rb.Name {
			out = append(out, fmt.Sprintf("report %d: name %s != %s", i, ra.Name, rb.Name))
			continue
		}
		if len(ra.Rows) != len(rb.Rows) {
			out = append(out, fmt.Sprintf("%s: %d rows != %d rows", ra.Name, len(ra.Rows), len(rb.Rows)))
			continue
		}
		for ri := range ra.Rows {
			for ci := range ra.Rows[ri] {
				va, vb := ra.Rows[ri][ci], rb.Rows[ri][ci]
				if !valuesMatch(va, vb, tol) {
					out = append(out, fmt.Sprintf("%s[%d][%d]: %s != %s",
						ra.Name, ri, ci, frame.Format(va), frame.Format(vb)))
				}
			}
		}
	}
	return out
}

func valuesMatch(a, b any, tol float64) bool {
	fa, aNum := frame.ToFloat(a)
	fb, bNum := frame.ToFloat(b)
	if aNum && bNum {
		diff := math.Abs(fa - fb)
		scale := math.Max(1, math.Max(math.Abs(fa), math.Abs(fb)))
		return diff <= tol*scale
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return frame.Format(a) == frame.Format(b)
}
