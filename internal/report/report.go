// Package report renders an analysis.Result for people (Text) and for other
// programs (JSON). Renderers only read the Result; they never reorder rows.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"dmart/internal/analysis"
	"dmart/internal/frame"
)

// Formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options tunes the text renderer. Zero values disable the limits.
type Options struct {
	// MaxRows caps the rows printed per table; a footer notes the cut.
	MaxRows int
	// Truncate shortens cells longer than this many runes.
	Truncate int
}

// Render writes res in the named format.
func Render(w io.Writer, format string, res analysis.Result, opt Options) error {
	switch format {
	case FormatText, "":
		return Text(w, res, opt)
	case FormatJSON:
		return JSON(w, res)
	default:
		return fmt.Errorf("unsupported output.format=%s", format)
	}
}

// Text prints every report under its numbered title. Table and Scalar reports
// are drawn as a bordered grid; Top reports are a single summary line.
func Text(w io.Writer, res analysis.Result, opt Options) error {
	bw := bufio.NewWriter(w)
	for _, r := range res.Reports {
		fmt.Fprintf(bw, "%d. %s\n", r.Number, r.Title)
		if r.Select == analysis.Top {
			bw.WriteString(summaryLine(r))
			bw.WriteByte('\n')
			continue
		}
		writeGrid(bw, r, opt)
	}
	return bw.Flush()
}

func summaryLine(r analysis.Report) string {
	if len(r.Rows) == 0 {
		return r.Summary + ": none"
	}
	parts := make([]string, len(r.Columns))
	for j, c := range r.Columns {
		parts[j] = c + "=" + cell(r.Rows[0][j])
	}
	return r.Summary + ": " + strings.Join(parts, ", ")
}

func writeGrid(bw *bufio.Writer, r analysis.Report, opt Options) {
	rows := r.Rows
	cut := 0
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		cut = opt.MaxRows
		rows = rows[:cut]
	}

	cells := make([][]string, len(rows))
	widths := make([]int, len(r.Columns))
	for j, c := range r.Columns {
		widths[j] = max(utf8.RuneCountInString(c), 3)
	}
	for i, row := range rows {
		cells[i] = make([]string, len(r.Columns))
		for j := range r.Columns {
			var v any
			if j < len(row) {
				v = row[j]
			}
			s := shorten(cell(v), opt.Truncate)
			cells[i][j] = s
			widths[j] = max(widths[j], utf8.RuneCountInString(s))
		}
	}

	sep := border(widths)
	bw.WriteString(sep)
	writeLine(bw, r.Columns, widths)
	bw.WriteString(sep)
	for _, row := range cells {
		writeLine(bw, row, widths)
	}
	bw.WriteString(sep)
	if cut > 0 {
		fmt.Fprintf(bw, "only showing top %d rows\n", cut)
	}
	bw.WriteByte('\n')
}

func border(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

// writeLine right-aligns every cell.
func writeLine(bw *bufio.Writer, vals []string, widths []int) {
	bw.WriteByte('|')
	for j, s := range vals {
		bw.WriteString(strings.Repeat(" ", widths[j]-utf8.RuneCountInString(s)))
		bw.WriteString(s)
		bw.WriteByte('|')
	}
	bw.WriteByte('\n')
}

func shorten(s string, n int) string {
	if n <= 3 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// cell renders whole floats with a trailing ".0" so a float column never
// looks like an integer one.
func cell(v any) string {
	f, ok := v.(float64)
	if !ok || math.IsInf(f, 0) || f != math.Trunc(f) {
		return frame.Format(v)
	}
	if math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return scientific(f)
}

// scientific renders f like 1.0E15 or -2.5E20.
func scientific(f float64) string {
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'E', -1, 64), "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	return mant + "E" + strings.TrimPrefix(exp, "+")
}

type jsonResult struct {
	Fingerprint string       `json:"fingerprint"`
	Reports     []jsonReport `json:"reports"`
}

type jsonReport struct {
	Number  int      `json:"number"`
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Kind    string   `json:"kind"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// JSON writes the whole result as one indented document. Dates become
// strings; missing values become null.
func JSON(w io.Writer, res analysis.Result) error {
	out := jsonResult{
		Fingerprint: fmt.Sprintf("%016x", res.Fingerprint()),
		Reports:     make([]jsonReport, len(res.Reports)),
	}
	for i, r := range res.Reports {
		rows := make([][]any, len(r.Rows))
		for ri, row := range r.Rows {
			rows[ri] = make([]any, len(row))
			for j, v := range row {
				if t, ok := v.(time.Time); ok {
					v = t.UTC().Format(frame.DateLayout)
				}
				rows[ri][j] = v
			}
		}
		out.Reports[i] = jsonReport{
			Number:  r.Number,
			Name:    r.Name,
			Title:   r.Title,
			Kind:    r.Select.String(),
			Columns: r.Columns,
			Rows:    rows,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}
