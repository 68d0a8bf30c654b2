// Package csv parses delimited text into typed frames. The first record is the
// header; column kinds are inferred from the body once every row has been
// read. Width is enforced strictly: a ragged row fails the whole parse so no
// input row is silently dropped before the join.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"dmart/internal/frame"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options configures the CSV parser behavior. All fields are optional; sensible
// defaults are applied when a field is zero.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// LazyQuotes lets a quote appear in an unquoted field.
	LazyQuotes bool

	// StringColumns are kept as text regardless of inference (identifiers,
	// postal codes).
	StringColumns []string
}

// Parser parses CSV input according to Options. It is safe for concurrent use;
// each Parse call owns its own reader.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Parse reads all of r and returns a frame named name.
func (p *Parser) Parse(name string, r io.Reader) (*frame.Frame, error) {
	// The BOM must go before tokenizing or a quoted first header is a
	// bare-quote error.
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.ReuseRecord = true

	h, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv header: empty input")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	headers := normalizeHeaders(h)
	cr.FieldsPerRecord = len(headers)

	raw := make([][]string, 0, 1024)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv.ParseError already names the line.
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rec := make([]string, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[i] = val
		}
		raw = append(raw, rec)
	}

	forced := make(map[string]bool, len(p.opt.StringColumns))
	for _, c := range p.opt.StringColumns {
		forced[c] = true
	}

	cols := make([]frame.Column, len(headers))
	parsers := make([]cellParser, len(headers))
	for j, hname := range headers {
		kind, cp := frame.String, parseString
		if !forced[hname] {
			kind, cp = inferColumn(raw, j)
		}
		cols[j] = frame.Column{Name: hname, Kind: kind}
		parsers[j] = cp
	}

	rows := make([][]any, len(raw))
	for i, rec := range raw {
		out := make([]any, len(rec))
		for j, val := range rec {
			out[j] = parsers[j](emptyToNil(val))
		}
		rows[i] = out
	}
	return frame.New(name, cols, rows)
}

// emptyToNil converts a blank cell to nil whatever the column kind; all
// other values are returned as-is.
func emptyToNil(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// normalizeHeaders trims header cells, strips a UTF-8 BOM from the first one
// and applies NFC so visually equal names compare equal. ASCII headers are
// left unchanged.
func normalizeHeaders(h []string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		res[i] = norm.NFC.String(strings.TrimSpace(col))
	}
	return StripHeaderBOM(res)
}
