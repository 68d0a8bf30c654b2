package csv

import (
	"strconv"
	"strings"
	"time"

	"dmart/internal/frame"
)

// cellParser turns a raw cell (nil or string) into a typed cell.
type cellParser func(v any) any

// dateLayouts are the date formats a column may use. A column is a Date only
// when every non-empty cell matches the same layout.
var dateLayouts = []string{
	"2006-01-02", // ISO
	"01/02/2006", // MDY slash
	"02.01.2006", // DMY dot
	"2006/01/02", // ISO slashy
	"02-01-2006", // DMY dash
}

// inferColumn guesses the kind of column j among integer, boolean, real, date
// and text. Heuristic: require all non-empty values to satisfy a narrower
// type; an all-empty column is text.
func inferColumn(rows [][]string, j int) (frame.Kind, cellParser) {
	vals := make([]string, 0, len(rows))
	for _, r := range rows {
		if v := strings.TrimSpace(r[j]); v != "" {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return frame.String, parseString
	}
	if allMatch(vals, isInt) {
		return frame.Int, parseInt
	}
	if allMatch(vals, isBool) {
		return frame.Bool, parseBool
	}
	// Ints are floats too; a mix of both is real.
	if allMatch(vals, isNumber) {
		return frame.Float, parseFloat
	}
	if layout := commonDateLayout(vals); layout != "" {
		return frame.Date, dateParser(layout)
	}
	return frame.String, parseString
}

// allMatch reports whether every value satisfies fn.
func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// isBool accepts only the literal booleans so 0/1 flags stay integers and
// Y/N codes stay text.
func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	default:
		return false
	}
}

// isInt requires a signed base-10 integer that fits in int64.
func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isNumber accepts decimal or scientific notation.
func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// commonDateLayout returns the first layout every value parses with.
func commonDateLayout(vals []string) string {
	for _, layout := range dateLayouts {
		ok := true
		for _, v := range vals {
			if _, err := time.Parse(layout, v); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return layout
		}
	}
	return ""
}

func parseString(v any) any { return v }

func parseInt(v any) any {
	if v == nil {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v.(string)), 10, 64)
	if err != nil {
		return nil
	}
	return n
}

func parseFloat(v any) any {
	if v == nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.(string)), 64)
	if err != nil {
		return nil
	}
	return f
}

func parseBool(v any) any {
	if v == nil {
		return nil
	}
	return strings.EqualFold(strings.TrimSpace(v.(string)), "true")
}

func dateParser(layout string) cellParser {
	return func(v any) any {
		if v == nil {
			return nil
		}
		t, err := time.Parse(layout, strings.TrimSpace(v.(string)))
		if err != nil {
			return nil
		}
		return t
	}
}
