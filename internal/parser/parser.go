// Package parser defines the contract shared by input format parsers.
package parser

import (
	"io"

	"dmart/internal/frame"
)

// Parser turns one input stream into a named frame.
type Parser interface {
	Parse(name string, r io.Reader) (*frame.Frame, error)
}
