// Package transformer composes frame-to-frame transforms. A transform never
// mutates its input; it returns a new frame or an error.
package transformer

import "dmart/internal/frame"

type Transformer interface {
	Apply(in *frame.Frame) (*frame.Frame, error)
}

// Func adapts a plain function to Transformer.
type Func func(in *frame.Frame) (*frame.Frame, error)

func (f Func) Apply(in *frame.Frame) (*frame.Frame, error) { return f(in) }

// Chain is an ordered list of transformers. Apply stops at the first error.
type Chain []Transformer

func (c Chain) Apply(in *frame.Frame) (*frame.Frame, error) {
	out := in
	for _, t := range c {
		var err error
		if out, err = t.Apply(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
