// Package builtin contains the reusable frame transforms used by the cleaner.
package builtin

import (
	"dmart/internal/etlerr"
	"dmart/internal/frame"
)

// Rename renames columns by Mapping (source -> target). Source names absent
// from the frame are ignored; columns not in Mapping pass through.
type Rename struct {
	Mapping map[string]string
}

// Apply returns a frame sharing in's rows under the new column names. A
// target that collides with another column is a SchemaError.
func (r Rename) Apply(in *frame.Frame) (*frame.Frame, error) {
	cols := in.Columns()
	changed := false
	for j, c := range cols {
		if to, ok := r.Mapping[c.Name]; ok && to != c.Name {
			cols[j].Name = to
			changed = true
		}
	}
	if !changed {
		return in, nil
	}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c.Name]; dup {
			return nil, &etlerr.SchemaError{
				Stage:   etlerr.StageClean,
				Entity:  in.Name(),
				Column:  c.Name,
				Message: "rename target already exists",
			}
		}
		seen[c.Name] = struct{}{}
	}
	return in.WithColumns(cols)
}
