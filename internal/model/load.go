package model

import (
	"slices"

	"github.com/ekisa-team/some/internal/tensor"
)

// LoadStateDict copies sd into the module's parameters. Every declared
// parameter must be present with a matching shape and every entry of sd must
// be consumed; otherwise nothing is written and a *MismatchError is returned.
func LoadStateDict(m Module, sd tensor.Map) error {
	params := m.Parameters()

	var merr MismatchError
	for _, name := range params.Keys() {
		src, ok := sd[name]
		if !ok {
			merr.Missing = append(merr.Missing, name)
			continue
		}
		if dst := params[name]; !dst.SameShape(src) {
			merr.Shapes = append(merr.Shapes, ShapeMismatch{
				Name: name,
				Want: slices.Clone(dst.Shape),
				Got:  slices.Clone(src.Shape),
			})
		}
	}
	for _, name := range sd.Keys() {
		if _, ok := params[name]; !ok {
			merr.Unexpected = append(merr.Unexpected, name)
		}
	}

	if len(merr.Missing) > 0 || len(merr.Unexpected) > 0 || len(merr.Shapes) > 0 {
		return &merr
	}

	for name, dst := range params {
		copy(dst.Data, sd[name].Data)
	}
	return nil
}
