package schema

import (
	"context"

	"github.com/pkg/errors"
)

// TransformFunc rewrites a field value before it is persisted (e.g. hashing a password).
// It may block; it runs once per write and never on read.
type TransformFunc func(ctx context.Context, value interface{}) (interface{}, error)

// Transform applies the transforms of every present, non-nil field, in order.
// rec is left untouched; the transformed copy is returned.
func Transform(ctx context.Context, s *Schema, rec Record) (Record, error) {
	out := make(Record, len(rec))
	for col, v := range rec {
		out[col] = v
	}

	for _, f := range s.fields {
		v, ok := out[f.Column]
		if !ok || v == nil || len(f.Transforms) == 0 {
			continue
		}
		for _, fn := range f.Transforms {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			var err error
			if v, err = fn(ctx, v); err != nil {
				return nil, errors.Wrapf(err, "transforming %s", f.Name)
			}
		}
		out[f.Column] = v
	}
	return out, nil
}
