package pipeline

import (
	"context"

	"github.com/pkg/errors"
)

// Processor is the domain logic run by a stage on every package. It mutates the package in place, usually by
// appending one layer. An error stops the stage worker.
type Processor interface {
	Process(ctx context.Context, pkg *Package) error
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(ctx context.Context, pkg *Package) error

// Process calls fn.
func (fn ProcessorFunc) Process(ctx context.Context, pkg *Package) error {
	if pkg == nil {
		return errors.Wrap(ErrTypeMismatch, "expected a package, got nil")
	}

	return fn(ctx, pkg)
}

// Transform returns a processor reading the output layer as an I and appending the O computed by fn.
// A package whose output layer is not an I fails with ErrTypeMismatch.
func Transform[I, O any](fn func(ctx context.Context, input I) (O, error)) Processor {
	return ProcessorFunc(func(ctx context.Context, pkg *Package) error {
		layer, err := pkg.Output()
		if err != nil {
			return err
		}
		in, ok := layer.(I)
		if !ok {
			var zero I

			return errors.Wrapf(ErrTypeMismatch, "expected %T, got %T", zero, layer)
		}
		out, err := fn(ctx, in)
		if err != nil {
			return err
		}
		pkg.AddLayer(out)

		return nil
	})
}
