// Package processors provides the built-in text processors and registers them on a pipeline registry.
//
// Text processors read the output layer of a package as a string and append the transformed string as a new layer.
package processors

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-dframe/pkg/pipeline"
)

// Registered processor names.
const (
	UppercaseName = "uppercase"
	ReverseName   = "reverse"
	MarkerName    = "marker"
	SuffixName    = "suffix"
	DelayName     = "delay"
)

// Register adds every built-in processor to reg.
func Register(reg *pipeline.Registry) {
	reg.Register(UppercaseName, func(pipeline.Params) (pipeline.Processor, error) {
		return Uppercase(), nil
	})
	reg.Register(ReverseName, func(pipeline.Params) (pipeline.Processor, error) {
		return Reverse(), nil
	})
	reg.Register(MarkerName, newMarker)
	reg.Register(SuffixName, newSuffix)
	reg.Register(DelayName, newDelay)
}

// Uppercase appends the output layer in upper case.
func Uppercase() pipeline.Processor {
	return pipeline.Transform(func(_ context.Context, in string) (string, error) {
		return strings.ToUpper(in), nil
	})
}

// Reverse appends the output layer with its runes in reverse order.
func Reverse() pipeline.Processor {
	return pipeline.Transform(func(_ context.Context, in string) (string, error) {
		runes := []rune(in)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}

		return string(runes), nil
	})
}

// Marker appends value to every package, whatever its output layer.
func Marker(value any) pipeline.Processor {
	return pipeline.ProcessorFunc(func(_ context.Context, pkg *pipeline.Package) error {
		pkg.AddLayer(value)

		return nil
	})
}

func newMarker(params pipeline.Params) (pipeline.Processor, error) {
	value, ok := params["value"]
	if !ok {
		return nil, errors.Wrap(pipeline.ErrInvalidParam, "value is required")
	}

	return Marker(value), nil
}

// Suffix appends the output layer followed by suffix.
func Suffix(suffix string) pipeline.Processor {
	return pipeline.Transform(func(_ context.Context, in string) (string, error) {
		return in + suffix, nil
	})
}

func newSuffix(params pipeline.Params) (pipeline.Processor, error) {
	suffix, err := params.String("value", "")
	if err != nil {
		return nil, err
	}

	return Suffix(suffix), nil
}

// Delay holds every package for d and leaves it unchanged. The wait ends early, with the context error, when the
// stage is terminated.
func Delay(d time.Duration) pipeline.Processor {
	return pipeline.ProcessorFunc(func(ctx context.Context, _ *pipeline.Package) error {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "delay interrupted")
		case <-timer.C:
			return nil
		}
	})
}

func newDelay(params pipeline.Params) (pipeline.Processor, error) {
	d, err := params.Duration("duration", 0)
	if err != nil {
		return nil, err
	}
	if d < 0 {
		return nil, errors.Wrapf(pipeline.ErrInvalidParam, "duration must not be negative, got %s", d)
	}

	return Delay(d), nil
}
