package predictor

import (
	"context"
	"errors"
	"fmt"
)

// ErrInputShape is returned when the input vector length does not match the
// number of features the model was trained on.
var ErrInputShape = errors.New("input shape mismatch")

// Predictor maps one input vector to one output value. Implementations must be
// deterministic for a given artifact.
type Predictor interface {
	Predict(ctx context.Context, x []float64) (float64, error)
}

// Func adapts a plain function to Predictor.
type Func func(ctx context.Context, x []float64) (float64, error)

// Predict calls f.
func (f Func) Predict(ctx context.Context, x []float64) (float64, error) { return f(ctx, x) }

func checkShape(want int, x []float64) error {
	if len(x) != want {
		return fmt.Errorf("%w: got %d features, want %d", ErrInputShape, len(x), want)
	}
	return nil
}
