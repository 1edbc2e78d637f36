package predictor

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Linear computes w·x + b.
type Linear struct {
	weights *mat.VecDense
	bias    float64
}

// NewLinear builds a linear model from its coefficients.
func NewLinear(weights []float64, bias float64) (*Linear, error) {
	if len(weights) == 0 {
		return nil, errors.New("linear model has no weights")
	}
	w := make([]float64, len(weights))
	copy(w, weights)
	return &Linear{weights: mat.NewVecDense(len(w), w), bias: bias}, nil
}

// Predict returns the linear response for x.
func (l *Linear) Predict(ctx context.Context, x []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkShape(l.weights.Len(), x); err != nil {
		return 0, err
	}
	return l.score(x), nil
}

func (l *Linear) score(x []float64) float64 {
	xv := mat.NewVecDense(len(x), append([]float64(nil), x...))
	return mat.Dot(l.weights, xv) + l.bias
}

// Logistic is a binary classifier returning the class label 0 or 1.
type Logistic struct {
	lin       *Linear
	threshold float64
}

// NewLogistic builds a logistic classifier. A threshold outside (0,1) falls
// back to 0.5.
func NewLogistic(weights []float64, bias, threshold float64) (*Logistic, error) {
	lin, err := NewLinear(weights, bias)
	if err != nil {
		return nil, err
	}
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}
	return &Logistic{lin: lin, threshold: threshold}, nil
}

// Predict returns 1 when the positive-class probability reaches the threshold.
func (l *Logistic) Predict(ctx context.Context, x []float64) (float64, error) {
	p, err := l.Probability(ctx, x)
	if err != nil {
		return 0, err
	}
	if p >= l.threshold {
		return 1, nil
	}
	return 0, nil
}

// Probability returns the positive-class probability for x.
func (l *Logistic) Probability(ctx context.Context, x []float64) (float64, error) {
	z, err := l.lin.Predict(ctx, x)
	if err != nil {
		return 0, err
	}
	return 1 / (1 + math.Exp(-z)), nil
}
