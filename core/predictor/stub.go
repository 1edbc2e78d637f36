package predictor

import (
	"context"
	"sync"
)

// Stub is a deterministic Predictor for tests. It returns Value, or the result
// of Fn when set, and records every input it receives.
type Stub struct {
	Value float64
	Err   error
	Fn    func(x []float64) (float64, error)

	mu     sync.Mutex
	inputs [][]float64
}

// Predict records x and returns the configured output.
func (s *Stub) Predict(_ context.Context, x []float64) (float64, error) {
	s.mu.Lock()
	cp := make([]float64, len(x))
	copy(cp, x)
	s.inputs = append(s.inputs, cp)
	s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	if s.Fn != nil {
		return s.Fn(x)
	}
	return s.Value, nil
}

// Inputs returns a copy of the recorded input vectors.
func (s *Stub) Inputs() [][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]float64, len(s.inputs))
	copy(out, s.inputs)
	return out
}
