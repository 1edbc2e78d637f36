package predictor

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Node is one entry of a flattened decision tree.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest averages the outputs of its trees.
type Forest struct {
	trees  []Tree
	inputs int
}

// NewForest validates the trees and returns the ensemble. Children must point
// forward in the node slice, which rules out cycles.
func NewForest(inputs int, trees []Tree) (*Forest, error) {
	if inputs <= 0 {
		return nil, errors.New("forest inputs must be positive")
	}
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	for ti, t := range trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Feature < 0 {
				continue
			}
			if n.Feature >= inputs {
				return nil, fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("tree %d node %d: invalid children", ti, ni)
			}
		}
	}
	return &Forest{trees: trees, inputs: inputs}, nil
}

// Predict returns the mean tree output for x.
func (f *Forest) Predict(ctx context.Context, x []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkShape(f.inputs, x); err != nil {
		return 0, err
	}
	out := make([]float64, len(f.trees))
	for i, t := range f.trees {
		out[i] = t.eval(x)
	}
	return floats.Sum(out) / float64(len(out)), nil
}

func (t Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
