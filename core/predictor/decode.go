package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kilianp07/evsense/core/factory"
)

var formats = factory.NewRegistry[Predictor]()

func init() {
	formats.MustRegister("linear", func(conf map[string]any) (Predictor, error) {
		var c struct {
			Inputs  int       `json:"inputs"`
			Weights []float64 `json:"weights"`
			Bias    float64   `json:"bias"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if err := checkInputs(c.Inputs, len(c.Weights)); err != nil {
			return nil, err
		}
		return NewLinear(c.Weights, c.Bias)
	})
	formats.MustRegister("logistic", func(conf map[string]any) (Predictor, error) {
		var c struct {
			Inputs    int       `json:"inputs"`
			Weights   []float64 `json:"weights"`
			Bias      float64   `json:"bias"`
			Threshold float64   `json:"threshold"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if err := checkInputs(c.Inputs, len(c.Weights)); err != nil {
			return nil, err
		}
		return NewLogistic(c.Weights, c.Bias, c.Threshold)
	})
	formats.MustRegister("forest", func(conf map[string]any) (Predictor, error) {
		var c struct {
			Inputs int    `json:"inputs"`
			Trees  []Tree `json:"trees"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewForest(c.Inputs, c.Trees)
	})
}

// Formats lists the artifact formats Load understands.
func Formats() []string { return formats.Names() }

// Load decodes one artifact document into a ready Predictor.
func Load(r io.Reader) (Predictor, error) {
	var doc map[string]any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	format, _ := doc["format"].(string)
	if format == "" {
		return nil, errors.New("artifact has no format")
	}
	p, err := formats.Create(factory.ModuleConfig{Type: format, Conf: doc})
	if err != nil {
		return nil, fmt.Errorf("load %s artifact: %w", format, err)
	}
	return p, nil
}

func checkInputs(declared, weights int) error {
	if declared != 0 && declared != weights {
		return fmt.Errorf("declared %d inputs but %d weights", declared, weights)
	}
	return nil
}
