package model

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ModelSchemaV1   = "driftwatch.model.v1"
	EncoderSchemaV1 = "driftwatch.encoder.v1"
)

// LinearModel is the trained trip-duration regressor as exported by the
// training pipeline: a weight vector over the encoder's feature space.
type LinearModel struct {
	Schema    string    `json:"schema"`
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
}

func (m LinearModel) Validate() error {
	if strings.TrimSpace(m.Schema) != ModelSchemaV1 {
		return fmt.Errorf("model schema must be %q", ModelSchemaV1)
	}
	if len(m.Weights) == 0 {
		return errors.New("model weights must be non-empty")
	}
	return nil
}

// DictEncoder maps sparse feature dictionaries onto the model's dense feature
// space. Categorical features one-hot encode as "name=value" vocabulary
// entries; numerical features map to a single entry carrying their value.
type DictEncoder struct {
	Schema     string         `json:"schema"`
	Vocabulary map[string]int `json:"vocabulary"`
}

func (e DictEncoder) Validate() error {
	if strings.TrimSpace(e.Schema) != EncoderSchemaV1 {
		return fmt.Errorf("encoder schema must be %q", EncoderSchemaV1)
	}
	if len(e.Vocabulary) == 0 {
		return errors.New("encoder vocabulary must be non-empty")
	}
	for term, idx := range e.Vocabulary {
		if idx < 0 || idx >= len(e.Vocabulary) {
			return fmt.Errorf("vocabulary index out of range for %q: %d", term, idx)
		}
	}
	return nil
}

// Transform encodes one feature dictionary. Unknown categorical values encode
// as all-zero, matching training-time behavior for unseen categories.
func (e DictEncoder) Transform(categorical map[string]string, numerical map[string]float64) []float64 {
	x := make([]float64, len(e.Vocabulary))
	for name, value := range categorical {
		if idx, ok := e.Vocabulary[name+"="+value]; ok {
			x[idx] = 1
		}
	}
	for name, value := range numerical {
		if idx, ok := e.Vocabulary[name]; ok {
			x[idx] = value
		}
	}
	return x
}

// Bundle pairs a model with the encoder it was trained against.
type Bundle struct {
	Model   LinearModel
	Encoder DictEncoder
}

func (b Bundle) Validate() error {
	if err := b.Model.Validate(); err != nil {
		return err
	}
	if err := b.Encoder.Validate(); err != nil {
		return err
	}
	if len(b.Model.Weights) != len(b.Encoder.Vocabulary) {
		return fmt.Errorf("weight count %d does not match vocabulary size %d",
			len(b.Model.Weights), len(b.Encoder.Vocabulary))
	}
	return nil
}

// Predict scores one feature dictionary.
func (b Bundle) Predict(categorical map[string]string, numerical map[string]float64) float64 {
	x := b.Encoder.Transform(categorical, numerical)
	sum := b.Model.Intercept
	for i, w := range b.Model.Weights {
		sum += w * x[i]
	}
	return sum
}
