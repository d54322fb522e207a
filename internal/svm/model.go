// Package svm loads and evaluates the persisted (scaler, model) artifact
// pairs exported by the offline training pipeline. An artifact is a JSON
// document holding a standard scaler and the per-class linear decision
// functions of a one-vs-rest SVM, plus optional Platt calibration so that
// confidences are real probabilities where the trainer provided them.
package svm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/reyeslabs/lexigrade/internal/models"
)

// ErrModelUnavailable is returned when the artifact is missing or cannot
// be deserialized. Callers treat it as a normal condition and fall back to
// heuristic scoring; it must never surface as a request failure.
var ErrModelUnavailable = errors.New("model artifact unavailable")

// Scaler is a fitted standard scaler: z = (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// PlattParams are the per-class sigmoid calibration parameters
// p = 1 / (1 + exp(a*score + b)).
type PlattParams struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Artifact is the on-disk layout of a persisted model. Labels are ordered
// from least to most advanced; that ordering carries the tie-break policy.
type Artifact struct {
	Version    string               `json:"version"`
	Labels     []string             `json:"labels"`
	Scaler     Scaler               `json:"scaler"`
	Weights    [][]float64          `json:"weights"`    // one decision function per label
	Intercepts []float64            `json:"intercepts"` // one per label
	Platt      []PlattParams        `json:"platt,omitempty"`
	Metrics    *models.ModelMetrics `json:"metrics,omitempty"`
}

// Model is a loaded artifact, immutable after Load.
type Model struct {
	art Artifact
}

// Load reads and validates an artifact. Any failure maps to
// ErrModelUnavailable so callers need only one capability check.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrModelUnavailable, path, err)
	}

	if err := validate(art); err != nil {
		return nil, fmt.Errorf("%w: invalid artifact %s: %v", ErrModelUnavailable, path, err)
	}

	return &Model{art: art}, nil
}

func validate(art Artifact) error {
	if art.Version == "" {
		return fmt.Errorf("artifact declares no version")
	}
	n := len(art.Labels)
	if n < 2 {
		return fmt.Errorf("need at least 2 labels, got %d", n)
	}
	if len(art.Weights) != n || len(art.Intercepts) != n {
		return fmt.Errorf("weights/intercepts do not match %d labels", n)
	}
	dim := len(art.Scaler.Mean)
	if dim == 0 || len(art.Scaler.Scale) != dim {
		return fmt.Errorf("scaler mean/scale dimension mismatch")
	}
	for i, w := range art.Weights {
		if len(w) != dim {
			return fmt.Errorf("weight row %d has dimension %d, want %d", i, len(w), dim)
		}
	}
	if len(art.Platt) != 0 && len(art.Platt) != n {
		return fmt.Errorf("platt params do not match %d labels", n)
	}
	return nil
}

// Version returns the artifact's model identifier.
func (m *Model) Version() string { return m.art.Version }

// Labels returns the label enumeration, least to most advanced.
func (m *Model) Labels() []string { return m.art.Labels }

// Metrics returns the stored evaluation metadata, if any.
func (m *Model) Metrics() *models.ModelMetrics { return m.art.Metrics }

// Predict scales the vector, evaluates every decision function, and
// returns the winning label with its confidence. Confidence is a Platt
// probability when the artifact is calibrated and a softmax-normalized
// decision margin otherwise. When the top two confidences sit within
// tieMargin, the less advanced label wins: conservative grading over
// overstating ability.
func (m *Model) Predict(vector []float64, tieMargin float64) (string, float64, error) {
	dim := len(m.art.Scaler.Mean)
	if len(vector) != dim {
		return "", 0, fmt.Errorf("feature vector has dimension %d, model expects %d", len(vector), dim)
	}

	scaled := make([]float64, dim)
	for i, x := range vector {
		scale := m.art.Scaler.Scale[i]
		if scale == 0 {
			scale = 1
		}
		scaled[i] = (x - m.art.Scaler.Mean[i]) / scale
	}

	scores := make([]float64, len(m.art.Labels))
	for i, w := range m.art.Weights {
		s := m.art.Intercepts[i]
		for j, x := range scaled {
			s += w[j] * x
		}
		scores[i] = s
	}

	probs := m.confidences(scores)

	best, second := 0, -1
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			second = best
			best = i
		} else if second == -1 || probs[i] > probs[second] {
			second = i
		}
	}

	// Prefer the lower label on a near-tie. Labels are ordered ascending,
	// so the smaller index is the less advanced one.
	if second >= 0 && second < best && probs[best]-probs[second] <= tieMargin {
		best = second
	}

	return m.art.Labels[best], probs[best], nil
}

// confidences maps raw decision scores to values in [0,1] that sum to 1.
func (m *Model) confidences(scores []float64) []float64 {
	probs := make([]float64, len(scores))

	if len(m.art.Platt) == len(scores) {
		var sum float64
		for i, s := range scores {
			probs[i] = 1 / (1 + math.Exp(m.art.Platt[i].A*s+m.art.Platt[i].B))
			sum += probs[i]
		}
		if sum > 0 {
			for i := range probs {
				probs[i] /= sum
			}
			return probs
		}
	}

	// Softmax over decision margins as a probability proxy.
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Holder lazily loads one artifact exactly once, no matter how many
// concurrent requests hit it first. The loaded model is read-only, so
// unsynchronized reads after the once are safe.
type Holder struct {
	path string
	once sync.Once

	model *Model
	err   error
}

// NewHolder creates a holder for the artifact at path. Nothing is read
// until the first Get.
func NewHolder(path string) *Holder {
	return &Holder{path: path}
}

// Get returns the loaded model, loading it on first use. A missing
// artifact keeps returning ErrModelUnavailable on every call.
func (h *Holder) Get() (*Model, error) {
	h.once.Do(func() {
		if h.path == "" {
			h.err = fmt.Errorf("%w: no artifact path configured", ErrModelUnavailable)
			return
		}
		h.model, h.err = Load(h.path)
	})
	return h.model, h.err
}

// Available reports whether the trained path can serve predictions. This
// is the capability check that selects trained vs heuristic scoring.
func (h *Holder) Available() bool {
	_, err := h.Get()
	return err == nil
}
