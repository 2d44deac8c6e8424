// Package csc wraps an opaque Chinese spelling-correction model behind a
// small capability interface. The engine treats it like any other
// detector input: available or not, corrected text plus per-position
// confidence when it is.
//
// The backend is selected at build time: the default build returns a
// permanently unavailable corrector so the binary carries no CGO
// dependency; building with -tags onnx enables the ONNX Runtime backend.
package csc

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable signals that the backing model is not loaded or not
// reachable. Callers must keep this distinct from "ran and found nothing".
var ErrUnavailable = errors.New("correction model unavailable")

// Corrector is the spelling-correction capability. Correct returns the
// corrected text and one confidence per rune of the input (nil when the
// backend does not score positions).
type Corrector interface {
	// Available reports whether the model can serve requests right now.
	Available() bool
	// Correct runs the model. Implementations must respect ctx deadlines.
	Correct(ctx context.Context, text string) (corrected string, confidences []float32, err error)
	// Close releases any native resources.
	Close() error
}

// Config selects and bounds the model backend.
type Config struct {
	ModelPath string        `yaml:"model_path" mapstructure:"model_path"`
	VocabPath string        `yaml:"vocab_path" mapstructure:"vocab_path"`
	MaxLength int           `yaml:"max_length" mapstructure:"max_length"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}
