//go:build !onnx
// +build !onnx

package csc

import (
	"context"

	"go.uber.org/zap"
)

// NewCorrector returns a corrector that reports itself unavailable.
// The ONNX backend requires the 'onnx' build tag.
func NewCorrector(cfg Config, logger *zap.Logger) Corrector {
	logger.Info("Spelling-correction model disabled (built without onnx tag)")
	return unavailable{}
}

type unavailable struct{}

func (unavailable) Available() bool { return false }

func (unavailable) Correct(context.Context, string) (string, []float32, error) {
	return "", nil, ErrUnavailable
}

func (unavailable) Close() error { return nil }
