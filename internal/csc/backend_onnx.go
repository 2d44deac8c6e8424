//go:build onnx
// +build onnx

package csc

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// onnxCorrector runs a MacBERT4CSC-style checkpoint with ONNX Runtime.
// The model is character-level: one logit distribution over the vocab per
// input position, where the argmax is the corrected character.
type onnxCorrector struct {
	session    *ort.DynamicAdvancedSession
	vocab      *Vocab
	inputNames []string
	maxLength  int
	logger     *zap.Logger
	ready      bool
	mu         sync.RWMutex
}

// NewCorrector initializes the ONNX Runtime backend. On any setup failure
// it returns a permanently unavailable corrector instead of an error, so
// the rest of the engine keeps running without the model.
func NewCorrector(cfg Config, logger *zap.Logger) Corrector {
	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		logger.Error("ONNX Runtime environment init failed", zap.Error(err))
		return failed{}
	}

	vocab, err := LoadVocab(cfg.VocabPath)
	if err != nil {
		logger.Error("Failed to load correction vocab", zap.Error(err), zap.String("path", cfg.VocabPath))
		return failed{}
	}

	inputsInfo, outputsInfo, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		logger.Error("Failed to inspect correction model IO", zap.Error(err), zap.String("model", cfg.ModelPath))
		return failed{}
	}
	if len(outputsInfo) == 0 {
		logger.Error("Correction model reports no outputs", zap.String("model", cfg.ModelPath))
		return failed{}
	}
	inputNames := make([]string, 0, len(inputsInfo))
	for _, ii := range inputsInfo {
		inputNames = append(inputNames, ii.Name)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, []string{outputsInfo[0].Name}, nil)
	if err != nil {
		logger.Error("Correction model session creation failed", zap.Error(err))
		return failed{}
	}

	logger.Info("Spelling-correction model ready",
		zap.String("model", cfg.ModelPath),
		zap.Int("vocab_size", vocab.Size()),
		zap.Int("max_length", cfg.MaxLength))
	return &onnxCorrector{
		session:    session,
		vocab:      vocab,
		inputNames: inputNames,
		maxLength:  cfg.MaxLength,
		logger:     logger,
		ready:      true,
	}
}

func (c *onnxCorrector) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready && c.session != nil
}

func (c *onnxCorrector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	ort.DestroyEnvironment()
	c.ready = false
	return nil
}

// Correct runs one inference and reassembles the corrected text. Only
// CJK-to-CJK substitutions are trusted; every other position keeps the
// original rune.
func (c *onnxCorrector) Correct(ctx context.Context, text string) (string, []float32, error) {
	if !c.Available() {
		return "", nil, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	ids, encoded := c.vocab.EncodeChars(text, c.maxLength)
	seqLen := len(ids)
	attention := make([]int64, seqLen)
	tokenTypes := make([]int64, seqLen)
	for i := range attention {
		attention[i] = 1
	}

	shape := ort.NewShape(1, int64(seqLen))
	idsTensor, err := ort.NewTensor[int64](shape, ids)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor[int64](shape, attention)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor[int64](shape, tokenTypes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	inputs := make([]ort.Value, 0, len(c.inputNames))
	for _, name := range c.inputNames {
		switch name {
		case "attention_mask":
			inputs = append(inputs, maskTensor)
		case "token_type_ids":
			inputs = append(inputs, typeTensor)
		default:
			inputs = append(inputs, idsTensor)
		}
	}

	outputs := make([]ort.Value, 1)
	if err := c.session.Run(inputs, outputs); err != nil {
		return "", nil, fmt.Errorf("correction inference failed: %w", err)
	}
	defer func() {
		if outputs[0] != nil {
			_ = outputs[0].Destroy()
		}
	}()

	logits, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return "", nil, fmt.Errorf("unexpected output type (want float32 tensor)")
	}
	outShape := logits.GetShape()
	if len(outShape) != 3 {
		return "", nil, fmt.Errorf("unexpected logits shape %v", outShape)
	}
	vocabSize := int(outShape[2])
	data := logits.GetData()

	runes := []rune(text)
	corrected := make([]rune, len(runes))
	copy(corrected, runes)
	confidences := make([]float32, len(runes))
	for i := range confidences {
		confidences[i] = 1
	}

	// Position i of the text is token i+1 (after [CLS]).
	for i := 0; i < encoded; i++ {
		offset := (i + 1) * vocabSize
		if offset+vocabSize > len(data) {
			break
		}
		best, prob := argmaxProb(data[offset : offset+vocabSize])
		predicted := []rune(c.vocab.Token(int64(best)))
		if len(predicted) != 1 {
			continue
		}
		if !IsCJK(runes[i]) || !IsCJK(predicted[0]) {
			continue
		}
		confidences[i] = prob
		if predicted[0] != runes[i] {
			corrected[i] = predicted[0]
		}
	}

	return string(corrected), confidences, nil
}

// argmaxProb returns the index of the largest logit and its softmax
// probability.
func argmaxProb(logits []float32) (int, float32) {
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	var sum float64
	max := float64(logits[best])
	for _, v := range logits {
		sum += math.Exp(float64(v) - max)
	}
	return best, float32(1 / sum)
}

// failed is returned when backend setup did not complete.
type failed struct{}

func (failed) Available() bool { return false }

func (failed) Correct(context.Context, string) (string, []float32, error) {
	return "", nil, ErrUnavailable
}

func (failed) Close() error { return nil }
