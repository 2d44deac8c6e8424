package detect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zhcheck/zhcheck/internal/csc"
	"github.com/zhcheck/zhcheck/internal/issue"
	"github.com/zhcheck/zhcheck/internal/rules"
)

const neuralDefaultConfidence = 0.9

// Neural adapts the opaque spelling-correction model to the detector
// contract: it diffs the corrected text against the input and reports
// minimal substitution spans. The inference call is time-bounded; on
// timeout or a missing model the detector is unavailable, which the
// orchestrator keeps distinct from an empty result.
type Neural struct {
	corrector csc.Corrector
	timeout   time.Duration
}

// NewNeural creates the model-backed detector. A timeout of zero means
// no bound beyond the caller's context.
func NewNeural(corrector csc.Corrector, timeout time.Duration) *Neural {
	return &Neural{corrector: corrector, timeout: timeout}
}

// Kind implements Detector.
func (*Neural) Kind() issue.Kind { return issue.KindModelCorrection }

// Scan implements Detector. The snapshot is unused: the model is not
// rule-driven.
func (d *Neural) Scan(ctx context.Context, text string, _ *rules.Snapshot) ([]issue.Issue, error) {
	if d.corrector == nil || !d.corrector.Available() {
		return nil, fmt.Errorf("spelling model: %w", ErrUnavailable)
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	corrected, confidences, err := d.corrector.Correct(ctx, text)
	if err != nil {
		if errors.Is(err, csc.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("spelling model: %w", ErrUnavailable)
		}
		return nil, fmt.Errorf("spelling model: %w", err)
	}
	if corrected == text {
		return nil, nil
	}
	return diffIssues(text, corrected, confidences), nil
}

// diffIssues derives minimal substitution spans between the input and the
// corrected text. Equal-length output (the usual case for char-level
// correction models) is grouped into contiguous mismatch runs; otherwise
// the common prefix and suffix are trimmed and the middle reported as one
// substitution.
func diffIssues(text, corrected string, confidences []float32) []issue.Issue {
	orig := []rune(text)
	fixed := []rune(corrected)

	if len(orig) == len(fixed) {
		var issues []issue.Issue
		for i := 0; i < len(orig); {
			if orig[i] == fixed[i] {
				i++
				continue
			}
			j := i
			for j < len(orig) && orig[j] != fixed[j] {
				j++
			}
			issues = append(issues, issue.New(issue.KindModelCorrection, orig, i, j,
				string(fixed[i:j]), "拼写纠错模型建议", spanConfidence(confidences, i, j), ""))
			i = j
		}
		return issues
	}

	// Length changed: trim common prefix and suffix, report the middle.
	p := 0
	for p < len(orig) && p < len(fixed) && orig[p] == fixed[p] {
		p++
	}
	s := 0
	for s < len(orig)-p && s < len(fixed)-p && orig[len(orig)-1-s] == fixed[len(fixed)-1-s] {
		s++
	}
	start, end := p, len(orig)-s
	if start >= end && p >= len(fixed)-s {
		return nil
	}
	if start > end {
		start = end
	}
	return []issue.Issue{issue.New(issue.KindModelCorrection, orig, start, end,
		string(fixed[p:len(fixed)-s]), "拼写纠错模型建议", neuralDefaultConfidence, "")}
}

// spanConfidence is the weakest per-position model confidence inside the
// span, or the default when the backend does not score positions.
func spanConfidence(confidences []float32, start, end int) float64 {
	if len(confidences) < end {
		return neuralDefaultConfidence
	}
	min := confidences[start]
	for i := start + 1; i < end; i++ {
		if confidences[i] < min {
			min = confidences[i]
		}
	}
	return float64(min)
}
