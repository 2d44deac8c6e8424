// Package engine orchestrates the detectors: it fans a scan out over the
// enabled detectors concurrently, aggregates their raw findings into one
// deterministic report, and tracks per-detector status so a degraded
// capability is visible instead of silently empty.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhcheck/zhcheck/internal/detect"
	"github.com/zhcheck/zhcheck/internal/issue"
	"github.com/zhcheck/zhcheck/internal/rules"
)

// Input validation failures, rejected at the boundary before any
// detector runs.
var (
	ErrEmptyText   = errors.New("text is empty")
	ErrInvalidText = errors.New("text is not valid UTF-8")
)

// Result is one scan's outcome.
type Result struct {
	Issues       []issue.Issue               `json:"issues"`
	Summary      issue.Summary               `json:"summary"`
	Statuses     map[issue.Kind]issue.Status `json:"statuses"`
	RulesVersion int64                       `json:"rules_version"`
	DurationMS   float64                     `json:"duration_ms"`
}

// Engine runs scans over a fixed set of detectors and one rule store.
type Engine struct {
	store     *rules.Store
	detectors []detect.Detector
	cfg       AggregateConfig
	logger    *zap.Logger
}

// New creates an engine. Detector order is irrelevant: aggregation
// imposes its own total order.
func New(store *rules.Store, detectors []detect.Detector, cfg AggregateConfig, logger *zap.Logger) *Engine {
	return &Engine{
		store:     store,
		detectors: detectors,
		cfg:       cfg,
		logger:    logger,
	}
}

// Check scans text with the detectors selected by modes (nil means all).
// Detectors run concurrently over the same captured rule snapshot; one
// detector failing or being unavailable never aborts the others.
// Cancelling ctx abandons in-flight detectors and returns the context
// error.
func (e *Engine) Check(ctx context.Context, text string, modes issue.ModeSet) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if !utf8.ValidString(text) {
		return nil, ErrInvalidText
	}
	if modes == nil {
		modes = issue.DefaultModes()
	}

	start := time.Now()
	snap := e.store.Snapshot()

	var (
		mu       sync.Mutex
		raw      []issue.Issue
		statuses = make(map[issue.Kind]issue.Status, len(e.detectors))
	)
	for _, k := range issue.AllKinds() {
		statuses[k] = issue.StatusDisabled
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range e.detectors {
		kind := d.Kind()
		if !modes.Enabled(kind) {
			continue
		}
		d := d
		g.Go(func() error {
			found, err := d.Scan(gctx, text, snap)
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) && gctx.Err() != nil {
				// Scan-level cancellation, not a detector fault.
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, detect.ErrUnavailable):
				statuses[kind] = issue.StatusUnavailable
				e.logger.Warn("Detector unavailable",
					zap.String("kind", string(kind)), zap.Error(err))
			case err != nil:
				statuses[kind] = issue.StatusFailed
				e.logger.Error("Detector failed",
					zap.String("kind", string(kind)), zap.Error(err))
			default:
				statuses[kind] = issue.StatusOK
				raw = append(raw, found...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	valid := raw[:0:0]
	for _, it := range raw {
		if err := it.Validate(runes); err != nil {
			// A detector producing stale offsets is a bug; drop the
			// finding rather than ship a broken span.
			e.logger.Error("Dropping issue with invalid span",
				zap.String("kind", string(it.Kind)),
				zap.String("rule", it.SourceRuleID),
				zap.Error(err))
			continue
		}
		valid = append(valid, it)
	}

	aggregated := Aggregate(valid, e.cfg)
	result := &Result{
		Issues:       aggregated,
		Summary:      issue.Summarize(aggregated),
		Statuses:     statuses,
		RulesVersion: snap.Version,
		DurationMS:   float64(time.Since(start).Microseconds()) / 1000,
	}

	e.logger.Debug("Scan completed",
		zap.Int("text_runes", len(runes)),
		zap.Int("raw_issues", len(raw)),
		zap.Int("issues", len(aggregated)),
		zap.Int64("rules_version", snap.Version),
		zap.Float64("duration_ms", result.DurationMS))
	return result, nil
}

// RulesVersion reports the version of the snapshot a new scan would use.
func (e *Engine) RulesVersion() int64 {
	return e.store.Snapshot().Version
}

// Diagnostics exposes the current snapshot's skipped-entry list for
// operator endpoints.
func (e *Engine) Diagnostics() []rules.Diagnostic {
	return e.store.Snapshot().Diagnostics
}

// ReloadRules swaps in a freshly compiled rule snapshot. In-flight scans
// finish against the snapshot they already captured.
func (e *Engine) ReloadRules() *rules.Snapshot {
	snap := e.store.Invalidate()
	e.logger.Info("Rules reloaded on request", zap.Int64("version", snap.Version))
	return snap
}

// String describes the engine for the info endpoint.
func (e *Engine) String() string {
	kinds := make([]string, 0, len(e.detectors))
	for _, d := range e.detectors {
		kinds = append(kinds, string(d.Kind()))
	}
	return fmt.Sprintf("engine(%s)", strings.Join(kinds, ","))
}
