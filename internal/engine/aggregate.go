package engine

import (
	"sort"

	"github.com/zhcheck/zhcheck/internal/issue"
)

// AggregateConfig controls overlap resolution.
type AggregateConfig struct {
	// AllowStacked skips overlap resolution entirely; only exact
	// duplicates within a kind are collapsed.
	AllowStacked bool `yaml:"allow_stacked" mapstructure:"allow_stacked"`
	// KeepSameKindOverlaps tracks overlapping findings from different
	// rules of the same kind as independent issues instead of running
	// them through the cross-kind priority resolution.
	KeepSameKindOverlaps bool `yaml:"keep_same_kind_overlaps" mapstructure:"keep_same_kind_overlaps"`
}

// Aggregate resolves the union of all detectors' raw issues into one
// ordered report. With default configuration the result is strictly
// non-overlapping: on any shared codepoint range the issue with higher
// confidence survives, ties going to the fixed kind priority. A losing
// issue is dropped, not merged. The output is deterministic for a fixed
// input set regardless of detector completion order.
func Aggregate(raw []issue.Issue, cfg AggregateConfig) []issue.Issue {
	if len(raw) == 0 {
		return []issue.Issue{}
	}

	sorted := make([]issue.Issue, len(raw))
	copy(sorted, raw)
	sortIssues(sorted)
	deduped := dedupeExact(sorted)

	if cfg.AllowStacked {
		return deduped
	}

	var out []issue.Issue
	var stacked []issue.Issue
	open := deduped[0]
	for _, cand := range deduped[1:] {
		if !cand.Overlaps(open) {
			out = append(out, open)
			open = cand
			continue
		}
		if cfg.KeepSameKindOverlaps && cand.Kind == open.Kind && cand.SourceRuleID != open.SourceRuleID {
			stacked = append(stacked, cand)
			continue
		}
		if beats(cand, open) {
			open = cand
		}
	}
	out = append(out, open)

	if len(stacked) > 0 {
		out = append(out, stacked...)
		sortIssues(out)
	}
	return out
}

// sortIssues applies the total order used throughout aggregation:
// start, end, kind priority, confidence descending, then rule id and
// suggestion as final determinism tie-breakers.
func sortIssues(issues []issue.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if pa, pb := a.Kind.Priority(), b.Kind.Priority(); pa != pb {
			return pa < pb
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.SourceRuleID != b.SourceRuleID {
			return a.SourceRuleID < b.SourceRuleID
		}
		return a.Suggestion < b.Suggestion
	})
}

// dedupeExact collapses issues of the same kind with identical spans,
// keeping the first in sort order (highest confidence, then priority).
func dedupeExact(sorted []issue.Issue) []issue.Issue {
	type key struct {
		kind       issue.Kind
		start, end int
	}
	seen := make(map[key]bool, len(sorted))
	out := sorted[:0:0]
	for _, it := range sorted {
		k := key{it.Kind, it.Start, it.End}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}

// beats reports whether cand displaces the currently open issue: strictly
// higher confidence wins, a tie falls back to the fixed kind priority.
func beats(cand, open issue.Issue) bool {
	if cand.Confidence != open.Confidence {
		return cand.Confidence > open.Confidence
	}
	return cand.Kind.Priority() < open.Kind.Priority()
}
