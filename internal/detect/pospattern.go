package detect

import (
	"context"
	"fmt"

	"github.com/zhcheck/zhcheck/internal/issue"
	"github.com/zhcheck/zhcheck/internal/rules"
	"github.com/zhcheck/zhcheck/internal/tagger"
)

// POSPattern matches declarative tag-sequence rules against the token
// stream produced by the tagger collaborator. A tagger failure skips this
// detector for the current request only.
type POSPattern struct {
	tagger tagger.Tagger
}

// NewPOSPattern creates the POS pattern detector over the given tagger.
func NewPOSPattern(t tagger.Tagger) *POSPattern {
	return &POSPattern{tagger: t}
}

// Kind implements Detector.
func (*POSPattern) Kind() issue.Kind { return issue.KindPOSRule }

// Scan implements Detector.
func (d *POSPattern) Scan(ctx context.Context, text string, snap *rules.Snapshot) ([]issue.Issue, error) {
	if !snap.Available(rules.CategoryPOS) {
		return nil, fmt.Errorf("pos patterns: %w", ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens, err := d.tagger.Tag(text)
	if err != nil {
		return nil, fmt.Errorf("tagger failed: %w", err)
	}

	runes := []rune(text)
	var issues []issue.Issue
	for _, pattern := range snap.POSPatterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		issues = append(issues, matchPattern(pattern, tokens, runes)...)
	}
	return issues, nil
}

// matchPattern slides one pattern over the token sequence; a match's span
// is the union of the matched tokens' spans.
func matchPattern(pattern rules.POSPattern, tokens []tagger.Token, runes []rune) []issue.Issue {
	n := len(pattern.Sequence)
	var issues []issue.Issue
	for i := 0; i+n <= len(tokens); i++ {
		ok := true
		for j, m := range pattern.Sequence {
			if !m.Matches(tokens[i+j].Word, tokens[i+j].Tag) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		start := tokens[i].Start
		end := tokens[i+n-1].End
		issues = append(issues, issue.New(issue.KindPOSRule, runes, start, end,
			pattern.Suggest, pattern.Hint, pattern.Confidence, pattern.ID))
	}
	return issues
}
