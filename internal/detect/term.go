package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhcheck/zhcheck/internal/issue"
	"github.com/zhcheck/zhcheck/internal/rules"
)

// Term scans for occurrences of non-compliant terms and organization
// names and suggests the mapped compliant replacements.
type Term struct{}

// NewTerm creates the term compliance detector.
func NewTerm() *Term { return &Term{} }

// Kind implements Detector.
func (*Term) Kind() issue.Kind { return issue.KindTermCompliance }

// Scan implements Detector.
func (*Term) Scan(ctx context.Context, text string, snap *rules.Snapshot) ([]issue.Issue, error) {
	if !snap.Available(rules.CategoryTerms) {
		return nil, fmt.Errorf("term table: %w", ErrUnavailable)
	}

	runes := []rune(text)
	offsets := byteToRuneOffsets(text)
	var issues []issue.Issue
	for _, rule := range snap.Terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		suggestion := strings.Join(rule.Suggestions, "、")
		for from := 0; ; {
			idx := strings.Index(text[from:], rule.Term)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(rule.Term)
			issues = append(issues, issue.New(issue.KindTermCompliance, runes,
				offsets[start], offsets[end],
				suggestion, rule.Hint, rule.Confidence, rule.Term))
			from = end
		}
	}
	return issues, nil
}
