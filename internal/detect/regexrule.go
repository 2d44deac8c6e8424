package detect

import (
	"context"
	"fmt"

	"github.com/zhcheck/zhcheck/internal/issue"
	"github.com/zhcheck/zhcheck/internal/rules"
)

// RegexRule runs every compiled declarative regex rule over the text and
// resolves each rule's suggestion template against the match's capture
// groups.
type RegexRule struct{}

// NewRegexRule creates the regex rule detector.
func NewRegexRule() *RegexRule { return &RegexRule{} }

// Kind implements Detector.
func (*RegexRule) Kind() issue.Kind { return issue.KindRegexRule }

// Scan implements Detector.
func (*RegexRule) Scan(ctx context.Context, text string, snap *rules.Snapshot) ([]issue.Issue, error) {
	if !snap.Available(rules.CategoryRegex) {
		return nil, fmt.Errorf("regex rules: %w", ErrUnavailable)
	}

	runes := []rune(text)
	offsets := byteToRuneOffsets(text)
	var issues []issue.Issue
	for _, rule := range snap.RegexRules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, m := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
			groups := make([]string, len(m)/2)
			for g := 0; g < len(m)/2; g++ {
				if m[2*g] >= 0 {
					groups[g] = text[m[2*g]:m[2*g+1]]
				}
			}
			suggestion := rules.ExpandTemplate(rule.SuggestTemplate, groups)
			issues = append(issues, issue.New(issue.KindRegexRule, runes,
				offsets[m[0]], offsets[m[1]],
				suggestion, rule.Hint, rule.Confidence, rule.ID))
		}
	}
	return issues, nil
}
