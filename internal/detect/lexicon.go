package detect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zhcheck/zhcheck/internal/issue"
	"github.com/zhcheck/zhcheck/internal/rules"
)

const lexiconConfidence = 0.72

// Lexicon flags likely confusable-character substitutions. For every
// two-rune window it tries substituting each character's confusables; a
// window is flagged only when the substituted form is attested in the
// dictionary while the original window is not a dictionary word and is
// not whitelisted. The asymmetry is the false-positive guard: a window
// that is itself a valid word is never flagged.
type Lexicon struct{}

// NewLexicon creates the confusion detector.
func NewLexicon() *Lexicon { return &Lexicon{} }

// Kind implements Detector.
func (*Lexicon) Kind() issue.Kind { return issue.KindConfusion }

// Scan implements Detector.
func (*Lexicon) Scan(ctx context.Context, text string, snap *rules.Snapshot) ([]issue.Issue, error) {
	if !snap.Available(rules.CategoryConfusion) {
		return nil, fmt.Errorf("confusion table: %w", ErrUnavailable)
	}
	if !snap.Available(rules.CategoryLexicon) {
		return nil, fmt.Errorf("lexicon: %w", ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	var issues []issue.Issue
	for i := 0; i+1 < len(runes); i++ {
		if !isCJK(runes[i]) || !isCJK(runes[i+1]) {
			continue
		}
		window := string(runes[i : i+2])
		if _, valid := snap.Words[window]; valid {
			continue
		}
		if _, listed := snap.Whitelist[window]; listed {
			continue
		}

		candidates := make(map[string]string) // candidate word -> similarity class
		for pos := 0; pos < 2; pos++ {
			for _, alt := range snap.Confusion[runes[i+pos]] {
				var cand string
				if pos == 0 {
					cand = string(alt.Char) + string(runes[i+1])
				} else {
					cand = string(runes[i]) + string(alt.Char)
				}
				if cand == window {
					continue
				}
				if _, attested := snap.Words[cand]; attested {
					candidates[cand] = alt.Class
				}
			}
		}
		if len(candidates) == 0 {
			continue
		}

		words := make([]string, 0, len(candidates))
		for w := range candidates {
			words = append(words, w)
		}
		sort.Strings(words)
		issues = append(issues, issue.New(issue.KindConfusion, runes, i, i+2,
			strings.Join(words, "、"),
			hintFor(candidates[words[0]], words[0]),
			lexiconConfidence, ""))
	}
	return issues, nil
}

func hintFor(class, candidate string) string {
	switch class {
	case rules.ClassPhonetic:
		return fmt.Sprintf("疑为音近字误写，常用词为“%s”", candidate)
	case rules.ClassShape:
		return fmt.Sprintf("疑为形近字误写，常用词为“%s”", candidate)
	default:
		return fmt.Sprintf("疑为混淆字误写，常用词为“%s”", candidate)
	}
}
