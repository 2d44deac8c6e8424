package issue

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies which detector produced an issue.
type Kind string

const (
	KindFormat          Kind = "format"
	KindConfusion       Kind = "confusion"
	KindRegexRule       Kind = "regex_rule"
	KindPOSRule         Kind = "pos_rule"
	KindModelCorrection Kind = "model_correction"
	KindTermCompliance  Kind = "term_compliance"
)

// kindPriority is the fixed cross-detector precedence used by overlap
// resolution. Lower value wins on tied confidence.
var kindPriority = map[Kind]int{
	KindFormat:          0,
	KindConfusion:       1,
	KindRegexRule:       2,
	KindPOSRule:         3,
	KindModelCorrection: 4,
	KindTermCompliance:  5,
}

// AllKinds returns every detector kind in priority order.
func AllKinds() []Kind {
	return []Kind{
		KindFormat,
		KindConfusion,
		KindRegexRule,
		KindPOSRule,
		KindModelCorrection,
		KindTermCompliance,
	}
}

// Valid reports whether k is a known detector kind.
func (k Kind) Valid() bool {
	_, ok := kindPriority[k]
	return ok
}

// Priority returns the fixed precedence rank of the kind (0 is highest).
func (k Kind) Priority() int {
	if p, ok := kindPriority[k]; ok {
		return p
	}
	return len(kindPriority)
}

// ContextRunes is how many runes of surrounding text are attached to an
// issue for display and export.
const ContextRunes = 8

// Issue is a single finding. Start and End are codepoint offsets into the
// scanned text, End exclusive. Original always equals the span it was
// produced from.
type Issue struct {
	Kind         Kind    `json:"kind"`
	Start        int     `json:"start"`
	End          int     `json:"end"`
	Original     string  `json:"original"`
	Suggestion   string  `json:"suggestion"`
	Hint         string  `json:"hint"`
	Confidence   float64 `json:"confidence"`
	SourceRuleID string  `json:"source_rule_id,omitempty"`
	ContextLeft  string  `json:"context_left"`
	ContextRight string  `json:"context_right"`
}

// New builds an issue over runes[start:end] with surrounding context filled in.
func New(kind Kind, runes []rune, start, end int, suggestion, hint string, confidence float64, ruleID string) Issue {
	left, right := Context(runes, start, end)
	return Issue{
		Kind:         kind,
		Start:        start,
		End:          end,
		Original:     string(runes[start:end]),
		Suggestion:   suggestion,
		Hint:         hint,
		Confidence:   confidence,
		SourceRuleID: ruleID,
		ContextLeft:  left,
		ContextRight: right,
	}
}

// Context returns up to ContextRunes runes on each side of [start,end).
func Context(runes []rune, start, end int) (left, right string) {
	l := start - ContextRunes
	if l < 0 {
		l = 0
	}
	r := end + ContextRunes
	if r > len(runes) {
		r = len(runes)
	}
	return string(runes[l:start]), string(runes[end:r])
}

// Validate checks the span invariants against the text the issue was
// produced from.
func (i Issue) Validate(runes []rune) error {
	if !i.Kind.Valid() {
		return fmt.Errorf("unknown issue kind %q", i.Kind)
	}
	if i.Start < 0 || i.End < i.Start || i.End > len(runes) {
		return fmt.Errorf("issue span [%d,%d) out of range for text of %d runes", i.Start, i.End, len(runes))
	}
	if got := string(runes[i.Start:i.End]); got != i.Original {
		return fmt.Errorf("issue original %q does not match text span %q", i.Original, got)
	}
	if i.Confidence < 0 || i.Confidence > 1 {
		return fmt.Errorf("issue confidence %f out of [0,1]", i.Confidence)
	}
	return nil
}

// Overlaps reports whether the two spans share at least one codepoint.
func (i Issue) Overlaps(o Issue) bool {
	return i.Start < o.End && o.Start < i.End
}

// Status describes how a detector fared for one scan. Unavailable is
// distinct from an empty result: the detector could not run at all.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
	StatusDisabled    Status = "disabled"
)

// ModeSet selects which detector kinds to run.
type ModeSet map[Kind]bool

// DefaultModes enables every detector kind.
func DefaultModes() ModeSet {
	m := make(ModeSet, len(kindPriority))
	for _, k := range AllKinds() {
		m[k] = true
	}
	return m
}

// ParseModes builds a ModeSet from kind names, rejecting unknown ones.
// An empty list means all kinds.
func ParseModes(names []string) (ModeSet, error) {
	if len(names) == 0 {
		return DefaultModes(), nil
	}
	m := make(ModeSet, len(names))
	for _, name := range names {
		k := Kind(name)
		if !k.Valid() {
			return nil, fmt.Errorf("unknown detector kind: %s", name)
		}
		m[k] = true
	}
	return m, nil
}

// Enabled reports whether kind k is selected.
func (m ModeSet) Enabled(k Kind) bool {
	return m[k]
}

// Key returns a canonical representation of the enabled kinds, suitable
// for cache keys.
func (m ModeSet) Key() string {
	names := make([]string, 0, len(m))
	for k, on := range m {
		if on {
			names = append(names, string(k))
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Summary counts surviving issues per kind after aggregation.
type Summary struct {
	Total  int          `json:"total"`
	ByKind map[Kind]int `json:"by_kind"`
}

// Summarize tallies issues per kind.
func Summarize(issues []Issue) Summary {
	s := Summary{ByKind: make(map[Kind]int, len(kindPriority))}
	for _, k := range AllKinds() {
		s.ByKind[k] = 0
	}
	for _, it := range issues {
		s.ByKind[it.Kind]++
		s.Total++
	}
	return s
}
