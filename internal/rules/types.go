package rules

import (
	"fmt"
	"regexp"
)

// Category names one declarative rule source. Each category loads, fails,
// and reloads independently of the others.
type Category string

const (
	CategoryRegex     Category = "regex"
	CategoryPOS       Category = "pos"
	CategoryConfusion Category = "confusion"
	CategoryWhitelist Category = "whitelist"
	CategoryLexicon   Category = "lexicon"
	CategoryTerms     Category = "terms"
)

// RawRule is one regex rule entry as written in a rule document.
type RawRule struct {
	ID         string   `yaml:"id"`
	Kind       string   `yaml:"kind"`
	Pattern    string   `yaml:"pattern"`
	Hint       string   `yaml:"hint"`
	Suggest    string   `yaml:"suggest"`
	Confidence *float64 `yaml:"confidence"`
	Flags      string   `yaml:"flags"`
}

// RegexRule is a compiled regex rule. Compiled exactly once per snapshot
// and immutable afterwards.
type RegexRule struct {
	ID              string
	Pattern         *regexp.Regexp
	Hint            string
	SuggestTemplate string
	Confidence      float64
}

// Matcher is one condition in a POS pattern sequence. Fields combine:
// all present conditions must hold for a token to match. A Tag of "*"
// (or an absent tag) accepts any tag; otherwise tags match by prefix, so
// "v" also matches "vn".
type Matcher struct {
	Word  string `yaml:"word,omitempty"`
	Tag   string `yaml:"tag,omitempty"`
	Regex string `yaml:"regex,omitempty"`
}

// RawPOSPattern is one POS rule entry as written in a rule document.
type RawPOSPattern struct {
	ID         string    `yaml:"id"`
	Sequence   []Matcher `yaml:"sequence"`
	Hint       string    `yaml:"hint"`
	Suggest    string    `yaml:"suggest"`
	Confidence *float64  `yaml:"confidence"`
}

// CompiledMatcher is a Matcher with its word regex compiled.
type CompiledMatcher struct {
	Word   string
	Tag    string
	WordRE *regexp.Regexp
}

// Matches reports whether a token satisfies every present condition.
func (m CompiledMatcher) Matches(word, tag string) bool {
	if m.Word != "" && word != m.Word {
		return false
	}
	if m.WordRE != nil && !m.WordRE.MatchString(word) {
		return false
	}
	if m.Tag != "" && m.Tag != "*" {
		if len(tag) < len(m.Tag) || tag[:len(m.Tag)] != m.Tag {
			return false
		}
	}
	return true
}

// POSPattern is a compiled ordered tag-sequence rule.
type POSPattern struct {
	ID         string
	Sequence   []CompiledMatcher
	Hint       string
	Suggest    string
	Confidence float64
}

// Similarity classes for confusable characters.
const (
	ClassShape    = "shape"
	ClassPhonetic = "phonetic"
)

// Alt is one confusable alternative for a character.
type Alt struct {
	Char  rune
	Class string
}

// rawAlt accepts either a bare scalar ("度") or a mapping
// ({char: 度, class: phonetic}) in confusion documents, so non-engineers
// can use the short form.
type rawAlt struct {
	Char  string `yaml:"char"`
	Class string `yaml:"class"`
}

func (a *rawAlt) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var scalar string
	if err := unmarshal(&scalar); err == nil {
		a.Char = scalar
		a.Class = ClassShape
		return nil
	}
	type plain rawAlt
	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}
	*a = rawAlt(p)
	if a.Class == "" {
		a.Class = ClassShape
	}
	return nil
}

func (a rawAlt) compile() (Alt, error) {
	r := []rune(a.Char)
	if len(r) != 1 {
		return Alt{}, fmt.Errorf("confusable %q is not a single character", a.Char)
	}
	if a.Class != ClassShape && a.Class != ClassPhonetic {
		return Alt{}, fmt.Errorf("unknown similarity class %q", a.Class)
	}
	return Alt{Char: r[0], Class: a.Class}, nil
}

// RawTerm is one non-compliant-term entry as written in a terms document.
type RawTerm struct {
	Term        string   `yaml:"term"`
	Suggestions []string `yaml:"suggestions"`
	Hint        string   `yaml:"hint"`
	Confidence  *float64 `yaml:"confidence"`
}

// TermRule maps a non-compliant term to its compliant replacements.
type TermRule struct {
	Term        string
	Suggestions []string
	Hint        string
	Confidence  float64
}

// Diagnostic records one skipped entry or failed document for operators.
// Diagnostics are collected at load time, not surfaced per request.
type Diagnostic struct {
	Category Category `json:"category"`
	Source   string   `json:"source"`
	Entry    string   `json:"entry,omitempty"`
	Message  string   `json:"message"`
}

// Snapshot is one immutable compiled view of every rule category. Scans
// capture a snapshot once and keep it for their whole lifetime; reloads
// build a new snapshot and swap the pointer, never mutate in place.
type Snapshot struct {
	Version     int64
	RegexRules  []RegexRule
	POSPatterns []POSPattern
	Confusion   map[rune][]Alt
	Whitelist   map[string]struct{}
	Words       map[string]struct{}
	Terms       []TermRule

	unavailable map[Category]error
	Diagnostics []Diagnostic
}

// Available reports whether a category's document parsed at all. A
// category with individually skipped entries is still available.
func (s *Snapshot) Available(c Category) bool {
	_, bad := s.unavailable[c]
	return !bad
}

// CategoryError returns the document-level failure for a category, if any.
func (s *Snapshot) CategoryError(c Category) error {
	return s.unavailable[c]
}
