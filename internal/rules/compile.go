package rules

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultRegexConfidence = 0.7
	defaultPOSConfidence   = 0.6
	defaultTermConfidence  = 0.8
)

// compileRegexRule compiles one declarative regex rule. Flags i/m/s are
// independently toggleable and map onto Go's inline flag groups.
func compileRegexRule(raw RawRule) (RegexRule, error) {
	if raw.ID == "" {
		return RegexRule{}, fmt.Errorf("rule has no id")
	}
	if raw.Pattern == "" {
		return RegexRule{}, fmt.Errorf("rule %s has no pattern", raw.ID)
	}
	var flags strings.Builder
	for _, f := range raw.Flags {
		switch f {
		case 'i', 'm', 's':
			flags.WriteRune(f)
		default:
			return RegexRule{}, fmt.Errorf("rule %s has unknown flag %q", raw.ID, string(f))
		}
	}
	pattern := raw.Pattern
	if flags.Len() > 0 {
		pattern = "(?" + flags.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return RegexRule{}, fmt.Errorf("rule %s: %w", raw.ID, err)
	}
	conf := defaultRegexConfidence
	if raw.Confidence != nil {
		conf = *raw.Confidence
	}
	if conf < 0 || conf > 1 {
		return RegexRule{}, fmt.Errorf("rule %s has confidence %f out of [0,1]", raw.ID, conf)
	}
	return RegexRule{
		ID:              raw.ID,
		Pattern:         re,
		Hint:            raw.Hint,
		SuggestTemplate: raw.Suggest,
		Confidence:      conf,
	}, nil
}

// compilePOSPattern compiles one declarative POS sequence rule.
func compilePOSPattern(raw RawPOSPattern) (POSPattern, error) {
	if raw.ID == "" {
		return POSPattern{}, fmt.Errorf("pos rule has no id")
	}
	if len(raw.Sequence) == 0 {
		return POSPattern{}, fmt.Errorf("pos rule %s has an empty sequence", raw.ID)
	}
	seq := make([]CompiledMatcher, 0, len(raw.Sequence))
	for i, m := range raw.Sequence {
		cm := CompiledMatcher{Word: m.Word, Tag: m.Tag}
		if m.Regex != "" {
			re, err := regexp.Compile("^(?:" + m.Regex + ")$")
			if err != nil {
				return POSPattern{}, fmt.Errorf("pos rule %s matcher %d: %w", raw.ID, i, err)
			}
			cm.WordRE = re
		}
		if cm.Word == "" && cm.Tag == "" && cm.WordRE == nil {
			return POSPattern{}, fmt.Errorf("pos rule %s matcher %d has no conditions", raw.ID, i)
		}
		seq = append(seq, cm)
	}
	conf := defaultPOSConfidence
	if raw.Confidence != nil {
		conf = *raw.Confidence
	}
	if conf < 0 || conf > 1 {
		return POSPattern{}, fmt.Errorf("pos rule %s has confidence %f out of [0,1]", raw.ID, conf)
	}
	return POSPattern{
		ID:         raw.ID,
		Sequence:   seq,
		Hint:       raw.Hint,
		Suggest:    raw.Suggest,
		Confidence: conf,
	}, nil
}

// compileTerm validates one term rule.
func compileTerm(raw RawTerm) (TermRule, error) {
	if raw.Term == "" {
		return TermRule{}, fmt.Errorf("term entry has no term")
	}
	conf := defaultTermConfidence
	if raw.Confidence != nil {
		conf = *raw.Confidence
	}
	if conf < 0 || conf > 1 {
		return TermRule{}, fmt.Errorf("term %s has confidence %f out of [0,1]", raw.Term, conf)
	}
	return TermRule{
		Term:        raw.Term,
		Suggestions: raw.Suggestions,
		Hint:        raw.Hint,
		Confidence:  conf,
	}, nil
}

// ExpandTemplate resolves numbered back-reference placeholders (\1..\9)
// in a suggestion template against the capture groups of one match.
// Placeholders for absent groups expand to the empty string; a doubled
// backslash escapes a literal one. This is a plain substitution step, not
// expression evaluation, so rule files cannot execute anything.
func ExpandTemplate(template string, groups []string) string {
	if template == "" || !strings.ContainsRune(template, '\\') {
		return template
	}
	var out strings.Builder
	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\\' || i+1 >= len(runes) {
			out.WriteRune(runes[i])
			continue
		}
		next := runes[i+1]
		switch {
		case next >= '1' && next <= '9':
			n := int(next - '0')
			if n < len(groups) {
				out.WriteString(groups[n])
			}
			i++
		case next == '\\':
			out.WriteRune('\\')
			i++
		default:
			out.WriteRune(runes[i])
		}
	}
	return out.String()
}
