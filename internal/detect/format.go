package detect

import (
	"context"
	"unicode"

	"github.com/zhcheck/zhcheck/internal/issue"
	"github.com/zhcheck/zhcheck/internal/rules"
)

// Format finds direct surface defects with fixed heuristics: whitespace
// problems, doubled punctuation, character repetition runs, unbalanced
// paired symbols, and the 的/地/得 particle pairs. It uses no declarative
// rules; the snapshot's lexicon only suppresses repetition flags on valid
// reduplicated words.
type Format struct{}

// NewFormat creates the basic format detector.
func NewFormat() *Format { return &Format{} }

// Kind implements Detector.
func (*Format) Kind() issue.Kind { return issue.KindFormat }

var cjkPunct = map[rune]bool{
	'，': true, '。': true, '；': true, '：': true,
	'！': true, '？': true, '、': true,
}

var pairOpen = map[rune]rune{
	'(': ')', '（': '）', '[': ']', '【': '】',
	'《': '》', '「': '」', '『': '』', '“': '”', '‘': '’',
}

var pairClose = map[rune]bool{
	')': true, '）': true, ']': true, '】': true,
	'》': true, '」': true, '』': true, '”': true, '’': true,
}

// Adverbs that take 地 before a verb, and adjectives that take 的 before
// a noun. Small fixed sets keep the particle heuristics low-noise.
var diAdverbs = map[string]bool{
	"慢慢": true, "渐渐": true, "悄悄": true, "认真": true,
	"努力": true, "仔细": true, "静静": true, "默默": true,
}

var deAdjectives = map[string]bool{
	"美丽": true, "漂亮": true, "安静": true, "干净": true,
	"快乐": true, "聪明": true, "巨大": true, "崭新": true,
}

// Scan implements Detector.
func (*Format) Scan(ctx context.Context, text string, snap *rules.Snapshot) ([]issue.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runes := []rune(text)
	var issues []issue.Issue
	issues = append(issues, scanWhitespace(runes)...)
	issues = append(issues, scanDoubledPunct(runes)...)
	issues = append(issues, scanRepeats(runes, snap)...)
	issues = append(issues, scanScriptBoundaries(runes)...)
	issues = append(issues, scanPairs(runes)...)
	issues = append(issues, scanParticles(runes)...)
	return issues, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '　'
}

func isCJK(r rune) bool {
	return r >= 0x4e00 && r <= 0x9fff
}

// scanWhitespace flags runs of two or more spaces and any space directly
// before CJK punctuation.
func scanWhitespace(runes []rune) []issue.Issue {
	var issues []issue.Issue
	for i := 0; i < len(runes); {
		if !isSpace(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && isSpace(runes[j]) {
			j++
		}
		if j-i >= 2 {
			issues = append(issues, issue.New(issue.KindFormat, runes, i, j,
				"", "连续空格，建议删除多余空格", 0.85, "multi_space"))
		}
		if j < len(runes) && cjkPunct[runes[j]] {
			issues = append(issues, issue.New(issue.KindFormat, runes, i, j,
				"", "中文标点前不应有空格", 0.8, "space_before_punct"))
		}
		i = j
	}
	return issues
}

// scanDoubledPunct flags runs of the same CJK punctuation mark.
func scanDoubledPunct(runes []rune) []issue.Issue {
	var issues []issue.Issue
	for i := 0; i < len(runes); {
		if !cjkPunct[runes[i]] {
			i++
			continue
		}
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= 2 {
			issues = append(issues, issue.New(issue.KindFormat, runes, i, j,
				string(runes[i]), "重复的标点符号", 0.8, "double_punct"))
		}
		i = j
	}
	return issues
}

// scanRepeats flags runs of the same ideograph. A doubled character that
// forms a dictionary word (天天, 谢谢) is legitimate reduplication and is
// skipped.
func scanRepeats(runes []rune, snap *rules.Snapshot) []issue.Issue {
	var issues []issue.Issue
	for i := 0; i < len(runes); {
		if !isCJK(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if n := j - i; n >= 2 {
			if n == 2 {
				if _, ok := snap.Words[string(runes[i:j])]; ok {
					i = j
					continue
				}
			}
			issues = append(issues, issue.New(issue.KindFormat, runes, i, j,
				string(runes[i]), "连续重复的汉字，建议删除多余字符", 0.6, "repeat_char"))
		}
		i = j
	}
	return issues
}

// scanScriptBoundaries flags a CJK character directly adjacent to a Latin
// letter or digit: house style asks for a separating space.
func scanScriptBoundaries(runes []rune) []issue.Issue {
	isLatin := func(r rune) bool {
		return r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r))
	}
	var issues []issue.Issue
	for i := 0; i+1 < len(runes); i++ {
		a, b := runes[i], runes[i+1]
		if (isCJK(a) && isLatin(b)) || (isLatin(a) && isCJK(b)) {
			issues = append(issues, issue.New(issue.KindFormat, runes, i, i+2,
				string(a)+" "+string(b), "中文与西文之间建议留一个空格", 0.4, "missing_script_space"))
		}
	}
	return issues
}

// scanPairs checks bracket and quote pairing with a stack.
func scanPairs(runes []rune) []issue.Issue {
	var issues []issue.Issue
	type open struct {
		ch  rune
		pos int
	}
	var stack []open
	for i, r := range runes {
		if _, ok := pairOpen[r]; ok {
			stack = append(stack, open{ch: r, pos: i})
			continue
		}
		if !pairClose[r] {
			continue
		}
		if len(stack) > 0 && pairOpen[stack[len(stack)-1].ch] == r {
			stack = stack[:len(stack)-1]
			continue
		}
		issues = append(issues, issue.New(issue.KindFormat, runes, i, i+1,
			"", "右侧符号没有对应的左侧符号", 0.6, "unpaired_symbol"))
	}
	for _, o := range stack {
		issues = append(issues, issue.New(issue.KindFormat, runes, o.pos, o.pos+1,
			string(pairOpen[o.ch]), "左侧符号未闭合", 0.6, "unclosed_symbol"))
	}
	return issues
}

// scanParticles applies the 的/地/得 pair heuristics on small fixed word
// sets: adverb + 的 + verb-ish suggests 地, adjective + 地 suggests 的.
func scanParticles(runes []rune) []issue.Issue {
	var issues []issue.Issue
	for i := 2; i < len(runes); i++ {
		prev := string(runes[i-2 : i])
		switch runes[i] {
		case '的':
			if diAdverbs[prev] {
				issues = append(issues, issue.New(issue.KindFormat, runes, i, i+1,
					"地", "副词后多用“地”", 0.65, "de_maybe_di"))
			}
		case '地':
			if deAdjectives[prev] {
				issues = append(issues, issue.New(issue.KindFormat, runes, i, i+1,
					"的", "形容词后多用“的”", 0.65, "di_maybe_de"))
			}
		}
	}
	return issues
}
