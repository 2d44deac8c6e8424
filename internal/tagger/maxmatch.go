package tagger

import (
	"bufio"
	"os"
	"strings"
	"unicode"
)

// MaxMatch is a forward maximum-match tagger over a word -> tag lexicon.
// It is deliberately simple: deterministic, allocation-light, and good
// enough to drive POS sequence rules. Characters not covered by the
// lexicon fall back to coarse single-token classes (eng for Latin runs,
// m for digit runs, w for punctuation, x otherwise).
type MaxMatch struct {
	lexicon map[string]string
	maxLen  int
}

// NewMaxMatch builds a tagger over the given lexicon. A nil lexicon uses
// the built-in default.
func NewMaxMatch(lexicon map[string]string) *MaxMatch {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	maxLen := 1
	for w := range lexicon {
		if n := len([]rune(w)); n > maxLen {
			maxLen = n
		}
	}
	return &MaxMatch{lexicon: lexicon, maxLen: maxLen}
}

// Tag implements Tagger. Tokens cover the whole input in order, so their
// spans tile the text without gaps.
func (t *MaxMatch) Tag(text string) ([]Token, error) {
	runes := []rune(text)
	tokens := make([]Token, 0, len(runes)/2+1)
	for i := 0; i < len(runes); {
		// Longest lexicon match first.
		matched := false
		limit := t.maxLen
		if rest := len(runes) - i; rest < limit {
			limit = rest
		}
		for n := limit; n >= 1; n-- {
			word := string(runes[i : i+n])
			if tag, ok := t.lexicon[word]; ok {
				tokens = append(tokens, Token{Word: word, Tag: tag, Start: i, End: i + n})
				i += n
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		// Fall back to a class run for the leading rune.
		start := i
		class := runeClass(runes[i])
		i++
		for i < len(runes) && class != "x" && class != "w" && runeClass(runes[i]) == class {
			if _, ok := t.lexicon[string(runes[i])]; ok {
				break
			}
			i++
		}
		tokens = append(tokens, Token{
			Word:  string(runes[start:i]),
			Tag:   class,
			Start: start,
			End:   i,
		})
	}
	return tokens, nil
}

func runeClass(r rune) string {
	switch {
	case unicode.IsLetter(r) && r < 128:
		return "eng"
	case unicode.IsDigit(r):
		return "m"
	case unicode.IsPunct(r) || unicode.IsSymbol(r):
		return "w"
	default:
		return "x"
	}
}

// LoadLexicon reads a "word tag" per-line lexicon file. Missing file is
// not an error; the built-in default is returned instead.
func LoadLexicon(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultLexicon(), nil
		}
		return nil, err
	}
	defer file.Close()

	lexicon := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		lexicon[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lexicon, nil
}

// DefaultLexicon covers common function words and enough content words
// for the shipped POS rules to be exercised without an external file.
func DefaultLexicon() map[string]string {
	return map[string]string{
		// particles
		"的": "uj", "地": "uv", "得": "ud", "了": "ul", "着": "uz",
		// pronouns
		"我": "r", "你": "r", "他": "r", "她": "r", "它": "r",
		"我们": "r", "你们": "r", "他们": "r", "这": "r", "那": "r",
		"这个": "r", "那个": "r", "哪里": "r",
		// adverbs
		"很": "d", "非常": "d", "十分": "d", "特别": "d", "慢慢": "d",
		"努力": "d", "认真": "d", "仔细": "d", "已经": "d", "正在": "d",
		"不": "d", "都": "d", "也": "d", "再": "d", "就": "d",
		// verbs
		"是": "v", "有": "v", "在": "v", "跑": "v", "走": "v",
		"看": "v", "写": "v", "说": "v", "做": "v", "学习": "v",
		"工作": "vn", "思考": "v", "奔跑": "v", "度过": "v", "渡过": "v",
		"完成": "v", "进行": "v", "开始": "v",
		// adjectives
		"好": "a", "大": "a", "小": "a", "快": "a", "慢": "a",
		"美丽": "a", "漂亮": "a", "安静": "a", "干净": "a", "快乐": "a",
		// nouns
		"人": "n", "时候": "n", "时间": "n", "问题": "n", "文章": "n",
		"学校": "n", "老师": "n", "学生": "n", "城市": "n", "花园": "n",
		"假期": "n", "朋友": "n", "地方": "n", "孩子": "n", "事情": "n",
		// conjunctions and prepositions
		"和": "c", "与": "c", "或者": "c", "但是": "c", "因为": "c",
		"所以": "c", "把": "p", "被": "p", "对": "p", "向": "p",
		// measure words
		"个": "q", "只": "q", "条": "q", "张": "q", "件": "q",
	}
}
