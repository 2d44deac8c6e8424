package friendly

import (
	"strings"
	"testing"

	"github.com/zhcheck/zhcheck/internal/issue"
)

func TestRenderBracketsHit(t *testing.T) {
	text := "我们度过了一个愉快的假期"
	it := issue.New(issue.KindConfusion, []rune(text), 2, 4, "渡过", "", 0.72, "")

	got := Render(it, text)
	if !strings.Contains(got, "【度过】") {
		t.Errorf("hit not bracketed: %q", got)
	}
	if !strings.Contains(got, "可能写错字") {
		t.Errorf("missing kind label: %q", got)
	}
	if !strings.Contains(got, "建议：渡过") {
		t.Errorf("missing suggestion: %q", got)
	}
	if !strings.Contains(got, "置信度 0.72") {
		t.Errorf("missing confidence: %q", got)
	}
}

func TestRenderPositionsAreOneBased(t *testing.T) {
	text := "一二三四五"

	t.Run("single rune", func(t *testing.T) {
		it := issue.New(issue.KindFormat, []rune(text), 0, 1, "", "", 0.8, "repeat_char")
		if got := Render(it, text); !strings.Contains(got, "第 1 个字符") {
			t.Errorf("got %q", got)
		}
	})

	t.Run("range", func(t *testing.T) {
		it := issue.New(issue.KindFormat, []rune(text), 1, 4, "", "", 0.8, "repeat_char")
		if got := Render(it, text); !strings.Contains(got, "第 2–4 个字符") {
			t.Errorf("got %q", got)
		}
	})
}

func TestRenderWhitespaceHit(t *testing.T) {
	text := "中文  中文"
	it := issue.New(issue.KindFormat, []rune(text), 2, 4, " ", "", 0.85, "multi_space")

	got := Render(it, text)
	if !strings.Contains(got, "【空格】") {
		t.Errorf("whitespace hit should render as 空格: %q", got)
	}
	if !strings.Contains(got, "多余空格") {
		t.Errorf("missing rule label: %q", got)
	}
}

func TestRenderRuleLabelBeatsKindLabel(t *testing.T) {
	text := "高高兴兴"
	it := issue.New(issue.KindFormat, []rune(text), 0, 2, "高", "", 0.6, "repeat_char")

	got := Render(it, text)
	if !strings.Contains(got, "重复字") {
		t.Errorf("rule label not used: %q", got)
	}
	if strings.Contains(got, "格式问题") {
		t.Errorf("kind label leaked through: %q", got)
	}
}

func TestRenderHintOverridesExplanation(t *testing.T) {
	text := "称残废不妥"
	it := issue.New(issue.KindTermCompliance, []rune(text), 1, 3, "残疾人", "规范用语", 0.9, "残废")

	got := Render(it, text)
	if !strings.Contains(got, "说明：规范用语") {
		t.Errorf("hint not used as explanation: %q", got)
	}
}

func TestRenderEmptySuggestionFallback(t *testing.T) {
	text := "句子（没闭合"
	it := issue.New(issue.KindFormat, []rune(text), 2, 3, "", "右括号缺失", 0.65, "unclosed_symbol")

	got := Render(it, text)
	if !strings.Contains(got, "建议：按说明调整") {
		t.Errorf("got %q", got)
	}
}

func TestRenderTruncatesContext(t *testing.T) {
	long := strings.Repeat("前", 40) + "错" + strings.Repeat("后", 40)
	it := issue.New(issue.KindConfusion, []rune(long), 40, 41, "对", "", 0.7, "")

	got := Render(it, long)
	if strings.Count(got, "前") > 16 || strings.Count(got, "后") > 16 {
		t.Errorf("context not truncated: %q", got)
	}
	if !strings.Contains(got, "【错】") {
		t.Errorf("got %q", got)
	}
}

func TestRenderAllPreservesOrder(t *testing.T) {
	text := "一二三四五六七八"
	issues := []issue.Issue{
		issue.New(issue.KindFormat, []rune(text), 0, 1, "", "", 0.8, "repeat_char"),
		issue.New(issue.KindTermCompliance, []rune(text), 4, 6, "别称", "", 0.9, ""),
	}

	got := RenderAll(issues, text)
	if len(got) != 2 {
		t.Fatalf("got %d lines", len(got))
	}
	if !strings.Contains(got[0], "重复字") || !strings.Contains(got[1], "不规范用语") {
		t.Errorf("lines out of order: %v", got)
	}
}

func TestRenderAllEmpty(t *testing.T) {
	if got := RenderAll(nil, "文字"); len(got) != 0 {
		t.Errorf("got %v", got)
	}
}
