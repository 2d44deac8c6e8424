// Package friendly projects issues into human-readable Chinese display
// strings. Rendering is a pure function of the issue and the scanned
// text: no state, no I/O, identical output on every call.
package friendly

import (
	"fmt"
	"strings"

	"github.com/zhcheck/zhcheck/internal/issue"
)

// How much surrounding text to show around the bracketed hit.
const contextRunes = 16

// label carries the display title and the fallback explanation for one
// rule id or kind.
type label struct {
	title   string
	explain string
}

var ruleLabels = map[string]label{
	"multi_space":          {"多余空格", "检测到连续空格，中文写作中不建议出现多个空格。"},
	"space_before_punct":   {"标点前有空格", "中文标点应紧跟前一字，中间不留空格。"},
	"double_punct":         {"重复标点", "连续出现了相同的标点符号。"},
	"repeat_char":          {"重复字", "连续重复了相同的汉字，建议删除多余字符。"},
	"missing_script_space": {"中西文间距", "中文与西文之间建议留一个空格。"},
	"unpaired_symbol":      {"括号/引号不匹配", "出现了右侧符号但未找到对应的左侧符号。"},
	"unclosed_symbol":      {"括号/引号未闭合", "出现了左侧符号但未补全右侧符号。"},
	"de_maybe_di":          {"“的/地/得”用法", "副词后更常用“地”，建议调整。"},
	"di_maybe_de":          {"“的/地/得”用法", "形容词后多为“的”，建议调整。"},
}

var kindLabels = map[issue.Kind]label{
	issue.KindFormat:          {"格式问题", "建议参考提示进行修订。"},
	issue.KindConfusion:       {"可能写错字", "这里可能把常见的形近或同音字写错了。"},
	issue.KindRegexRule:       {"写作规范", "命中了自定义写作规范，请参考提示。"},
	issue.KindPOSRule:         {"搭配可能不当", "词性搭配不符合常见用法，请参考提示。"},
	issue.KindModelCorrection: {"拼写建议", "拼写纠错模型认为此处可能有错别字。"},
	issue.KindTermCompliance:  {"不规范用语", "文中包含不规范或已更名的用语，请参考建议修改。"},
}

// Render maps one issue to its display string. The hit is bracketed with
// 【】 inside its context; pure-whitespace hits render as 空格.
func Render(it issue.Issue, text string) string {
	lb := lookupLabel(it)
	explain := it.Hint
	if explain == "" {
		explain = lb.explain
	}
	suggestion := it.Suggestion
	if suggestion == "" {
		suggestion = "按说明调整"
	}
	return fmt.Sprintf("%s：%s 片段：%s 建议：%s 说明：%s（置信度 %.2f）",
		lb.title, position(it), mark(text, it.Start, it.End), suggestion, explain, it.Confidence)
}

// RenderAll renders every issue in order.
func RenderAll(issues []issue.Issue, text string) []string {
	out := make([]string, len(issues))
	for i, it := range issues {
		out[i] = Render(it, text)
	}
	return out
}

func lookupLabel(it issue.Issue) label {
	if lb, ok := ruleLabels[it.SourceRuleID]; ok {
		return lb
	}
	if lb, ok := kindLabels[it.Kind]; ok {
		return lb
	}
	return label{"可能存在问题", "建议参考提示进行修订。"}
}

// position renders the 1-based character range.
func position(it issue.Issue) string {
	if it.End > it.Start+1 {
		return fmt.Sprintf("第 %d–%d 个字符", it.Start+1, it.End)
	}
	return fmt.Sprintf("第 %d 个字符", it.Start+1)
}

// mark extracts the span with surrounding context, bracketing the hit.
func mark(text string, start, end int) string {
	runes := []rune(text)
	if start < 0 || end > len(runes) || start > end {
		return ""
	}
	l := start - contextRunes
	if l < 0 {
		l = 0
	}
	r := end + contextRunes
	if r > len(runes) {
		r = len(runes)
	}
	mid := string(runes[start:end])
	if mid != "" && strings.TrimSpace(mid) == "" {
		mid = "空格"
	}
	return string(runes[l:start]) + "【" + mid + "】" + string(runes[end:r])
}
