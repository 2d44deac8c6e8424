package detect

import (
	"context"
	"testing"

	"github.com/zhcheck/zhcheck/internal/issue"
	"github.com/zhcheck/zhcheck/internal/rules"
)

func emptySnapshot() *rules.Snapshot {
	return &rules.Snapshot{
		Confusion: map[rune][]rules.Alt{},
		Whitelist: map[string]struct{}{},
		Words:     map[string]struct{}{},
	}
}

func findRule(issues []issue.Issue, ruleID string) []issue.Issue {
	var out []issue.Issue
	for _, it := range issues {
		if it.SourceRuleID == ruleID {
			out = append(out, it)
		}
	}
	return out
}

func TestFormatWhitespace(t *testing.T) {
	d := NewFormat()

	t.Run("multiple spaces", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "这里  有问题", emptySnapshot())
		if err != nil {
			t.Fatal(err)
		}
		hits := findRule(issues, "multi_space")
		if len(hits) != 1 {
			t.Fatalf("multi_space hits = %+v", issues)
		}
		if hits[0].Start != 2 || hits[0].End != 4 {
			t.Errorf("span = [%d,%d)", hits[0].Start, hits[0].End)
		}
	})

	t.Run("single space is fine", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "中文 und Latein", emptySnapshot())
		if err != nil {
			t.Fatal(err)
		}
		if hits := findRule(issues, "multi_space"); len(hits) != 0 {
			t.Errorf("unexpected hits: %+v", hits)
		}
	})

	t.Run("space before punctuation", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "你好 ，世界", emptySnapshot())
		if err != nil {
			t.Fatal(err)
		}
		if hits := findRule(issues, "space_before_punct"); len(hits) != 1 {
			t.Errorf("hits = %+v", issues)
		}
	})
}

func TestFormatDoubledPunct(t *testing.T) {
	d := NewFormat()
	issues, err := d.Scan(context.Background(), "真的吗？？好。。", emptySnapshot())
	if err != nil {
		t.Fatal(err)
	}
	hits := findRule(issues, "double_punct")
	if len(hits) != 2 {
		t.Fatalf("hits = %+v", issues)
	}
	if hits[0].Original != "？？" {
		t.Errorf("original = %q", hits[0].Original)
	}
}

func TestFormatRepeats(t *testing.T) {
	d := NewFormat()
	snap := emptySnapshot()
	snap.Words["天天"] = struct{}{}

	t.Run("accidental repeat flagged", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "我们们去公园", snap)
		if err != nil {
			t.Fatal(err)
		}
		hits := findRule(issues, "repeat_char")
		if len(hits) != 1 {
			t.Fatalf("hits = %+v", issues)
		}
		if hits[0].Start != 1 || hits[0].End != 3 {
			t.Errorf("span = [%d,%d)", hits[0].Start, hits[0].End)
		}
	})

	t.Run("valid reduplication skipped", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "天天向上", snap)
		if err != nil {
			t.Fatal(err)
		}
		if hits := findRule(issues, "repeat_char"); len(hits) != 0 {
			t.Errorf("dictionary reduplication flagged: %+v", hits)
		}
	})

	t.Run("triple repeat flagged even for valid pair", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "天天天向上", snap)
		if err != nil {
			t.Fatal(err)
		}
		if hits := findRule(issues, "repeat_char"); len(hits) != 1 {
			t.Errorf("hits = %+v", issues)
		}
	})
}

func TestFormatPairs(t *testing.T) {
	d := NewFormat()

	t.Run("balanced pairs are silent", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "《书名》和（注释）都对", emptySnapshot())
		if err != nil {
			t.Fatal(err)
		}
		if len(findRule(issues, "unpaired_symbol"))+len(findRule(issues, "unclosed_symbol")) != 0 {
			t.Errorf("balanced text flagged: %+v", issues)
		}
	})

	t.Run("unclosed opener", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "他说（没有下文", emptySnapshot())
		if err != nil {
			t.Fatal(err)
		}
		hits := findRule(issues, "unclosed_symbol")
		if len(hits) != 1 || hits[0].Start != 2 {
			t.Errorf("hits = %+v", issues)
		}
		if hits[0].Suggestion != "）" {
			t.Errorf("suggestion = %q", hits[0].Suggestion)
		}
	})

	t.Run("stray closer", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "结束了》真的", emptySnapshot())
		if err != nil {
			t.Fatal(err)
		}
		if hits := findRule(issues, "unpaired_symbol"); len(hits) != 1 {
			t.Errorf("hits = %+v", issues)
		}
	})

	t.Run("nested pairs", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "「外层（内层）还在」", emptySnapshot())
		if err != nil {
			t.Fatal(err)
		}
		if len(findRule(issues, "unpaired_symbol"))+len(findRule(issues, "unclosed_symbol")) != 0 {
			t.Errorf("nested pairs flagged: %+v", issues)
		}
	})
}

func TestFormatParticles(t *testing.T) {
	d := NewFormat()

	t.Run("adverb plus 的 suggests 地", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "他慢慢的走了", emptySnapshot())
		if err != nil {
			t.Fatal(err)
		}
		hits := findRule(issues, "de_maybe_di")
		if len(hits) != 1 {
			t.Fatalf("hits = %+v", issues)
		}
		if hits[0].Suggestion != "地" || hits[0].Start != 3 || hits[0].End != 4 {
			t.Errorf("hit = %+v", hits[0])
		}
	})

	t.Run("adjective plus 地 suggests 的", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "美丽地花园", emptySnapshot())
		if err != nil {
			t.Fatal(err)
		}
		hits := findRule(issues, "di_maybe_de")
		if len(hits) != 1 || hits[0].Suggestion != "的" {
			t.Errorf("hits = %+v", issues)
		}
	})

	t.Run("correct usage is silent", func(t *testing.T) {
		issues, err := d.Scan(context.Background(), "他慢慢地走了", emptySnapshot())
		if err != nil {
			t.Fatal(err)
		}
		if hits := findRule(issues, "de_maybe_di"); len(hits) != 0 {
			t.Errorf("correct particle flagged: %+v", hits)
		}
	})
}

func TestFormatScriptBoundaries(t *testing.T) {
	d := NewFormat()
	issues, err := d.Scan(context.Background(), "共需3天", emptySnapshot())
	if err != nil {
		t.Fatal(err)
	}
	hits := findRule(issues, "missing_script_space")
	if len(hits) != 2 {
		t.Fatalf("hits = %+v", issues)
	}
	if hits[0].Confidence >= 0.5 {
		t.Errorf("advisory hint should carry low confidence, got %f", hits[0].Confidence)
	}
}

func TestFormatCancellation(t *testing.T) {
	d := NewFormat()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Scan(ctx, "文字", emptySnapshot()); err == nil {
		t.Error("cancelled context not propagated")
	}
}
