package detect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/zhcheck/zhcheck/internal/rules"
)

func termSnapshot() *rules.Snapshot {
	snap := emptySnapshot()
	snap.Terms = []rules.TermRule{
		{Term: "残废", Suggestions: []string{"残疾人"}, Hint: "规范用语", Confidence: 0.9},
		{Term: "老板娘", Suggestions: []string{"经营者", "负责人"}, Confidence: 0.5},
	}
	return snap
}

func TestTermFindsAllOccurrences(t *testing.T) {
	d := NewTerm()
	issues, err := d.Scan(context.Background(), "称残废不妥，残废一词已弃用", termSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %+v", issues)
	}
	if issues[0].Start != 1 || issues[0].End != 3 {
		t.Errorf("first span = [%d,%d)", issues[0].Start, issues[0].End)
	}
	if issues[1].Start != 6 || issues[1].End != 8 {
		t.Errorf("second span = [%d,%d)", issues[1].Start, issues[1].End)
	}
	if issues[0].Suggestion != "残疾人" || issues[0].SourceRuleID != "残废" {
		t.Errorf("issue = %+v", issues[0])
	}
}

func TestTermJoinsSuggestions(t *testing.T) {
	d := NewTerm()
	issues, err := d.Scan(context.Background(), "问老板娘要发票", termSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 {
		t.Fatalf("issues = %+v", issues)
	}
	if issues[0].Suggestion != "经营者、负责人" {
		t.Errorf("suggestion = %q", issues[0].Suggestion)
	}
}

func TestTermCleanTextIsSilent(t *testing.T) {
	d := NewTerm()
	issues, err := d.Scan(context.Background(), "完全合规的文本", termSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 0 {
		t.Errorf("issues = %+v", issues)
	}
}

func TestTermUnavailableWhenDocumentBroken(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "terms.yml"), []byte("terms: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := rules.NewStore(dir, zap.NewNop())
	defer store.Close()

	d := NewTerm()
	_, err := d.Scan(context.Background(), "文字", store.Snapshot())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
