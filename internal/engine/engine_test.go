package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/zhcheck/zhcheck/internal/detect"
	"github.com/zhcheck/zhcheck/internal/issue"
	"github.com/zhcheck/zhcheck/internal/rules"
)

// stubDetector lets tests script each detector's behavior.
type stubDetector struct {
	kind   issue.Kind
	issues func(text string) []issue.Issue
	err    error
}

func (d stubDetector) Kind() issue.Kind { return d.kind }

func (d stubDetector) Scan(ctx context.Context, text string, _ *rules.Snapshot) ([]issue.Issue, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.issues == nil {
		return nil, nil
	}
	return d.issues(text), nil
}

func newTestEngine(t *testing.T, detectors ...detect.Detector) *Engine {
	t.Helper()
	store := rules.NewStore(filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	t.Cleanup(func() { store.Close() })
	return New(store, detectors, AggregateConfig{}, zap.NewNop())
}

func spanIssue(kind issue.Kind, text string, start, end int, conf float64) issue.Issue {
	return issue.New(kind, []rune(text), start, end, "", "", conf, "")
}

func TestCheckRejectsBadInput(t *testing.T) {
	e := newTestEngine(t)

	t.Run("empty", func(t *testing.T) {
		if _, err := e.Check(context.Background(), "   \n", nil); !errors.Is(err, ErrEmptyText) {
			t.Errorf("err = %v, want ErrEmptyText", err)
		}
	})

	t.Run("invalid utf8", func(t *testing.T) {
		if _, err := e.Check(context.Background(), "好\xff字", nil); !errors.Is(err, ErrInvalidText) {
			t.Errorf("err = %v, want ErrInvalidText", err)
		}
	})
}

func TestCheckStatuses(t *testing.T) {
	text := "一段测试文字"
	e := newTestEngine(t,
		stubDetector{kind: issue.KindFormat, issues: func(s string) []issue.Issue {
			return []issue.Issue{spanIssue(issue.KindFormat, s, 0, 1, 0.8)}
		}},
		stubDetector{kind: issue.KindConfusion},
		stubDetector{kind: issue.KindModelCorrection, err: fmt.Errorf("model: %w", detect.ErrUnavailable)},
		stubDetector{kind: issue.KindPOSRule, err: errors.New("tagger exploded")},
	)

	result, err := e.Check(context.Background(), text, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := map[issue.Kind]issue.Status{
		issue.KindFormat:          issue.StatusOK,
		issue.KindConfusion:       issue.StatusOK,
		issue.KindModelCorrection: issue.StatusUnavailable,
		issue.KindPOSRule:         issue.StatusFailed,
		issue.KindRegexRule:       issue.StatusDisabled,
		issue.KindTermCompliance:  issue.StatusDisabled,
	}
	if !reflect.DeepEqual(result.Statuses, want) {
		t.Errorf("statuses = %v\nwant %v", result.Statuses, want)
	}

	// An unavailable or failed detector never aborts the scan.
	if len(result.Issues) != 1 {
		t.Errorf("issues = %+v", result.Issues)
	}
	if result.Summary.Total != 1 || result.Summary.ByKind[issue.KindFormat] != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}
}

func TestCheckModeSelection(t *testing.T) {
	text := "一段测试文字"
	calls := make(map[issue.Kind]bool)
	mkStub := func(k issue.Kind) stubDetector {
		return stubDetector{kind: k, issues: func(string) []issue.Issue {
			calls[k] = true
			return nil
		}}
	}
	e := newTestEngine(t, mkStub(issue.KindFormat), mkStub(issue.KindTermCompliance))

	modes, _ := issue.ParseModes([]string{"term_compliance"})
	result, err := e.Check(context.Background(), text, modes)
	if err != nil {
		t.Fatal(err)
	}

	if calls[issue.KindFormat] {
		t.Error("disabled detector was run")
	}
	if !calls[issue.KindTermCompliance] {
		t.Error("enabled detector was not run")
	}
	if result.Statuses[issue.KindFormat] != issue.StatusDisabled {
		t.Errorf("format status = %s", result.Statuses[issue.KindFormat])
	}
}

func TestCheckOutputIsNonOverlapping(t *testing.T) {
	text := "零一二三四五六七八九"
	e := newTestEngine(t,
		stubDetector{kind: issue.KindFormat, issues: func(s string) []issue.Issue {
			return []issue.Issue{
				spanIssue(issue.KindFormat, s, 0, 3, 0.5),
				spanIssue(issue.KindFormat, s, 6, 8, 0.5),
			}
		}},
		stubDetector{kind: issue.KindConfusion, issues: func(s string) []issue.Issue {
			return []issue.Issue{spanIssue(issue.KindConfusion, s, 2, 5, 0.9)}
		}},
	)

	result, err := e.Check(context.Background(), text, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(result.Issues); i++ {
		for j := i + 1; j < len(result.Issues); j++ {
			if result.Issues[i].Overlaps(result.Issues[j]) {
				t.Fatalf("overlapping output: %+v and %+v", result.Issues[i], result.Issues[j])
			}
		}
	}
}

func TestCheckDropsInvalidSpans(t *testing.T) {
	text := "短文"
	e := newTestEngine(t,
		stubDetector{kind: issue.KindFormat, issues: func(string) []issue.Issue {
			return []issue.Issue{{Kind: issue.KindFormat, Start: 0, End: 99, Original: "短文", Confidence: 0.5}}
		}},
	)
	result, err := e.Check(context.Background(), text, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Issues) != 0 {
		t.Errorf("out-of-range issue survived: %+v", result.Issues)
	}
	// The detector itself still counts as having run.
	if result.Statuses[issue.KindFormat] != issue.StatusOK {
		t.Errorf("status = %s", result.Statuses[issue.KindFormat])
	}
}

func TestCheckDeterministicAcrossRuns(t *testing.T) {
	text := "零一二三四五六七八九"
	e := newTestEngine(t,
		stubDetector{kind: issue.KindFormat, issues: func(s string) []issue.Issue {
			return []issue.Issue{spanIssue(issue.KindFormat, s, 1, 3, 0.8)}
		}},
		stubDetector{kind: issue.KindConfusion, issues: func(s string) []issue.Issue {
			return []issue.Issue{spanIssue(issue.KindConfusion, s, 2, 4, 0.8)}
		}},
		stubDetector{kind: issue.KindTermCompliance, issues: func(s string) []issue.Issue {
			return []issue.Issue{spanIssue(issue.KindTermCompliance, s, 6, 8, 0.9)}
		}},
	)

	first, err := e.Check(context.Background(), text, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		got, err := e.Check(context.Background(), text, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got.Issues, first.Issues) {
			t.Fatalf("run %d differs:\n got %+v\nwant %+v", i, got.Issues, first.Issues)
		}
		if !reflect.DeepEqual(got.Summary, first.Summary) {
			t.Fatalf("summary differs on run %d", i)
		}
	}
}

func TestCheckCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, stubDetector{kind: issue.KindFormat, err: context.Canceled})
	_, err := e.Check(ctx, "文字", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestReloadRulesBumpsVersion(t *testing.T) {
	e := newTestEngine(t)
	before := e.RulesVersion()
	snap := e.ReloadRules()
	if snap.Version != before+1 {
		t.Errorf("version %d -> %d", before, snap.Version)
	}
	if e.RulesVersion() != snap.Version {
		t.Error("RulesVersion does not reflect reload")
	}
}
