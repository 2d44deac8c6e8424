// Package report exports scan results as downloadable artifacts.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/zhcheck/zhcheck/internal/issue"
)

// Format selects the artifact encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat validates a user-supplied format string, defaulting to CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported report format: %q", s)
	}
}

// Row is one exported finding. Column order follows the header below.
type Row struct {
	Index        int     `csv:"index" parquet:"index" json:"index"`
	Kind         string  `csv:"kind" parquet:"kind" json:"kind"`
	RuleID       string  `csv:"rule_id" parquet:"rule_id" json:"rule_id"`
	Start        int     `csv:"start" parquet:"start" json:"start"`
	End          int     `csv:"end" parquet:"end" json:"end"`
	Original     string  `csv:"original" parquet:"original" json:"original"`
	Hint         string  `csv:"hint" parquet:"hint" json:"hint"`
	Suggestion   string  `csv:"suggestion" parquet:"suggestion" json:"suggestion"`
	Confidence   float64 `csv:"confidence" parquet:"confidence" json:"confidence"`
	ContextLeft  string  `csv:"context_left" parquet:"context_left" json:"context_left"`
	ContextRight string  `csv:"context_right" parquet:"context_right" json:"context_right"`
}

// csvHeader mirrors the original report layout: index, category, rule id,
// span, hit text, evidence, suggestion, confidence, context.
var csvHeader = []string{
	"序号", "类别", "规则ID", "起始索引", "结束索引",
	"命中文本", "证据", "建议", "置信度", "左上下文", "右上下文",
}

// Rows converts aggregated issues to export rows, 1-based index.
func Rows(issues []issue.Issue) []Row {
	rows := make([]Row, len(issues))
	for i, it := range issues {
		rows[i] = Row{
			Index:        i + 1,
			Kind:         string(it.Kind),
			RuleID:       it.SourceRuleID,
			Start:        it.Start,
			End:          it.End,
			Original:     it.Original,
			Hint:         it.Hint,
			Suggestion:   it.Suggestion,
			Confidence:   it.Confidence,
			ContextLeft:  it.ContextLeft,
			ContextRight: it.ContextRight,
		}
	}
	return rows
}

// Exporter writes report artifacts into a fixed directory.
type Exporter struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter creates an exporter rooted at dir, creating it if needed.
func NewExporter(dir string, logger *zap.Logger) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &Exporter{dir: dir, logger: logger, now: time.Now}, nil
}

// Dir returns the directory artifacts are written into.
func (e *Exporter) Dir() string { return e.dir }

// Export writes the issues as one artifact and returns its file name
// (relative to Dir), suitable for a download link.
func (e *Exporter) Export(issues []issue.Issue, format Format) (string, error) {
	name := fmt.Sprintf("zhcheck-report-%s.%s", e.now().Format("20060102-150405"), format)
	path := filepath.Join(e.dir, name)

	rows := Rows(issues)
	var err error
	switch format {
	case FormatCSV:
		err = writeCSV(path, rows)
	case FormatParquet:
		err = writeParquet(path, rows)
	default:
		return "", fmt.Errorf("unsupported report format: %q", format)
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	e.logger.Info("Report exported",
		zap.String("file", name),
		zap.Int("rows", len(rows)),
		zap.String("format", string(format)))
	return name, nil
}

// Resolve maps a previously exported file name back to its path,
// rejecting anything that escapes the report directory.
func (e *Exporter) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid report name: %q", name)
	}
	path := filepath.Join(e.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("report not found: %w", err)
	}
	return path, nil
}

func writeCSV(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Index),
			r.Kind,
			r.RuleID,
			strconv.Itoa(r.Start),
			strconv.Itoa(r.End),
			r.Original,
			r.Hint,
			r.Suggestion,
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			r.ContextLeft,
			r.ContextRight,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return file.Close()
}

func writeParquet(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create Parquet file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Row](file)
	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write Parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}
	return file.Close()
}
