package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/zhcheck/zhcheck/internal/config"
	"github.com/zhcheck/zhcheck/internal/detect"
	"github.com/zhcheck/zhcheck/internal/engine"
	"github.com/zhcheck/zhcheck/internal/issue"
	"github.com/zhcheck/zhcheck/internal/logger"
	"github.com/zhcheck/zhcheck/internal/report"
	"github.com/zhcheck/zhcheck/internal/rules"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.GetDefaults()
	cfg.Engine.MaxTextRunes = 100
	cfg.RateLimit.Enabled = false

	log, err := logger.New(logger.Config{Level: "error", Format: "json"})
	if err != nil {
		t.Fatal(err)
	}

	store := rules.NewStore(filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	t.Cleanup(func() { store.Close() })

	eng := engine.New(store,
		[]detect.Detector{detect.NewFormat(), detect.NewLexicon(), detect.NewTerm()},
		engine.AggregateConfig{}, zap.NewNop())

	exporter, err := report.NewExporter(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	srv, err := New(cfg, log, Deps{Engine: eng, Exporter: exporter})
	if err != nil {
		t.Fatal(err)
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf("body = %v", body)
	}
}

func TestInfoEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "GET", "/info", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Name      string   `json:"name"`
		Kinds     []string `json:"kinds"`
		WebSocket *struct {
			ActiveConnections int64 `json:"active_connections"`
		} `json:"websocket"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Name != "zhcheck" || len(body.Kinds) != 6 {
		t.Errorf("body = %+v", body)
	}
	if body.WebSocket == nil {
		t.Error("hub stats missing from info response")
	} else if body.WebSocket.ActiveConnections != 0 {
		t.Errorf("active_connections = %d", body.WebSocket.ActiveConnections)
	}
}

func TestCheckHappyPath(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "POST", "/api/check", checkRequest{Text: "中文  中文"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Issues   []issue.Issue               `json:"issues"`
		Statuses map[issue.Kind]issue.Status `json:"statuses"`
		Cached   bool                        `json:"cached"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Issues) == 0 {
		t.Fatal("expected at least one finding for doubled spaces")
	}
	if body.Issues[0].SourceRuleID != "multi_space" {
		t.Errorf("issue = %+v", body.Issues[0])
	}
	if body.Statuses[issue.KindFormat] != issue.StatusOK {
		t.Errorf("statuses = %v", body.Statuses)
	}
	if body.Cached {
		t.Error("no cache wired, cached must be false")
	}
}

func TestCheckFriendlyRendering(t *testing.T) {
	srv := newTestServer(t)

	decode := func(t *testing.T, rec *httptest.ResponseRecorder) []string {
		t.Helper()
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var body struct {
			FriendlyIssues []string `json:"friendly_issues"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		return body.FriendlyIssues
	}

	t.Run("on by default", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/api/check", checkRequest{Text: "中文  中文"})
		got := decode(t, rec)
		if len(got) == 0 || !strings.Contains(got[0], "多余空格") {
			t.Errorf("friendly_issues = %v", got)
		}
	})

	t.Run("explicit true", func(t *testing.T) {
		on := true
		rec := doJSON(t, srv, "POST", "/api/check", checkRequest{Text: "中文  中文", Friendly: &on})
		if got := decode(t, rec); len(got) == 0 {
			t.Errorf("friendly_issues = %v", got)
		}
	})

	t.Run("explicit false", func(t *testing.T) {
		off := false
		rec := doJSON(t, srv, "POST", "/api/check", checkRequest{Text: "中文  中文", Friendly: &off})
		if got := decode(t, rec); len(got) != 0 {
			t.Errorf("friendly_issues = %v, want none", got)
		}
	})
}

func TestCheckModeFilter(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "POST", "/api/check",
		checkRequest{Text: "中文  中文", Modes: []string{"term_compliance"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Issues   []issue.Issue               `json:"issues"`
		Statuses map[issue.Kind]issue.Status `json:"statuses"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Issues) != 0 {
		t.Errorf("format finding leaked through disabled mode: %+v", body.Issues)
	}
	if body.Statuses[issue.KindFormat] != issue.StatusDisabled {
		t.Errorf("statuses = %v", body.Statuses)
	}
}

func TestCheckRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"text": `, http.StatusBadRequest},
		{"missing text", `{}`, http.StatusBadRequest},
		{"whitespace text", `{"text": "   "}`, http.StatusBadRequest},
		{"unknown mode", `{"text": "文字", "modes": ["spellcheck"]}`, http.StatusBadRequest},
		{"oversized text", fmt.Sprintf(`{"text": %q}`, strings.Repeat("字", 101)), http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/check", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestReportAndDownloadRoundtrip(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "POST", "/api/report", reportRequest{Text: "中文  中文"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		File        string `json:"file"`
		DownloadURL string `json:"download_url"`
		IssueCount  int    `json:"issue_count"`
		Format      string `json:"format"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Format != "csv" || body.IssueCount == 0 {
		t.Errorf("body = %+v", body)
	}
	if body.DownloadURL != "/download/"+body.File {
		t.Errorf("download_url = %q", body.DownloadURL)
	}

	dl := doJSON(t, srv, "GET", body.DownloadURL, nil)
	if dl.Code != http.StatusOK {
		t.Fatalf("download status = %d", dl.Code)
	}
	if cd := dl.Header().Get("Content-Disposition"); !strings.Contains(cd, body.File) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(dl.Body.String(), "序号") {
		t.Error("downloaded artifact is not the CSV report")
	}
}

func TestReportRejectsUnknownFormat(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "POST", "/api/report", reportRequest{Text: "文字", Format: "xlsx"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestDownloadRejectsUnknownFile(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "GET", "/download/nope.csv", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRulesReloadBumpsVersion(t *testing.T) {
	srv := newTestServer(t)

	before := srv.engine.RulesVersion()
	rec := doJSON(t, srv, "POST", "/api/rules/reload", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		RulesVersion int64 `json:"rules_version"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.RulesVersion != before+1 {
		t.Errorf("rules_version %d -> %d", before, body.RulesVersion)
	}
}

func TestRulesDiagnosticsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "GET", "/api/rules/diagnostics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Diagnostics []rules.Diagnostic `json:"diagnostics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
}

func TestHistoryDisabledReturns501(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "GET", "/api/history", nil)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRateLimitRejectsBursts(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RPS = 1
	cfg.RateLimit.Burst = 2

	log, err := logger.New(logger.Config{Level: "error", Format: "json"})
	if err != nil {
		t.Fatal(err)
	}
	store := rules.NewStore(filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	defer store.Close()
	eng := engine.New(store, []detect.Detector{detect.NewFormat()}, engine.AggregateConfig{}, zap.NewNop())
	exporter, err := report.NewExporter(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(cfg, log, Deps{Engine: eng, Exporter: exporter})
	if err != nil {
		t.Fatal(err)
	}

	limited := false
	for i := 0; i < 5; i++ {
		rec := doJSON(t, srv, "POST", "/api/check", checkRequest{Text: "正常文本"})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("burst of requests was never rate limited")
	}
}
