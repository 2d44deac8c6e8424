package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/zhcheck/zhcheck/internal/engine"
	"github.com/zhcheck/zhcheck/internal/friendly"
	"github.com/zhcheck/zhcheck/internal/issue"
	"github.com/zhcheck/zhcheck/internal/report"
	"github.com/zhcheck/zhcheck/internal/websocket"
)

// checkRequest is the body of POST /api/check. Friendly is a pointer so
// an absent field defaults to true rather than the zero value.
type checkRequest struct {
	Text     string   `json:"text"`
	Modes    []string `json:"modes,omitempty"`
	Friendly *bool    `json:"friendly,omitempty"`
}

// checkResponse extends the engine result with rendering and caching
// metadata.
type checkResponse struct {
	*engine.Result
	FriendlyIssues []string `json:"friendly_issues,omitempty"`
	Cached         bool     `json:"cached"`
}

// reportRequest is the body of POST /api/report.
type reportRequest struct {
	Text   string   `json:"text"`
	Modes  []string `json:"modes,omitempty"`
	Format string   `json:"format,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	kinds := make([]string, 0)
	for _, k := range issue.AllKinds() {
		kinds = append(kinds, string(k))
	}
	info := map[string]interface{}{
		"name":          "zhcheck",
		"version":       "0.1.0",
		"kinds":         kinds,
		"rules_version": s.engine.RulesVersion(),
		"cache":         s.cache != nil,
		"history":       s.history != nil,
	}
	if s.cache != nil {
		if stats, err := s.cache.GetStats(r.Context()); err == nil {
			info["cache_stats"] = stats
		} else {
			s.logger.Warn("Failed to read cache stats", zap.Error(err))
		}
	}
	if s.config.WebSocket.Enabled {
		info["websocket"] = s.wsHub.GetStats()
	}
	writeJSON(w, http.StatusOK, info)
}

// handleCheck runs one scan and returns the aggregated issues.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	modes, ok := s.parseModes(w, req.Modes)
	if !ok {
		return
	}
	if !s.validateText(w, req.Text) {
		return
	}

	result, cached, err := s.scan(r, req.Text, modes)
	if err != nil {
		s.writeScanError(w, err)
		return
	}

	resp := checkResponse{Result: result, Cached: cached}
	if req.Friendly == nil || *req.Friendly {
		resp.FriendlyIssues = friendly.RenderAll(result.Issues, req.Text)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReport runs one scan and exports the findings as an artifact.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	format, err := report.ParseFormat(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	modes, ok := s.parseModes(w, req.Modes)
	if !ok {
		return
	}
	if !s.validateText(w, req.Text) {
		return
	}

	result, _, err := s.scan(r, req.Text, modes)
	if err != nil {
		s.writeScanError(w, err)
		return
	}

	name, err := s.exporter.Export(result.Issues, format)
	if err != nil {
		s.logger.Error("Report export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "report export failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file":         name,
		"download_url": "/download/" + name,
		"issue_count":  len(result.Issues),
		"format":       string(format),
	})
}

// handleDownload serves a previously exported report artifact.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	path, err := s.exporter.Resolve(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// handleRulesReload swaps in a freshly compiled rule snapshot. Cached
// results are keyed by snapshot version, so entries for the old version
// can never be hit again; drop them instead of waiting out the TTL.
func (s *Server) handleRulesReload(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.ReloadRules()

	if s.cache != nil {
		if err := s.cache.Clear(r.Context()); err != nil {
			s.logger.Warn("Failed to clear scan cache after rules reload", zap.Error(err))
		}
	}

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeRulesReload,
		Timestamp: time.Now(),
		RequestID: requestID(r.Context()),
		Data: websocket.RulesReloadEvent{
			Version:     snap.Version,
			Diagnostics: len(snap.Diagnostics),
		},
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules_version": snap.Version,
		"diagnostics":   len(snap.Diagnostics),
	})
}

// handleRulesDiagnostics lists entries skipped during rule compilation.
func (s *Server) handleRulesDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"diagnostics": s.engine.Diagnostics(),
	})
}

// handleHistory returns recent scan records.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "scan history is not enabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("History query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
	})
}

// scan runs one cached scan: cache hit short-circuits the engine, a miss
// scans and fills the cache. History and websocket fan-out happen on
// fresh scans only.
func (s *Server) scan(r *http.Request, text string, modes issue.ModeSet) (*engine.Result, bool, error) {
	ctx := r.Context()

	if s.cache != nil {
		if result, ok := s.cache.Get(ctx, text, modes, s.engine.RulesVersion()); ok {
			return result, true, nil
		}
	}

	result, err := s.engine.Check(ctx, text, modes)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		s.cache.Store(ctx, text, modes, result.RulesVersion, result)
	}
	if s.history != nil {
		if err := s.history.Record(ctx, text, result); err != nil {
			s.logger.Warn("Failed to record scan history", zap.Error(err))
		}
	}

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeScan,
		Timestamp: time.Now(),
		RequestID: requestID(ctx),
		Data: websocket.ScanEvent{
			RequestID:    requestID(ctx),
			ClientIP:     clientIP(r),
			TextRunes:    len([]rune(text)),
			IssueCount:   len(result.Issues),
			ByKind:       result.Summary.ByKind,
			Statuses:     result.Statuses,
			RulesVersion: result.RulesVersion,
			DurationMS:   result.DurationMS,
		},
	})

	return result, false, nil
}

func (s *Server) parseModes(w http.ResponseWriter, names []string) (issue.ModeSet, bool) {
	if len(names) == 0 {
		return s.config.DefaultModes(), true
	}
	modes, err := issue.ParseModes(names)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return modes, true
}

func (s *Server) validateText(w http.ResponseWriter, text string) bool {
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return false
	}
	if n := len([]rune(text)); n > s.config.Engine.MaxTextRunes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text too long: %d runes (max %d)", n, s.config.Engine.MaxTextRunes))
		return false
	}
	return true
}

func (s *Server) writeScanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrEmptyText), errors.Is(err, engine.ErrInvalidText):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("Scan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
