package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhcheck/zhcheck/internal/issue"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeScan represents a completed text scan
	EventTypeScan EventType = "scan_completed"
	// EventTypeRulesReload represents a rule snapshot swap
	EventTypeRulesReload EventType = "rules_reloaded"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// ScanEvent summarizes one completed scan for live dashboards. The text
// itself is never broadcast.
type ScanEvent struct {
	RequestID    string                      `json:"request_id"`
	ClientIP     string                      `json:"client_ip"`
	TextRunes    int                         `json:"text_runes"`
	IssueCount   int                         `json:"issue_count"`
	ByKind       map[issue.Kind]int          `json:"by_kind"`
	Statuses     map[issue.Kind]issue.Status `json:"statuses"`
	RulesVersion int64                       `json:"rules_version"`
	DurationMS   float64                     `json:"duration_ms"`
}

// RulesReloadEvent announces a new rule snapshot.
type RulesReloadEvent struct {
	Version     int64 `json:"version"`
	Diagnostics int   `json:"diagnostics"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	LastPing    time.Time
	IP          string
}
