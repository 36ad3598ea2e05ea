package session

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/license-insight/backend/internal/analytics"
	"github.com/license-insight/backend/internal/models"
	"github.com/license-insight/backend/internal/parser"
	"github.com/license-insight/backend/internal/seatplan"
)

// MaxSessions limits concurrent sessions to prevent memory exhaustion
const MaxSessions = 10

// SessionMaxAge is how long to keep completed sessions before cleanup
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

// Manager handles active log analysis sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	parser   *parser.LogParser
	tempDir  string
}

// SessionState holds the session metadata, the in-memory analysis results
// and the DuckDB-backed raw event storage. Sessions, denials and metadata
// are small enough to keep resident; the full event list is not.
type SessionState struct {
	Session      *models.ParseSession
	Usage        []models.Session
	Denials      []models.LogEvent
	Metadata     models.ServerMetadata
	TimeRange    *models.TimeRange
	Events       *parser.EventStore
	LastAccessed time.Time
}

// NewManager creates a new session manager.
// Uses environment variable DUCKDB_TEMP_DIR for temp directory, defaults to ./data/temp
func NewManager() *Manager {
	tempDir := os.Getenv("DUCKDB_TEMP_DIR")
	if tempDir == "" {
		tempDir = "./data/temp"
	}
	os.MkdirAll(tempDir, 0755)
	return NewManagerWithTempDir(tempDir)
}

// NewManagerWithTempDir creates a session manager with a specific temp directory.
func NewManagerWithTempDir(tempDir string) *Manager {
	return &Manager{
		sessions: make(map[string]*SessionState),
		parser:   parser.NewLogParser(),
		tempDir:  tempDir,
	}
}

// StartSession begins the parsing process for a file.
func (m *Manager) StartSession(fileID, filePath string) (*models.ParseSession, error) {
	// Clean up old sessions if at limit
	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()

	session := models.NewParseSession(sessionID, fileID)
	session.Status = models.SessionStatusParsing

	state := &SessionState{
		Session:      session,
		LastAccessed: time.Now(),
	}

	m.mu.Lock()
	m.sessions[sessionID] = state
	m.mu.Unlock()

	// Run parsing in a background goroutine
	go m.runParse(sessionID, filePath)

	return session, nil
}

func (m *Manager) runParse(sessionID, filePath string) {
	// Recover from panics to prevent backend crash
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Parse %s] PANIC recovered: %v\n", sessionID[:8], r)
			m.updateSessionError(sessionID, fmt.Sprintf("parse panicked: %v", r))
		}
	}()

	start := time.Now()
	fmt.Printf("[Parse %s] Starting parse of %s\n", sessionID[:8], filePath)

	if info, err := os.Stat(filePath); err != nil {
		fmt.Printf("[Parse %s] ERROR stat file: %v\n", sessionID[:8], err)
	} else {
		fmt.Printf("[Parse %s] File info: size=%d bytes, mode=%v\n", sessionID[:8], info.Size(), info.Mode())
	}

	m.mu.Lock()
	if state, ok := m.sessions[sessionID]; ok {
		state.Session.Progress = 10
		state.Session.Status = models.SessionStatusParsing
	}
	m.mu.Unlock()

	// Progress callback updates session every 100K lines
	progressCb := func(lines int, bytesRead, totalBytes int64) {
		var progress float64
		if totalBytes > 0 {
			progress = 10.0 + float64(bytesRead)*80.0/float64(totalBytes)
		} else {
			progress = 10.0
		}
		// Clamp to 89.9% during parsing (90-100% is for finalization)
		if progress > 89.9 {
			progress = 89.9
		}

		m.mu.Lock()
		if state, ok := m.sessions[sessionID]; ok {
			state.Session.Progress = progress
			state.Session.EventCount = lines
		}
		m.mu.Unlock()

		// Log memory usage every 500K lines
		if lines%500000 == 0 {
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			allocMB := float64(memStats.Alloc) / 1024 / 1024
			sysMB := float64(memStats.Sys) / 1024 / 1024
			fmt.Printf("[Parse %s] Progress: %.1f%% (%d lines) - Memory: %.1f MB (alloc) / %.1f MB (sys)\n",
				sessionID[:8], progress, lines, allocMB, sysMB)

			// Force GC if memory usage is high (>2GB) to prevent OOM
			if allocMB > 2048 {
				fmt.Printf("[Parse %s] High memory detected, forcing GC...\n", sessionID[:8])
				runtime.GC()
			}
		}
	}

	result, err := m.parser.ParseFileWithProgress(filePath, progressCb)
	if err != nil {
		fmt.Printf("[Parse %s] ERROR: parse failed: %v\n", sessionID[:8], err)
		m.updateSessionError(sessionID, fmt.Sprintf("parse failed: %v", err))
		return
	}

	fmt.Printf("[Parse %s] Parse complete: %d events, %d usage sessions, %d denials\n",
		sessionID[:8], len(result.Events), len(result.Sessions), len(result.Denials))

	// Move the raw event list into DuckDB so large logs do not stay resident.
	fmt.Printf("[Parse %s] Creating DuckDB event store in %s...\n", sessionID[:8], m.tempDir)
	store, err := parser.NewEventStore(m.tempDir, sessionID)
	if err != nil {
		fmt.Printf("[Parse %s] ERROR: failed to create event store: %v\n", sessionID[:8], err)
		m.updateSessionError(sessionID, fmt.Sprintf("failed to create storage: %v", err))
		return
	}
	for i := range result.Events {
		store.AddEvent(result.Events[i])
	}
	if err := store.LastError(); err != nil {
		store.Close()
		fmt.Printf("[Parse %s] ERROR: event batches were dropped: %v\n", sessionID[:8], err)
		m.updateSessionError(sessionID, fmt.Sprintf("event storage incomplete: %v", err))
		return
	}
	if err := store.Finalize(); err != nil {
		store.Close()
		fmt.Printf("[Parse %s] ERROR: finalizing event store: %v\n", sessionID[:8], err)
		m.updateSessionError(sessionID, fmt.Sprintf("failed to finalize storage: %v", err))
		return
	}
	eventCount := store.Len()
	result.Events = nil

	elapsed := time.Since(start).Milliseconds()

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		store.Close()
		return
	}

	state.Usage = result.Sessions
	state.Denials = result.Denials
	state.Metadata = result.Metadata
	state.TimeRange = result.TimeRange
	state.Events = store

	state.Session.Status = models.SessionStatusComplete
	state.Session.Progress = 100
	state.Session.EventCount = eventCount
	state.Session.SessionCount = len(result.Sessions)
	state.Session.DenialCount = len(result.Denials)
	state.Session.ProcessingTimeMs = elapsed

	if result.TimeRange != nil {
		state.Session.StartTime = result.TimeRange.Start.UnixMilli()
		state.Session.EndTime = result.TimeRange.End.UnixMilli()
	}

	fmt.Printf("[Parse %s] Session ready in %dms\n", sessionID[:8], elapsed)
}

func (m *Manager) updateSessionError(sessionID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Session.Status = models.SessionStatusError
	state.Session.Errors = append(state.Session.Errors, models.ParseError{
		Reason: reason,
	})
}

// cleanupOldSessionsIfNeeded removes oldest completed sessions if at capacity
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < MaxSessions {
		return
	}

	var toDelete []string
	for id, state := range m.sessions {
		if state.Session.Status == models.SessionStatusComplete ||
			state.Session.Status == models.SessionStatusError {
			toDelete = append(toDelete, id)
		}
	}

	toFree := len(m.sessions) - MaxSessions + 1
	deleted := 0
	for _, id := range toDelete {
		if deleted >= toFree {
			break
		}
		if state, ok := m.sessions[id]; ok {
			if state.Events != nil {
				state.Events.Close()
			}
			delete(m.sessions, id)
			deleted++
			fmt.Printf("[Manager] Cleaned up old session %s to free memory\n", id[:8])
		}
	}
}

// CleanupOldSessions removes sessions older than maxAge,
// but keeps sessions that have been accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	for id, state := range m.sessions {
		// Only clean up completed/error sessions
		if state.Session.Status != models.SessionStatusComplete &&
			state.Session.Status != models.SessionStatusError {
			continue
		}

		// Don't clean up sessions that are actively being used
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}

		sessionTime := state.LastAccessed
		if sessionTime.IsZero() {
			sessionTime = time.Now().Add(-maxAge - time.Hour) // Force cleanup
		}

		if sessionTime.Before(cutoff) {
			if state.Events != nil {
				state.Events.Close()
			}
			delete(m.sessions, id)
			fmt.Printf("[Manager] Cleaned up aged session %s (last accessed: %s ago)\n",
				id[:8], time.Since(state.LastAccessed).Round(time.Second))
		}
	}
}

// GetSession returns a session by ID.
func (m *Manager) GetSession(id string) (*models.ParseSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.Session, true
}

// TouchSession updates the LastAccessed timestamp for a session.
// This should be called whenever a session is actively being used
// to prevent it from being cleaned up.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// QueryEvents returns a filtered, paginated page of raw events for a session.
func (m *Manager) QueryEvents(ctx context.Context, id string, q parser.EventQuery, page, pageSize int) ([]models.LogEvent, int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok || state.Events == nil {
		return nil, 0, false
	}

	events, total, err := state.Events.QueryEvents(ctx, q, page, pageSize)
	if err != nil {
		if err == context.DeadlineExceeded || err == context.Canceled {
			fmt.Printf("[Manager] QueryEvents timeout/cancelled for session %s\n", id[:8])
		} else {
			fmt.Printf("[Manager] QueryEvents error: %v\n", err)
		}
		return nil, 0, false
	}
	return events, total, true
}

// UsageFilter narrows usage sessions and denials to one user and/or feature.
// Empty fields match everything.
type UsageFilter struct {
	User    string
	Feature string
}

func (f UsageFilter) matchSession(s *models.Session) bool {
	if f.User != "" && s.User != f.User {
		return false
	}
	if f.Feature != "" && s.Feature != f.Feature {
		return false
	}
	return true
}

func (f UsageFilter) matchDenial(d *models.LogEvent) bool {
	if f.User != "" && d.User != f.User {
		return false
	}
	if f.Feature != "" && d.Feature != f.Feature {
		return false
	}
	return true
}

// GetUsageSessions returns the filtered usage sessions of a session.
func (m *Manager) GetUsageSessions(id string, filter UsageFilter) ([]models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}

	filtered := make([]models.Session, 0, len(state.Usage))
	for i := range state.Usage {
		if filter.matchSession(&state.Usage[i]) {
			filtered = append(filtered, state.Usage[i])
		}
	}
	return filtered, true
}

// GetMetadata returns the server metadata and time range of a session.
func (m *Manager) GetMetadata(id string) (models.ServerMetadata, *models.TimeRange, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return models.ServerMetadata{}, nil, false
	}
	return state.Metadata, state.TimeRange, true
}

// GetAnalytics recomputes the analytics model for a session under the given
// filter. Aggregation is a pure function of the filtered inputs, so a filter
// change is just a re-run, never a cache invalidation problem.
func (m *Manager) GetAnalytics(id string, filter UsageFilter) (*models.Analytics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}

	sessions := make([]models.Session, 0, len(state.Usage))
	for i := range state.Usage {
		if filter.matchSession(&state.Usage[i]) {
			sessions = append(sessions, state.Usage[i])
		}
	}
	denials := make([]models.LogEvent, 0, len(state.Denials))
	for i := range state.Denials {
		if filter.matchDenial(&state.Denials[i]) {
			denials = append(denials, state.Denials[i])
		}
	}

	return analytics.Aggregate(sessions, denials), true
}

// EvaluateCapacity runs the right-sizing evaluator over a session's usage
// against the given seat plan.
func (m *Manager) EvaluateCapacity(id string, plan seatplan.Plan, cfg analytics.EvaluatorConfig) (*models.CapacityReport, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return analytics.EvaluateCapacity(state.Usage, state.Denials, plan, cfg), true
}

// KnownUsers returns the sorted set of user names seen in a session's usage
// sessions and denials. Options import uses it to mark referenced users that
// never appear in the log.
func (m *Manager) KnownUsers(id string) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}

	set := make(map[string]struct{})
	for i := range state.Usage {
		set[state.Usage[i].User] = struct{}{}
	}
	for i := range state.Denials {
		if state.Denials[i].User != "" {
			set[state.Denials[i].User] = struct{}{}
		}
	}

	users := make([]string, 0, len(set))
	for u := range set {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, true
}
