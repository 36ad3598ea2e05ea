package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/license-insight/backend/internal/models"
	"github.com/license-insight/backend/internal/testutil"
	"github.com/vmihailenco/msgpack/v5"
)

func sessionContext(t *testing.T, target string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues("s1")
	return c, rec
}

func TestHandleStartParse(t *testing.T) {
	store := testutil.NewMockStorage()
	file := store.AddFile("file-1", "activity.log", []byte("10:00:00 (mlm) OUT: \"MATLAB\" a@h1\n"))

	mgr := &mockSessionManager{
		found:   true,
		session: models.NewParseSession("s1", file.ID),
	}
	h := NewParseHandler(store, mgr)

	c, rec := newJSONContext(t, http.MethodPost, "/api/parse", `{"fileId": "file-1"}`)

	if err := h.HandleStartParse(c); err != nil {
		t.Fatalf("HandleStartParse failed: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", rec.Code)
	}
	if len(mgr.startedFiles) != 1 || mgr.startedFiles[0] != "file-1" {
		t.Errorf("Expected session start for file-1, got %v", mgr.startedFiles)
	}
}

func TestHandleStartParseUnknownFile(t *testing.T) {
	h := NewParseHandler(testutil.NewMockStorage(), &mockSessionManager{})

	c, _ := newJSONContext(t, http.MethodPost, "/api/parse", `{"fileId": "missing"}`)

	err := h.HandleStartParse(c)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", apiErr.Status)
	}
}

func TestHandleStartParseMissingFileID(t *testing.T) {
	h := NewParseHandler(testutil.NewMockStorage(), &mockSessionManager{})

	c, _ := newJSONContext(t, http.MethodPost, "/api/parse", `{}`)

	err := h.HandleStartParse(c)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", apiErr.Status)
	}
}

func TestHandleParseStatusTouchesSession(t *testing.T) {
	sess := models.NewParseSession("s1", "file-1")
	sess.Status = models.SessionStatusComplete
	sess.Progress = 100
	mgr := &mockSessionManager{found: true, session: sess}
	h := NewParseHandler(testutil.NewMockStorage(), mgr)

	c, rec := sessionContext(t, "/api/parse/s1/status")

	if err := h.HandleParseStatus(c); err != nil {
		t.Fatalf("HandleParseStatus failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if len(mgr.touchedIDs) != 1 {
		t.Error("Expected status check to refresh the session keep-alive")
	}

	var resp models.ParseSession
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != models.SessionStatusComplete {
		t.Errorf("Expected complete status, got %s", resp.Status)
	}
}

func TestHandleSessionKeepAlive(t *testing.T) {
	mgr := &mockSessionManager{found: true, session: models.NewParseSession("s1", "f")}
	h := NewParseHandler(testutil.NewMockStorage(), mgr)

	c, rec := sessionContext(t, "/api/parse/s1/keepalive")

	if err := h.HandleSessionKeepAlive(c); err != nil {
		t.Fatalf("HandleSessionKeepAlive failed: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
}

func TestHandleSessionKeepAliveUnknownSession(t *testing.T) {
	h := NewParseHandler(testutil.NewMockStorage(), &mockSessionManager{found: false})

	c, _ := sessionContext(t, "/api/parse/nope/keepalive")

	err := h.HandleSessionKeepAlive(c)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", apiErr.Status)
	}
}

func TestHandleGetEvents(t *testing.T) {
	mgr := &mockSessionManager{
		found: true,
		denials: []models.LogEvent{
			{Kind: models.EventDenied, User: "carol", Feature: "matlab"},
		},
	}
	h := NewParseHandler(testutil.NewMockStorage(), mgr)

	c, rec := sessionContext(t, "/api/parse/s1/events?page=2&pageSize=50")

	if err := h.HandleGetEvents(c); err != nil {
		t.Fatalf("HandleGetEvents failed: %v", err)
	}

	var resp struct {
		Events   []models.LogEvent `json:"events"`
		Page     int               `json:"page"`
		PageSize int               `json:"pageSize"`
		Total    int               `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Page != 2 || resp.PageSize != 50 {
		t.Errorf("Expected page 2 size 50, got page %d size %d", resp.Page, resp.PageSize)
	}
	if resp.Total != 1 || len(resp.Events) != 1 {
		t.Errorf("Expected 1 event, got total %d len %d", resp.Total, len(resp.Events))
	}
}

func TestHandleGetEventsPaginationDefaults(t *testing.T) {
	mgr := &mockSessionManager{found: true}
	h := NewParseHandler(testutil.NewMockStorage(), mgr)

	// Out-of-range values fall back to the defaults.
	c, rec := sessionContext(t, "/api/parse/s1/events?page=0&pageSize=5000")

	if err := h.HandleGetEvents(c); err != nil {
		t.Fatalf("HandleGetEvents failed: %v", err)
	}

	var resp struct {
		Page     int `json:"page"`
		PageSize int `json:"pageSize"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Page != 1 || resp.PageSize != 100 {
		t.Errorf("Expected defaults page 1 size 100, got page %d size %d", resp.Page, resp.PageSize)
	}
}

func TestHandleGetEventsMsgpack(t *testing.T) {
	mgr := &mockSessionManager{
		found: true,
		denials: []models.LogEvent{
			{Kind: models.EventDenied, User: "carol", Feature: "matlab"},
		},
	}
	h := NewParseHandler(testutil.NewMockStorage(), mgr)

	c, rec := sessionContext(t, "/api/parse/s1/events/msgpack")

	if err := h.HandleGetEventsMsgpack(c); err != nil {
		t.Fatalf("HandleGetEventsMsgpack failed: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/x-msgpack" {
		t.Errorf("Expected msgpack content type, got %s", ct)
	}

	var resp struct {
		Events []models.LogEvent `msgpack:"events"`
		Total  int               `msgpack:"total"`
	}
	if err := msgpack.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode msgpack response: %v", err)
	}
	if resp.Total != 1 || len(resp.Events) != 1 {
		t.Errorf("Expected 1 event, got total %d len %d", resp.Total, len(resp.Events))
	}
}

func TestHandleGetMetadata(t *testing.T) {
	mgr := &mockSessionManager{
		found:    true,
		metadata: models.ServerMetadata{ServerName: "licsrv01", Port: "27000"},
	}
	h := NewParseHandler(testutil.NewMockStorage(), mgr)

	c, rec := sessionContext(t, "/api/parse/s1/metadata")

	if err := h.HandleGetMetadata(c); err != nil {
		t.Fatalf("HandleGetMetadata failed: %v", err)
	}

	var resp struct {
		Metadata models.ServerMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Metadata.ServerName != "licsrv01" {
		t.Errorf("Expected server name licsrv01, got %s", resp.Metadata.ServerName)
	}
}

func TestHandleGetAnalytics(t *testing.T) {
	mgr := &mockSessionManager{
		found: true,
		usage: []models.Session{
			{User: "alice", Host: "h1", Feature: "matlab", DurationMinutes: 60},
		},
	}
	h := NewParseHandler(testutil.NewMockStorage(), mgr)

	c, rec := sessionContext(t, "/api/parse/s1/analytics")

	if err := h.HandleGetAnalytics(c); err != nil {
		t.Fatalf("HandleGetAnalytics failed: %v", err)
	}

	var resp struct {
		Users map[string]models.UserStats `json:"users"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Users["alice"].Sessions != 1 {
		t.Errorf("Expected 1 session for alice, got %d", resp.Users["alice"].Sessions)
	}
}

func TestHandleGetUsageSessionsUnknownSession(t *testing.T) {
	h := NewParseHandler(testutil.NewMockStorage(), &mockSessionManager{found: false})

	c, _ := sessionContext(t, "/api/parse/nope/sessions")

	err := h.HandleGetUsageSessions(c)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", apiErr.Status)
	}
}
