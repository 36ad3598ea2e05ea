// handlers_parse.go - Analysis session operation handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/license-insight/backend/internal/models"
	"github.com/license-insight/backend/internal/parser"
	"github.com/license-insight/backend/internal/session"
	"github.com/license-insight/backend/internal/storage"
	"github.com/vmihailenco/msgpack/v5"
)

// ParseHandlerImpl implements the ParseHandler interface
type ParseHandlerImpl struct {
	store      storage.Store
	sessionMgr SessionManager
}

// NewParseHandler creates a new parse handler instance
func NewParseHandler(store storage.Store, sessionMgr SessionManager) ParseHandler {
	return &ParseHandlerImpl{
		store:      store,
		sessionMgr: sessionMgr,
	}
}

// HandleStartParse starts a new analysis session for an uploaded file
func (h *ParseHandlerImpl) HandleStartParse(c echo.Context) error {
	var req startParseRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if req.FileID == "" {
		return NewValidationError("fileId")
	}

	info, err := h.store.Get(req.FileID)
	if err != nil {
		return NewNotFoundError("file", req.FileID)
	}

	path, err := h.store.GetFilePath(info.ID)
	if err != nil {
		return NewInternalError("failed to get file path", err)
	}

	sess, err := h.sessionMgr.StartSession(info.ID, path)
	if err != nil {
		return NewInternalError("failed to start session", err)
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleParseStatus returns the current status of an analysis session
func (h *ParseHandlerImpl) HandleParseStatus(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *ParseHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleParseProgressStream streams parsing progress via SSE
func (h *ParseHandlerImpl) HandleParseProgressStream(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		sendSSEError(c, "session not found")
		return nil
	}

	sendSSEData(c, sess)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			sess, ok := h.sessionMgr.GetSession(id)
			if !ok {
				sendSSEError(c, "session not found")
				return nil
			}

			sendSSEData(c, sess)

			if sess.Status == models.SessionStatusComplete ||
				sess.Status == models.SessionStatusError {
				return nil
			}

		case <-c.Request().Context().Done():
			return nil

		case <-timeout.C:
			sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleGetEvents returns a filtered, paginated page of raw log events
func (h *ParseHandlerImpl) HandleGetEvents(c echo.Context) error {
	resp, apiErr := h.queryEvents(c)
	if apiErr != nil {
		return apiErr
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetEventsMsgpack returns events in MessagePack format. Large event
// pages are noticeably smaller and faster to decode than JSON.
func (h *ParseHandlerImpl) HandleGetEventsMsgpack(c echo.Context) error {
	resp, apiErr := h.queryEvents(c)
	if apiErr != nil {
		return apiErr
	}

	encoded, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode events", err)
	}
	return c.Blob(http.StatusOK, "application/x-msgpack", encoded)
}

func (h *ParseHandlerImpl) queryEvents(c echo.Context) (*eventsResponse, *APIError) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}

	q := parser.EventQuery{
		Kind:    c.QueryParam("kind"),
		User:    c.QueryParam("user"),
		Feature: c.QueryParam("feature"),
		Search:  c.QueryParam("search"),
	}

	ctx := c.Request().Context()
	events, total, ok := h.sessionMgr.QueryEvents(ctx, id, q, page, pageSize)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}

	return &eventsResponse{
		Events:   events,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

// HandleGetUsageSessions returns the reconstructed usage sessions, optionally
// narrowed to one user and/or feature
func (h *ParseHandlerImpl) HandleGetUsageSessions(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sessions, ok := h.sessionMgr.GetUsageSessions(id, usageFilter(c))
	if !ok {
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusOK, sessions)
}

// HandleGetMetadata returns the discovered server identity and log time range
func (h *ParseHandlerImpl) HandleGetMetadata(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	meta, timeRange, ok := h.sessionMgr.GetMetadata(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusOK, metadataResponse{
		Metadata:  meta,
		TimeRange: timeRange,
	})
}

// HandleGetAnalytics returns the analytics model, recomputed under the
// requested user/feature filter
func (h *ParseHandlerImpl) HandleGetAnalytics(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	result, ok := h.sessionMgr.GetAnalytics(id, usageFilter(c))
	if !ok {
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusOK, result)
}

// Request/Response types

type startParseRequest struct {
	FileID string `json:"fileId"`
}

type eventsResponse struct {
	Events   []models.LogEvent `json:"events" msgpack:"events"`
	Page     int               `json:"page" msgpack:"page"`
	PageSize int               `json:"pageSize" msgpack:"pageSize"`
	Total    int               `json:"total" msgpack:"total"`
}

type metadataResponse struct {
	Metadata  models.ServerMetadata `json:"metadata"`
	TimeRange *models.TimeRange     `json:"timeRange,omitempty"`
}

// Helpers

func usageFilter(c echo.Context) session.UsageFilter {
	return session.UsageFilter{
		User:    c.QueryParam("user"),
		Feature: c.QueryParam("feature"),
	}
}

func sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func sendSSEError(c echo.Context, message string) {
	sendSSEData(c, map[string]string{"error": message})
}
