// handlers_options.go - License options file import/export handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/license-insight/backend/internal/models"
	"github.com/license-insight/backend/internal/options"
)

// OptionsHandlerImpl implements the OptionsHandler interface
type OptionsHandlerImpl struct {
	sessionMgr SessionManager
}

// NewOptionsHandler creates a new options handler instance
func NewOptionsHandler(sessionMgr SessionManager) OptionsHandler {
	return &OptionsHandlerImpl{sessionMgr: sessionMgr}
}

// HandleImportOptions parses options-file text into a structured model.
// When a sessionId query parameter is supplied, users referenced by the file
// but absent from that session's log are reported as custom entries.
func (h *OptionsHandlerImpl) HandleImportOptions(c echo.Context) error {
	var req importOptionsRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Text == "" {
		return NewValidationError("text")
	}

	result := options.Import(req.Text)

	resp := importOptionsResponse{
		Model:           result.Model,
		ReferencedUsers: result.ReferencedUsers,
		CustomUsers:     []string{},
	}

	if sessionID := c.QueryParam("sessionId"); sessionID != "" {
		known, ok := h.sessionMgr.KnownUsers(sessionID)
		if !ok {
			return NewNotFoundError("session", sessionID)
		}
		knownSet := make(map[string]struct{}, len(known))
		for _, u := range known {
			knownSet[u] = struct{}{}
		}
		for _, u := range result.ReferencedUsers {
			if _, ok := knownSet[u]; !ok {
				resp.CustomUsers = append(resp.CustomUsers, u)
			}
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// HandleExportOptions renders a structured model as options-file text
func (h *OptionsHandlerImpl) HandleExportOptions(c echo.Context) error {
	var req exportOptionsRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Model == nil {
		return NewValidationError("model")
	}

	text := options.Export(req.Model)

	return c.JSON(http.StatusOK, exportOptionsResponse{Text: text})
}

// Request/Response types

type importOptionsRequest struct {
	Text string `json:"text"`
}

type importOptionsResponse struct {
	Model           *models.OptionsModel `json:"model"`
	ReferencedUsers []string             `json:"referencedUsers"`
	CustomUsers     []string             `json:"customUsers"`
}

type exportOptionsRequest struct {
	Model *models.OptionsModel `json:"model"`
}

type exportOptionsResponse struct {
	Text string `json:"text"`
}
