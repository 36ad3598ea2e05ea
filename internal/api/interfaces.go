// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/license-insight/backend/internal/analytics"
	"github.com/license-insight/backend/internal/models"
	"github.com/license-insight/backend/internal/parser"
	"github.com/license-insight/backend/internal/seatplan"
	"github.com/license-insight/backend/internal/session"
)

// UploadHandler handles file upload operations
type UploadHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadChunk(c echo.Context) error
	HandleCompleteUpload(c echo.Context) error
	HandleUploadBinary(c echo.Context) error
	HandleUploadJobStatus(c echo.Context) error
	HandleUploadJobStream(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandleRenameFile(c echo.Context) error
}

// ParseHandler handles analysis session operations
type ParseHandler interface {
	HandleStartParse(c echo.Context) error
	HandleParseStatus(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleParseProgressStream(c echo.Context) error
	HandleGetEvents(c echo.Context) error
	HandleGetEventsMsgpack(c echo.Context) error
	HandleGetUsageSessions(c echo.Context) error
	HandleGetMetadata(c echo.Context) error
	HandleGetAnalytics(c echo.Context) error
}

// CapacityHandler handles seat right-sizing evaluation
type CapacityHandler interface {
	HandleEvaluateCapacity(c echo.Context) error
}

// OptionsHandler handles license options file import/export
type OptionsHandler interface {
	HandleImportOptions(c echo.Context) error
	HandleExportOptions(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	StartSession(fileID, filePath string) (*models.ParseSession, error)
	GetSession(id string) (*models.ParseSession, bool)
	TouchSession(id string) bool
	QueryEvents(ctx context.Context, id string, q parser.EventQuery, page, pageSize int) ([]models.LogEvent, int, bool)
	GetUsageSessions(id string, filter session.UsageFilter) ([]models.Session, bool)
	GetMetadata(id string) (models.ServerMetadata, *models.TimeRange, bool)
	GetAnalytics(id string, filter session.UsageFilter) (*models.Analytics, bool)
	EvaluateCapacity(id string, plan seatplan.Plan, cfg analytics.EvaluatorConfig) (*models.CapacityReport, bool)
	KnownUsers(id string) ([]string, bool)
}
