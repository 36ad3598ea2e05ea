// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/license-insight/backend/internal/analytics"
	"github.com/license-insight/backend/internal/seatplan"
	"github.com/license-insight/backend/internal/storage"
	"github.com/license-insight/backend/internal/upload"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store             storage.Store
	SessionMgr        SessionManager
	UploadMgr         *upload.Manager
	SeatPlan          seatplan.Plan
	EvalConfig        analytics.EvaluatorConfig
	AllowFileDeletion bool
	Version           string
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Upload   UploadHandler
	Parse    ParseHandler
	Capacity CapacityHandler
	Options  OptionsHandler

	allowFileDeletion bool
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:            NewHealthHandler(deps.Version),
		Upload:            NewUploadHandler(deps.Store, deps.UploadMgr),
		Parse:             NewParseHandler(deps.Store, deps.SessionMgr),
		Capacity:          NewCapacityHandler(deps.SessionMgr, deps.SeatPlan, deps.EvalConfig),
		Options:           NewOptionsHandler(deps.SessionMgr),
		allowFileDeletion: deps.AllowFileDeletion,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// File management
	apiGroup.POST("/files/upload", handlers.Upload.HandleUploadFile)
	apiGroup.POST("/files/upload/binary", handlers.Upload.HandleUploadBinary)
	apiGroup.POST("/files/upload/chunk", handlers.Upload.HandleUploadChunk)
	apiGroup.POST("/files/upload/complete", handlers.Upload.HandleCompleteUpload)
	apiGroup.GET("/files/upload/:jobId/status", handlers.Upload.HandleUploadJobStatus)
	apiGroup.GET("/files/upload/:jobId/stream", handlers.Upload.HandleUploadJobStream)
	apiGroup.GET("/files/recent", handlers.Upload.HandleGetRecentFiles)
	apiGroup.GET("/files/:id", handlers.Upload.HandleGetFile)
	if handlers.allowFileDeletion {
		apiGroup.DELETE("/files/:id", handlers.Upload.HandleDeleteFile)
	}
	apiGroup.PUT("/files/:id", handlers.Upload.HandleRenameFile)

	// Analysis sessions
	apiGroup.POST("/parse", handlers.Parse.HandleStartParse)
	apiGroup.GET("/parse/:sessionId/status", handlers.Parse.HandleParseStatus)
	apiGroup.POST("/parse/:sessionId/keepalive", handlers.Parse.HandleSessionKeepAlive)
	apiGroup.GET("/parse/:sessionId/progress", handlers.Parse.HandleParseProgressStream)
	apiGroup.GET("/parse/:sessionId/events", handlers.Parse.HandleGetEvents)
	apiGroup.GET("/parse/:sessionId/events/msgpack", handlers.Parse.HandleGetEventsMsgpack)
	apiGroup.GET("/parse/:sessionId/sessions", handlers.Parse.HandleGetUsageSessions)
	apiGroup.GET("/parse/:sessionId/metadata", handlers.Parse.HandleGetMetadata)
	apiGroup.GET("/parse/:sessionId/analytics", handlers.Parse.HandleGetAnalytics)

	// Capacity evaluation
	apiGroup.POST("/parse/:sessionId/capacity", handlers.Capacity.HandleEvaluateCapacity)

	// Options files
	apiGroup.POST("/options/import", handlers.Options.HandleImportOptions)
	apiGroup.POST("/options/export", handlers.Options.HandleExportOptions)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
}
