// handlers_capacity.go - Seat right-sizing evaluation handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/license-insight/backend/internal/analytics"
	"github.com/license-insight/backend/internal/models"
	"github.com/license-insight/backend/internal/seatplan"
)

// CapacityHandlerImpl implements the CapacityHandler interface
type CapacityHandlerImpl struct {
	sessionMgr SessionManager
	basePlan   seatplan.Plan
	evalCfg    analytics.EvaluatorConfig
}

// NewCapacityHandler creates a new capacity handler. basePlan is the seat
// plan loaded at startup; requests may overlay per-feature overrides on it.
func NewCapacityHandler(sessionMgr SessionManager, basePlan seatplan.Plan, evalCfg analytics.EvaluatorConfig) CapacityHandler {
	return &CapacityHandlerImpl{
		sessionMgr: sessionMgr,
		basePlan:   basePlan,
		evalCfg:    evalCfg,
	}
}

// HandleEvaluateCapacity runs the right-sizing evaluator for a session.
// The request body may carry seat allocation overrides so the UI can do
// what-if comparisons without editing the configured plan.
func (h *CapacityHandlerImpl) HandleEvaluateCapacity(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	var req evaluateCapacityRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return NewBadRequestError("invalid request body", err)
		}
	}

	for feature, alloc := range req.SeatPlan {
		if alloc.Seats < 0 {
			return NewBadRequestError("seats must not be negative for feature "+feature, nil)
		}
	}

	plan := seatplan.Merge(h.basePlan, req.SeatPlan)

	report, ok := h.sessionMgr.EvaluateCapacity(id, plan, h.evalCfg)
	if !ok {
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusOK, report)
}

type evaluateCapacityRequest struct {
	SeatPlan map[string]models.SeatAllocation `json:"seatPlan"`
}
