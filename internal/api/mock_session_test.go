package api

import (
	"context"

	"github.com/license-insight/backend/internal/analytics"
	"github.com/license-insight/backend/internal/models"
	"github.com/license-insight/backend/internal/parser"
	"github.com/license-insight/backend/internal/seatplan"
	"github.com/license-insight/backend/internal/session"
)

// mockSessionManager is a configurable SessionManager for handler tests.
type mockSessionManager struct {
	session      *models.ParseSession
	usage        []models.Session
	denials      []models.LogEvent
	metadata     models.ServerMetadata
	timeRange    *models.TimeRange
	knownUsers   []string
	report       *models.CapacityReport
	lastPlan     seatplan.Plan
	found        bool
	startErr     error
	touchedIDs   []string
	startedFiles []string
}

var _ SessionManager = (*mockSessionManager)(nil)

func (m *mockSessionManager) StartSession(fileID, filePath string) (*models.ParseSession, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.startedFiles = append(m.startedFiles, fileID)
	return m.session, nil
}

func (m *mockSessionManager) GetSession(id string) (*models.ParseSession, bool) {
	return m.session, m.found
}

func (m *mockSessionManager) TouchSession(id string) bool {
	if !m.found {
		return false
	}
	m.touchedIDs = append(m.touchedIDs, id)
	return true
}

func (m *mockSessionManager) QueryEvents(ctx context.Context, id string, q parser.EventQuery, page, pageSize int) ([]models.LogEvent, int, bool) {
	return m.denials, len(m.denials), m.found
}

func (m *mockSessionManager) GetUsageSessions(id string, filter session.UsageFilter) ([]models.Session, bool) {
	return m.usage, m.found
}

func (m *mockSessionManager) GetMetadata(id string) (models.ServerMetadata, *models.TimeRange, bool) {
	return m.metadata, m.timeRange, m.found
}

func (m *mockSessionManager) GetAnalytics(id string, filter session.UsageFilter) (*models.Analytics, bool) {
	if !m.found {
		return nil, false
	}
	return analytics.Aggregate(m.usage, m.denials), true
}

func (m *mockSessionManager) EvaluateCapacity(id string, plan seatplan.Plan, cfg analytics.EvaluatorConfig) (*models.CapacityReport, bool) {
	m.lastPlan = plan
	return m.report, m.found
}

func (m *mockSessionManager) KnownUsers(id string) ([]string, bool) {
	return m.knownUsers, m.found
}
