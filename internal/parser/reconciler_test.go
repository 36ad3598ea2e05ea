package parser

import (
	"testing"

	"github.com/license-insight/backend/internal/models"
)

func checkoutEvent(date, clock, feature, user, host string) models.LogEvent {
	return models.LogEvent{
		Kind: models.EventCheckout, Date: date, Time: clock,
		Feature: feature, User: user, Host: host,
	}
}

func returnEvent(date, clock, feature, user, host string) models.LogEvent {
	return models.LogEvent{
		Kind: models.EventReturn, Date: date, Time: clock,
		Feature: feature, User: user, Host: host,
	}
}

func TestReconcilePairsCheckoutAndReturn(t *testing.T) {
	events := []models.LogEvent{
		checkoutEvent("3/14/2024", "10:00:00", "MATLAB", "alice", "h1"),
		returnEvent("3/14/2024", "11:30:00", "MATLAB", "alice", "h1"),
	}

	sessions := Reconcile(events)
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sessions))
	}

	s := sessions[0]
	if s.User != "alice" || s.Host != "h1" || s.Feature != "MATLAB" {
		t.Errorf("Unexpected session identity: %+v", s)
	}
	if s.DurationMinutes != 90 {
		t.Errorf("Expected 90 minute duration, got %v", s.DurationMinutes)
	}
}

func TestReconcileDoubleCheckoutReplacesOpen(t *testing.T) {
	events := []models.LogEvent{
		checkoutEvent("3/14/2024", "10:00:00", "MATLAB", "alice", "h1"),
		checkoutEvent("3/14/2024", "10:30:00", "MATLAB", "alice", "h1"),
		returnEvent("3/14/2024", "11:00:00", "MATLAB", "alice", "h1"),
	}

	sessions := Reconcile(events)
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sessions))
	}
	// The later checkout wins; the earlier one is replaced, not stacked.
	if sessions[0].DurationMinutes != 30 {
		t.Errorf("Expected 30 minute duration, got %v", sessions[0].DurationMinutes)
	}
}

func TestReconcileUnmatchedReturnIgnored(t *testing.T) {
	events := []models.LogEvent{
		returnEvent("3/14/2024", "11:00:00", "MATLAB", "alice", "h1"),
	}

	if sessions := Reconcile(events); len(sessions) != 0 {
		t.Errorf("Expected 0 sessions, got %d", len(sessions))
	}
}

func TestReconcileOpenAtEndDropped(t *testing.T) {
	events := []models.LogEvent{
		checkoutEvent("3/14/2024", "10:00:00", "MATLAB", "alice", "h1"),
		checkoutEvent("3/14/2024", "10:05:00", "Simulink", "alice", "h1"),
		returnEvent("3/14/2024", "10:35:00", "Simulink", "alice", "h1"),
	}

	sessions := Reconcile(events)
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Feature != "Simulink" {
		t.Errorf("Expected only the closed Simulink session, got %s", sessions[0].Feature)
	}
}

func TestReconcileNegativeDurationDiscarded(t *testing.T) {
	events := []models.LogEvent{
		checkoutEvent("3/15/2024", "10:00:00", "MATLAB", "alice", "h1"),
		returnEvent("3/14/2024", "11:00:00", "MATLAB", "alice", "h1"),
	}

	if sessions := Reconcile(events); len(sessions) != 0 {
		t.Errorf("Expected negative-duration pairing to be discarded, got %d sessions", len(sessions))
	}
}

func TestReconcileDistinctKeysDoNotCollide(t *testing.T) {
	events := []models.LogEvent{
		checkoutEvent("3/14/2024", "10:00:00", "MATLAB", "alice", "h1"),
		checkoutEvent("3/14/2024", "10:00:00", "MATLAB", "alice", "h2"),
		returnEvent("3/14/2024", "10:30:00", "MATLAB", "alice", "h1"),
		returnEvent("3/14/2024", "11:00:00", "MATLAB", "alice", "h2"),
	}

	sessions := Reconcile(events)
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
}

func TestReconcileSkipsEventsWithoutIdentity(t *testing.T) {
	events := []models.LogEvent{
		{Kind: models.EventCheckout, Date: "3/14/2024", Time: "10:00:00", Feature: "MATLAB"},
		{Kind: models.EventTimestamp, Date: "3/14/2024", Time: "10:01:00"},
	}

	if sessions := Reconcile(events); len(sessions) != 0 {
		t.Errorf("Expected 0 sessions, got %d", len(sessions))
	}
}

func TestDenials(t *testing.T) {
	events := []models.LogEvent{
		{Kind: models.EventDenied, Feature: "MATLAB", User: "bob"},
		{Kind: models.EventDenied}, // no feature, not countable
		{Kind: models.EventCheckout, Feature: "MATLAB", User: "bob", Host: "h1"},
	}

	denials := Denials(events)
	if len(denials) != 1 {
		t.Fatalf("Expected 1 denial, got %d", len(denials))
	}
	if denials[0].User != "bob" {
		t.Errorf("Expected denial user bob, got %s", denials[0].User)
	}
}
