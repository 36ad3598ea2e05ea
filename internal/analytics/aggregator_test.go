package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/license-insight/backend/internal/models"
)

func mkSession(user, host, feature string, start time.Time, minutes float64) models.Session {
	return models.Session{
		User:            user,
		Host:            host,
		Feature:         feature,
		Start:           start,
		End:             start.Add(time.Duration(minutes * float64(time.Minute))),
		DurationMinutes: minutes,
	}
}

func mkDenial(user, feature, date, clock string) models.LogEvent {
	return models.LogEvent{
		Kind: models.EventDenied, User: user, Feature: feature,
		Date: date, Time: clock,
	}
}

var day = time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

func TestAggregateBasicRollups(t *testing.T) {
	sessions := []models.Session{
		mkSession("alice", "h1", "matlab", day, 90),
		mkSession("bob", "h2", "matlab", day.Add(10*time.Minute), 110),
		mkSession("alice", "h1", "simulink", day.Add(4*time.Hour), 30),
	}
	denials := []models.LogEvent{
		mkDenial("carol", "matlab", "3/14/2024", "10:15:00"),
	}

	a := Aggregate(sessions, denials)

	require.Contains(t, a.Users, "alice")
	assert.Equal(t, 2, a.Users["alice"].Sessions)
	assert.Equal(t, 120.0, a.Users["alice"].TotalMinutes)
	assert.Equal(t, 1, a.Users["carol"].Denials)

	require.Contains(t, a.Features, "matlab")
	assert.Equal(t, 2, a.Features["matlab"].Checkouts)
	assert.Equal(t, 1, a.Features["matlab"].Denials)
	assert.Equal(t, 200.0, a.Features["matlab"].TotalMinutes)

	require.Contains(t, a.Hosts, "h1")
	assert.Equal(t, 2, a.Hosts["h1"].Sessions)
	assert.Equal(t, []string{"alice"}, a.Hosts["h1"].Users)
}

func TestAggregateDenialRatioRounds(t *testing.T) {
	sessions := []models.Session{
		mkSession("alice", "h1", "matlab", day, 60),
	}
	denials := []models.LogEvent{
		mkDenial("bob", "matlab", "3/14/2024", "10:15:00"),
	}

	a := Aggregate(sessions, denials)

	// 1 denial out of 2 attempts.
	assert.Equal(t, 50, a.DenialRatios["matlab"])
}

func TestAggregateDenialOnlyFeature(t *testing.T) {
	// A feature can appear in the log only through denials.
	denials := []models.LogEvent{
		mkDenial("bob", "abaqus", "3/14/2024", "10:15:00"),
		mkDenial("carol", "abaqus", "3/14/2024", "10:20:00"),
	}

	a := Aggregate(nil, denials)

	require.Contains(t, a.Features, "abaqus")
	assert.Equal(t, 0, a.Features["abaqus"].Checkouts)
	assert.Equal(t, 2, a.Features["abaqus"].Denials)
	assert.Equal(t, 100, a.DenialRatios["abaqus"])
	require.Len(t, a.DailyDenials, 1)
	assert.Equal(t, 2, a.DailyDenials[0].Count)
}

func TestAggregateDurationHistogram(t *testing.T) {
	sessions := []models.Session{
		mkSession("a", "h", "f", day, 5),    // 0-15m
		mkSession("a", "h", "f", day, 45),   // 15m-1h
		mkSession("a", "h", "f", day, 90),   // 1-2h
		mkSession("a", "h", "f", day, 600),  // 8h+
		mkSession("a", "h", "f", day, 15),   // boundary: 15m-1h
	}

	a := Aggregate(sessions, nil)

	counts := make(map[string]int)
	for _, b := range a.DurationHistogram {
		counts[b.Label] = b.Count
	}
	assert.Equal(t, 1, counts["0-15m"])
	assert.Equal(t, 2, counts["15m-1h"])
	assert.Equal(t, 1, counts["1-2h"])
	assert.Equal(t, 0, counts["2-4h"])
	assert.Equal(t, 1, counts["8h+"])
}

func TestAggregateDailySeries(t *testing.T) {
	sessions := []models.Session{
		mkSession("a", "h", "f", day, 30),
		mkSession("b", "h", "f", day.AddDate(0, 0, 1), 30),
		mkSession("c", "h", "f", day.AddDate(0, 0, 1), 30),
	}

	a := Aggregate(sessions, nil)

	require.Len(t, a.DailyCheckouts, 2)
	assert.Equal(t, models.DailyCount{Date: "2024-03-14", Count: 1}, a.DailyCheckouts[0])
	assert.Equal(t, models.DailyCount{Date: "2024-03-15", Count: 2}, a.DailyCheckouts[1])
}

func TestAggregateDailyPeaks(t *testing.T) {
	sessions := []models.Session{
		mkSession("a", "h1", "f", day, 60),
		mkSession("b", "h2", "f", day.Add(30*time.Minute), 60), // overlaps -> peak 2
		mkSession("c", "h3", "f", day.AddDate(0, 0, 1), 60),    // next day alone
	}

	a := Aggregate(sessions, nil)

	peaks := make(map[string]int)
	for _, p := range a.DailyPeaks {
		peaks[p.Date] = p.Count
	}
	assert.Equal(t, 2, peaks["2024-03-14"])
	assert.Equal(t, 1, peaks["2024-03-15"])
}

func TestAggregateBackToBackNotConcurrent(t *testing.T) {
	// A return and a checkout at the same instant must not count as overlap.
	sessions := []models.Session{
		mkSession("a", "h1", "f", day, 30),
		mkSession("b", "h2", "f", day.Add(30*time.Minute), 30),
	}

	a := Aggregate(sessions, nil)

	require.Len(t, a.DailyPeaks, 1)
	assert.Equal(t, 1, a.DailyPeaks[0].Count)
}

func TestAggregateCoUsage(t *testing.T) {
	sessions := []models.Session{
		mkSession("alice", "h1", "matlab", day, 30),
		mkSession("alice", "h1", "simulink", day, 30),
		mkSession("bob", "h2", "simulink", day, 30),
		mkSession("bob", "h2", "matlab", day, 30),
		mkSession("carol", "h3", "matlab", day, 30),
	}

	a := Aggregate(sessions, nil)

	require.Len(t, a.CoUsage, 1)
	// Canonical lexical pair name regardless of usage order.
	assert.Equal(t, "matlab + simulink", a.CoUsage[0].Pair)
	assert.Equal(t, 2, a.CoUsage[0].Count)
}

func TestAggregateHourHistogram(t *testing.T) {
	sessions := []models.Session{
		mkSession("a", "h", "f", day, 30),                    // 10:00
		mkSession("b", "h", "f", day.Add(15*time.Minute), 5), // 10:15
		mkSession("c", "h", "f", day.Add(4*time.Hour), 5),    // 14:00
	}

	a := Aggregate(sessions, nil)

	assert.Equal(t, 2, a.HourHistogram[10])
	assert.Equal(t, 1, a.HourHistogram[14])
}

func TestAggregateIsPure(t *testing.T) {
	sessions := []models.Session{
		mkSession("alice", "h1", "matlab", day, 90),
		mkSession("bob", "h2", "matlab", day.Add(10*time.Minute), 110),
	}
	denials := []models.LogEvent{
		mkDenial("carol", "matlab", "3/14/2024", "10:15:00"),
	}

	first := Aggregate(sessions, denials)
	second := Aggregate(sessions, denials)

	assert.Equal(t, first.Users, second.Users)
	assert.Equal(t, first.Features, second.Features)
	assert.Equal(t, first.DailyPeaks, second.DailyPeaks)
	assert.Equal(t, first.CoUsage, second.CoUsage)
	assert.Equal(t, first.DenialRatios, second.DenialRatios)
}

func TestConcurrencySamples(t *testing.T) {
	sessions := []models.Session{
		mkSession("a", "h1", "matlab", day, 60),
		mkSession("b", "h2", "matlab", day.Add(30*time.Minute), 60),
		mkSession("c", "h3", "simulink", day, 60), // other feature, excluded
	}

	samples := ConcurrencySamples(sessions, "matlab")
	require.Len(t, samples, 4)
	assert.Equal(t, []int{1, 2, 1, 0}, samples)

	// The running sum never goes negative and ends at zero.
	for _, s := range samples {
		assert.GreaterOrEqual(t, s, 0)
	}
	assert.Equal(t, 0, samples[len(samples)-1])
}

func TestAggregateEmptyInput(t *testing.T) {
	a := Aggregate(nil, nil)

	assert.Empty(t, a.Users)
	assert.Empty(t, a.Features)
	assert.Empty(t, a.DailyCheckouts)
	assert.Empty(t, a.CoUsage)
	require.Len(t, a.DurationHistogram, 6)
}
