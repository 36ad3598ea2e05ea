// Package analytics derives read-only aggregates from reconstructed usage
// sessions and denial events. Every computation here is a pure function of
// its inputs; the session manager re-runs aggregation on every filter change,
// so nothing may depend on hidden state.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/license-insight/backend/internal/models"
)

// Duration histogram buckets in minutes, non-overlapping, last one unbounded.
var durationBuckets = []struct {
	label string
	lo    float64
	hi    float64 // exclusive; <0 means unbounded
}{
	{"0-15m", 0, 15},
	{"15m-1h", 15, 60},
	{"1-2h", 60, 120},
	{"2-4h", 120, 240},
	{"4-8h", 240, 480},
	{"8h+", 480, -1},
}

const isoDate = "2006-01-02"

// Aggregate computes the full analytics model from closed sessions and
// denial events. The sub-computations are independent of each other and run
// in a small constant number of passes.
func Aggregate(sessions []models.Session, denials []models.LogEvent) *models.Analytics {
	a := &models.Analytics{
		Users:             make(map[string]*models.UserStats),
		Features:          make(map[string]*models.FeatureStats),
		Hosts:             make(map[string]*models.HostStats),
		DenialRatios:      make(map[string]int),
		DurationHistogram: make([]models.DurationBucketCount, len(durationBuckets)),
	}
	for i, b := range durationBuckets {
		a.DurationHistogram[i] = models.DurationBucketCount{Label: b.label}
	}

	hostUsers := make(map[string]map[string]struct{})
	checkoutsByDay := make(map[string]int)
	userFeatures := make(map[string]map[string]struct{})

	for i := range sessions {
		s := &sessions[i]

		user := ensureUser(a, s.User)
		user.Sessions++
		user.TotalMinutes += s.DurationMinutes

		feat := ensureFeature(a, s.Feature)
		feat.Checkouts++
		feat.TotalMinutes += s.DurationMinutes

		host := ensureHost(a, s.Host)
		host.Sessions++
		host.TotalMinutes += s.DurationMinutes
		if hostUsers[s.Host] == nil {
			hostUsers[s.Host] = make(map[string]struct{})
		}
		hostUsers[s.Host][s.User] = struct{}{}

		checkoutsByDay[s.Start.Format(isoDate)]++
		a.HourHistogram[s.Start.Hour()]++
		a.DurationHistogram[durationBucket(s.DurationMinutes)].Count++

		if userFeatures[s.User] == nil {
			userFeatures[s.User] = make(map[string]struct{})
		}
		userFeatures[s.User][s.Feature] = struct{}{}
	}

	denialsByDay := make(map[string]int)
	for i := range denials {
		d := &denials[i]
		ensureFeature(a, d.Feature).Denials++
		if d.User != "" {
			ensureUser(a, d.User).Denials++
		}
		if ts, ok := d.Timestamp(); ok {
			denialsByDay[ts.Format(isoDate)]++
		}
	}

	for hostName, users := range hostUsers {
		list := make([]string, 0, len(users))
		for u := range users {
			list = append(list, u)
		}
		sort.Strings(list)
		a.Hosts[hostName].Users = list
	}

	a.DailyCheckouts = sortedDailyCounts(checkoutsByDay)
	a.DailyDenials = sortedDailyCounts(denialsByDay)
	a.DailyPeaks = dailyPeaks(sessions)
	a.CoUsage = coUsagePairs(userFeatures, 10)

	for name, feat := range a.Features {
		total := feat.Checkouts + feat.Denials
		if total == 0 {
			continue
		}
		a.DenialRatios[name] = int(float64(feat.Denials)/float64(total)*100 + 0.5)
	}

	return a
}

func ensureUser(a *models.Analytics, name string) *models.UserStats {
	if s, ok := a.Users[name]; ok {
		return s
	}
	s := &models.UserStats{}
	a.Users[name] = s
	return s
}

func ensureFeature(a *models.Analytics, name string) *models.FeatureStats {
	if s, ok := a.Features[name]; ok {
		return s
	}
	s := &models.FeatureStats{}
	a.Features[name] = s
	return s
}

func ensureHost(a *models.Analytics, name string) *models.HostStats {
	if s, ok := a.Hosts[name]; ok {
		return s
	}
	s := &models.HostStats{Users: []string{}}
	a.Hosts[name] = s
	return s
}

func durationBucket(minutes float64) int {
	for i, b := range durationBuckets {
		if b.hi < 0 || minutes < b.hi {
			return i
		}
	}
	return len(durationBuckets) - 1
}

// sortedDailyCounts converts a day-keyed counter into an ascending series.
// ISO date keys sort lexically in chronological order.
func sortedDailyCounts(byDay map[string]int) []models.DailyCount {
	out := make([]models.DailyCount, 0, len(byDay))
	for day, count := range byDay {
		out = append(out, models.DailyCount{Date: day, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// sweepEvent is one endpoint of a session in the concurrency sweep.
type sweepEvent struct {
	at    int64 // unix ms
	delta int
}

// sweepEvents builds the sorted +1/-1 endpoint series for a session set.
// Returns at equal instants sort before checkouts so a back-to-back release
// and acquire does not count as overlap.
func sweepEvents(sessions []models.Session) []sweepEvent {
	evs := make([]sweepEvent, 0, len(sessions)*2)
	for i := range sessions {
		evs = append(evs,
			sweepEvent{at: sessions[i].Start.UnixMilli(), delta: +1},
			sweepEvent{at: sessions[i].End.UnixMilli(), delta: -1},
		)
	}
	sort.Slice(evs, func(i, j int) bool {
		if evs[i].at != evs[j].at {
			return evs[i].at < evs[j].at
		}
		return evs[i].delta < evs[j].delta
	})
	return evs
}

// dailyPeaks runs the sweep line over all sessions and records, per calendar
// day, the maximum number of simultaneously open sessions.
func dailyPeaks(sessions []models.Session) []models.DailyCount {
	peaks := make(map[string]int)
	running := 0
	for _, ev := range sweepEvents(sessions) {
		running += ev.delta
		day := time.UnixMilli(ev.at).UTC().Format(isoDate)
		if running > peaks[day] {
			peaks[day] = running
		}
	}
	return sortedDailyCounts(peaks)
}

// ConcurrencySamples runs the sweep restricted to one feature's sessions and
// returns the running-sum value observed at every endpoint. Sorting these
// samples and indexing at percentile positions yields the p50/p90/p95 inputs
// of the capacity evaluator.
func ConcurrencySamples(sessions []models.Session, feature string) []int {
	var filtered []models.Session
	for i := range sessions {
		if sessions[i].Feature == feature {
			filtered = append(filtered, sessions[i])
		}
	}
	samples := make([]int, 0, len(filtered)*2)
	running := 0
	for _, ev := range sweepEvents(filtered) {
		running += ev.delta
		samples = append(samples, running)
	}
	return samples
}

// coUsagePairs counts, for every unordered feature pair, how many users used
// both, and returns the top pairs by count with lexical tiebreak. Pair names
// always use the canonical lexical ordering.
func coUsagePairs(userFeatures map[string]map[string]struct{}, limit int) []models.FeaturePair {
	counts := make(map[string]int)
	for _, features := range userFeatures {
		list := make([]string, 0, len(features))
		for f := range features {
			list = append(list, f)
		}
		sort.Strings(list)
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				counts[fmt.Sprintf("%s + %s", list[i], list[j])]++
			}
		}
	}

	pairs := make([]models.FeaturePair, 0, len(counts))
	for pair, count := range counts {
		pairs = append(pairs, models.FeaturePair{Pair: pair, Count: count})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		return pairs[i].Pair < pairs[j].Pair
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}
