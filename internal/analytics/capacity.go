package analytics

import (
	"sort"

	"github.com/license-insight/backend/internal/models"
)

// EvaluatorConfig holds the tuning knobs of the right-sizing evaluator.
type EvaluatorConfig struct {
	HourlyLaborRate     float64 // productivity cost of an engineer waiting
	RetryWindowMinutes  float64 // denial-to-checkout gaps beyond this are unrelated
	FallbackWaitMinutes float64 // used when too few measurable retry pairs exist
	MinRetryPairs       int
}

// DefaultEvaluatorConfig returns the standard evaluator settings.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		HourlyLaborRate:     75,
		RetryWindowMinutes:  240,
		FallbackWaitMinutes: 45,
		MinRetryPairs:       3,
	}
}

// EvaluateCapacity classifies every active feature against its seat
// allocation and, for over-utilized features, estimates the annual cost of
// denials and the payback of adding seats. Features without a plan entry are
// evaluated with seats unknown.
func EvaluateCapacity(sessions []models.Session, denials []models.LogEvent, plan map[string]models.SeatAllocation, cfg EvaluatorConfig) *models.CapacityReport {
	report := &models.CapacityReport{
		ObservedDays: observedDays(sessions, denials),
		Features:     make([]models.FeatureAssessment, 0),
	}

	checkouts := make(map[string]int)
	for i := range sessions {
		checkouts[sessions[i].Feature]++
	}
	denialCounts := make(map[string]int)
	for i := range denials {
		denialCounts[denials[i].Feature]++
	}

	features := make([]string, 0, len(checkouts))
	seen := make(map[string]struct{})
	for f := range checkouts {
		features = append(features, f)
		seen[f] = struct{}{}
	}
	for f := range denialCounts {
		if _, ok := seen[f]; !ok {
			features = append(features, f)
		}
	}
	sort.Strings(features)

	for _, feature := range features {
		alloc := plan[feature]
		fa := assessFeature(feature, sessions, denials, alloc, checkouts[feature], denialCounts[feature], report.ObservedDays, cfg)
		report.Features = append(report.Features, fa)
	}

	return report
}

func assessFeature(feature string, sessions []models.Session, denials []models.LogEvent, alloc models.SeatAllocation, checkoutCount, denialCount, observedDays int, cfg EvaluatorConfig) models.FeatureAssessment {
	samples := ConcurrencySamples(sessions, feature)

	fa := models.FeatureAssessment{
		Feature: feature,
		Seats:   alloc.Seats,
		Peak:    maxSample(samples),
		P50:     percentile(samples, 50),
		P90:     percentile(samples, 90),
		P95:     percentile(samples, 95),
	}

	if total := checkoutCount + denialCount; total > 0 {
		fa.DenialPercent = int(float64(denialCount)/float64(total)*100 + 0.5)
	}

	seatsKnown := alloc.Seats > 0
	fa.Class = classify(fa, seatsKnown, denialCount)

	if fa.Class == models.CapacityOverUtilized {
		estimateROI(&fa, feature, sessions, denials, alloc, denialCount, observedDays, cfg)
	}

	return fa
}

// classify applies the exclusive classification predicates in order; the
// first that holds wins.
func classify(fa models.FeatureAssessment, seatsKnown bool, denialCount int) models.CapacityClass {
	switch {
	case fa.DenialPercent > 3 && (!seatsKnown || fa.Peak >= fa.Seats):
		return models.CapacityOverUtilized
	case seatsKnown && float64(fa.Peak) >= 0.9*float64(fa.Seats):
		return models.CapacityAtCapacity
	case seatsKnown && fa.Seats-fa.Peak >= 2 && float64(fa.Peak)/float64(fa.Seats) < 0.75:
		return models.CapacityOverProvisioned
	case !seatsKnown && fa.Peak >= 3 && fa.P90 <= ceilDiv(4*fa.Peak, 10) && denialCount == 0:
		return models.CapacityUnderUtilized
	case seatsKnown:
		return models.CapacityRightSized
	default:
		return models.CapacityNeedsSeatData
	}
}

// estimateROI fills the annualized denial load, the measured or estimated
// wait per denial, and the payback of buying the seats needed to close the
// deficit.
func estimateROI(fa *models.FeatureAssessment, feature string, sessions []models.Session, denials []models.LogEvent, alloc models.SeatAllocation, denialCount, observedDays int, cfg EvaluatorConfig) {
	fa.AnnualizedDenials = float64(denialCount) * 365 / float64(observedDays)

	gaps := retryGaps(feature, sessions, denials, cfg.RetryWindowMinutes)
	if len(gaps) >= cfg.MinRetryPairs {
		fa.WaitPerDenialMins = median(gaps)
	} else {
		fa.WaitPerDenialMins = cfg.FallbackWaitMinutes
		fa.WaitEstimated = true
	}

	fa.AnnualLossEstimate = fa.WaitPerDenialMins / 60 * cfg.HourlyLaborRate * fa.AnnualizedDenials

	if alloc.Seats > 0 {
		fa.SeatsToAdd = fa.Peak - alloc.Seats + 1
		if fa.SeatsToAdd < 1 {
			fa.SeatsToAdd = 1
		}
		if alloc.AnnualSeatCost > 0 {
			fa.AddedSeatCost = float64(fa.SeatsToAdd) * alloc.AnnualSeatCost
			if fa.AnnualLossEstimate > 0 {
				fa.PaybackMonths = fa.AddedSeatCost / (fa.AnnualLossEstimate / 12)
			}
		}
	}
}

// retryGaps measures, for each denial of the feature, the minutes until the
// same user's next successful checkout of that feature. Gaps beyond the
// retry window are treated as unrelated work, not a retry.
func retryGaps(feature string, sessions []models.Session, denials []models.LogEvent, windowMinutes float64) []float64 {
	// Sorted checkout instants per user for this feature.
	starts := make(map[string][]int64)
	for i := range sessions {
		s := &sessions[i]
		if s.Feature == feature {
			starts[s.User] = append(starts[s.User], s.Start.UnixMilli())
		}
	}
	for user := range starts {
		sort.Slice(starts[user], func(i, j int) bool { return starts[user][i] < starts[user][j] })
	}

	var gaps []float64
	for i := range denials {
		d := &denials[i]
		if d.Feature != feature || d.User == "" {
			continue
		}
		ts, ok := d.Timestamp()
		if !ok {
			continue
		}
		deniedAt := ts.UnixMilli()
		userStarts := starts[d.User]
		idx := sort.Search(len(userStarts), func(j int) bool { return userStarts[j] > deniedAt })
		if idx == len(userStarts) {
			continue
		}
		gap := float64(userStarts[idx]-deniedAt) / 60000
		if gap <= windowMinutes {
			gaps = append(gaps, gap)
		}
	}
	return gaps
}

func maxSample(samples []int) int {
	max := 0
	for _, s := range samples {
		if s > max {
			max = s
		}
	}
	return max
}

// percentile sorts a copy of the samples and indexes at the percentile
// position. Fine at these sizes; samples are bounded by event count.
func percentile(samples []int, p int) int {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]int, len(samples))
	copy(sorted, samples)
	sort.Ints(sorted)
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// observedDays counts the distinct calendar days with any activity; the
// denial annualization scales by it. Never less than 1.
func observedDays(sessions []models.Session, denials []models.LogEvent) int {
	days := make(map[string]struct{})
	for i := range sessions {
		days[sessions[i].Start.Format(isoDate)] = struct{}{}
	}
	for i := range denials {
		if ts, ok := denials[i].Timestamp(); ok {
			days[ts.Format(isoDate)] = struct{}{}
		}
	}
	if len(days) == 0 {
		return 1
	}
	return len(days)
}
