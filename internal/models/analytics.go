package models

// UserStats aggregates one user's activity across the log.
type UserStats struct {
	Sessions     int     `json:"sessions"`
	TotalMinutes float64 `json:"totalMinutes"`
	Denials      int     `json:"denials"`
}

// FeatureStats aggregates one feature's activity across the log.
type FeatureStats struct {
	Checkouts    int     `json:"checkouts"`
	Denials      int     `json:"denials"`
	TotalMinutes float64 `json:"totalMinutes"`
}

// HostStats aggregates one host's activity across the log. Users is the
// sorted set of distinct users seen on the host.
type HostStats struct {
	Sessions     int      `json:"sessions"`
	TotalMinutes float64  `json:"totalMinutes"`
	Users        []string `json:"users"`
}

// DailyCount is one point of a per-day time series, keyed by ISO date so
// lexical order is chronological order.
type DailyCount struct {
	Date  string `json:"date"` // "2006-01-02"
	Count int    `json:"count"`
}

// FeaturePair is one feature co-usage pairing. Pair uses the canonical
// lexical ordering "A + B"; the reversed ordering never appears.
type FeaturePair struct {
	Pair  string `json:"pair"`
	Count int    `json:"count"`
}

// DurationBucketCount is one bucket of the session-length histogram.
type DurationBucketCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Analytics is the derived, read-only aggregate over a log's sessions and
// denial events. It is a pure function of those two inputs: recomputing from
// the same pair always yields identical output, which is what makes live
// filtering by user or feature safe.
type Analytics struct {
	Users             map[string]*UserStats    `json:"users"`
	Features          map[string]*FeatureStats `json:"features"`
	Hosts             map[string]*HostStats    `json:"hosts"`
	DailyCheckouts    []DailyCount             `json:"dailyCheckouts"`
	DailyDenials      []DailyCount             `json:"dailyDenials"`
	HourHistogram     [24]int                  `json:"hourHistogram"`
	DailyPeaks        []DailyCount             `json:"dailyPeaks"`
	DurationHistogram []DurationBucketCount    `json:"durationHistogram"`
	CoUsage           []FeaturePair            `json:"coUsage"`
	DenialRatios      map[string]int           `json:"denialRatios"` // integer percent
}
