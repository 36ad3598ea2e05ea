package models

// SeatAllocation is the externally supplied seat and cost input for one
// feature. Zero values mean "unknown"; neither field can be derived from the
// log itself.
type SeatAllocation struct {
	Seats          int     `json:"seats" yaml:"seats"`
	AnnualSeatCost float64 `json:"annualSeatCost" yaml:"annualSeatCost"`
}

// CapacityClass is the exclusive right-sizing classification of a feature.
type CapacityClass string

const (
	CapacityOverUtilized    CapacityClass = "over-utilized"
	CapacityAtCapacity      CapacityClass = "at-capacity"
	CapacityOverProvisioned CapacityClass = "over-provisioned"
	CapacityUnderUtilized   CapacityClass = "under-utilized"
	CapacityRightSized      CapacityClass = "right-sized"
	CapacityNeedsSeatData   CapacityClass = "needs-seat-data"
)

// FeatureAssessment is the capacity evaluation of one feature.
type FeatureAssessment struct {
	Feature            string        `json:"feature"`
	Seats              int           `json:"seats,omitempty"`
	Peak               int           `json:"peak"`
	P50                int           `json:"p50"`
	P90                int           `json:"p90"`
	P95                int           `json:"p95"`
	DenialPercent      int           `json:"denialPercent"`
	Class              CapacityClass `json:"class"`
	AnnualizedDenials  float64       `json:"annualizedDenials,omitempty"`
	WaitPerDenialMins  float64       `json:"waitPerDenialMinutes,omitempty"`
	WaitEstimated      bool          `json:"waitEstimated,omitempty"` // fallback used
	AnnualLossEstimate float64       `json:"annualLossEstimate,omitempty"`
	SeatsToAdd         int           `json:"seatsToAdd,omitempty"`
	AddedSeatCost      float64       `json:"addedSeatCost,omitempty"`
	PaybackMonths      float64       `json:"paybackMonths,omitempty"`
}

// CapacityReport is the full right-sizing evaluation across all features
// with activity in the log.
type CapacityReport struct {
	ObservedDays int                 `json:"observedDays"`
	Features     []FeatureAssessment `json:"features"`
}
