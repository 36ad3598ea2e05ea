// Package seatplan loads the purchased-seat declaration that the capacity
// evaluator compares observed usage against.
package seatplan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/license-insight/backend/internal/models"
)

// Plan maps feature name to its seat allocation. Features absent from the
// plan are evaluated with seats unknown.
type Plan map[string]models.SeatAllocation

// Load reads a seat plan from a YAML file. A missing file is not an error;
// it returns an empty plan so the evaluator can still run in
// seats-unknown mode.
func Load(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Plan{}, nil
		}
		return nil, fmt.Errorf("reading seat plan: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML seat-plan bytes.
func Parse(data []byte) (Plan, error) {
	var doc struct {
		Features map[string]models.SeatAllocation `yaml:"features"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing seat plan: %w", err)
	}

	plan := make(Plan, len(doc.Features))
	for feature, alloc := range doc.Features {
		if alloc.Seats < 0 {
			return nil, fmt.Errorf("seat plan: feature %q has negative seats", feature)
		}
		plan[feature] = alloc
	}
	return plan, nil
}

// Merge overlays overrides on top of the base plan without mutating either.
func Merge(base Plan, overrides map[string]models.SeatAllocation) Plan {
	merged := make(Plan, len(base)+len(overrides))
	for f, a := range base {
		merged[f] = a
	}
	for f, a := range overrides {
		merged[f] = a
	}
	return merged
}
