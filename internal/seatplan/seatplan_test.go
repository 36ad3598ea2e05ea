package seatplan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/license-insight/backend/internal/models"
)

const sampleYAML = `features:
  matlab:
    seats: 10
    annualSeatCost: 2150
  solidworks:
    seats: 25
`

func TestParse(t *testing.T) {
	plan, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, plan, 2)

	assert.Equal(t, models.SeatAllocation{Seats: 10, AnnualSeatCost: 2150}, plan["matlab"])
	assert.Equal(t, models.SeatAllocation{Seats: 25}, plan["solidworks"])
}

func TestParseNegativeSeats(t *testing.T) {
	_, err := Parse([]byte("features:\n  matlab:\n    seats: -1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative seats")
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("features: [not a map"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	plan, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seatplan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	plan, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, plan["matlab"].Seats)
}

func TestLoadMissingFile(t *testing.T) {
	plan, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.NotNil(t, plan)
	assert.Empty(t, plan)
}

func TestMerge(t *testing.T) {
	base := Plan{
		"matlab":     {Seats: 10, AnnualSeatCost: 2150},
		"solidworks": {Seats: 25},
	}
	overrides := map[string]models.SeatAllocation{
		"matlab": {Seats: 12, AnnualSeatCost: 2150},
		"abaqus": {Seats: 5},
	}

	merged := Merge(base, overrides)

	assert.Equal(t, 12, merged["matlab"].Seats)
	assert.Equal(t, 25, merged["solidworks"].Seats)
	assert.Equal(t, 5, merged["abaqus"].Seats)

	// Inputs stay untouched.
	assert.Equal(t, 10, base["matlab"].Seats)
	assert.NotContains(t, base, "abaqus")
}
