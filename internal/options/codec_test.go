package options

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/license-insight/backend/internal/models"
)

const sampleOptions = `# Options for the engineering license pool
TIMEOUTALL 7200
TIMEOUT solidworks 3600

GROUP eng jsmith mdoe kwilson
GROUP cad jsmith

RESERVE 2 solidworks GROUP eng
CAP 5 solidworks:SWVERSION=2024 GROUP cad
INCLUDE solidworks USER jsmith
EXCLUDE_BORROW solidworks HOST build-01
`

func TestImport(t *testing.T) {
	result := Import(sampleOptions)
	m := result.Model

	assert.True(t, m.GlobalTimeout.Enabled)
	assert.Equal(t, 7200, m.GlobalTimeout.Seconds)

	require.Len(t, m.FeatureTimeouts, 1)
	assert.Equal(t, models.FeatureTimeout{Feature: "solidworks", Seconds: 3600}, m.FeatureTimeouts[0])

	require.Len(t, m.Groups, 2)
	assert.Equal(t, "eng", m.Groups[0].Name)
	assert.Equal(t, []string{"jsmith", "mdoe", "kwilson"}, m.Groups[0].Members)

	require.Len(t, m.Rules, 4)
	assert.Equal(t, models.Rule{
		Kind: models.RuleReserve, Count: 2, Feature: "solidworks",
		TargetKind: models.TargetGroup, Target: "eng",
	}, m.Rules[0])
	assert.Equal(t, models.Rule{
		Kind: models.RuleCap, Count: 5, Feature: "solidworks", Version: "2024",
		TargetKind: models.TargetGroup, Target: "cad",
	}, m.Rules[1])
	assert.Equal(t, models.Rule{
		Kind: models.RuleInclude, Feature: "solidworks",
		TargetKind: models.TargetUser, Target: "jsmith",
	}, m.Rules[2])
	assert.Equal(t, models.Rule{
		Kind: models.RuleExcludeBorrow, Feature: "solidworks",
		TargetKind: models.TargetHost, Target: "build-01",
	}, m.Rules[3])
}

func TestImportReferencedUsers(t *testing.T) {
	result := Import(sampleOptions)

	// Group members plus USER-targeted rule targets, deduplicated and sorted.
	assert.Equal(t, []string{"jsmith", "kwilson", "mdoe"}, result.ReferencedUsers)
}

func TestImportIgnoresForeignDirectives(t *testing.T) {
	text := "NOLOG DENIED\n" +
		"REPORTLOG +/var/log/report.rl\n" +
		"GROUP eng jsmith\n" +
		"   \n" +
		"# trailing comment\n"

	result := Import(text)

	require.Len(t, result.Model.Groups, 1)
	assert.Empty(t, result.Model.Rules)
	assert.False(t, result.Model.GlobalTimeout.Enabled)
}

func TestImportRejectsMalformedRules(t *testing.T) {
	text := "CAP solidworks GROUP eng\n" + // missing count
		"CAP 0 solidworks GROUP eng\n" + // non-positive count
		"RESERVE 2 solidworks DEPARTMENT eng\n" + // unknown target kind
		"INCLUDE solidworks USER\n" // missing target

	result := Import(text)
	assert.Empty(t, result.Model.Rules)
}

func TestImportCarriageReturns(t *testing.T) {
	result := Import("TIMEOUTALL 900\r\nGROUP eng jsmith\r\n")

	assert.True(t, result.Model.GlobalTimeout.Enabled)
	require.Len(t, result.Model.Groups, 1)
	assert.Equal(t, []string{"jsmith"}, result.Model.Groups[0].Members)
}

func TestImportLowercaseDirectives(t *testing.T) {
	result := Import("reserve 1 solidworks group eng\n")

	require.Len(t, result.Model.Rules, 1)
	assert.Equal(t, models.RuleReserve, result.Model.Rules[0].Kind)
	assert.Equal(t, models.TargetGroup, result.Model.Rules[0].TargetKind)
}

func TestExport(t *testing.T) {
	m := models.NewOptionsModel()
	m.GlobalTimeout = models.GlobalTimeout{Enabled: true, Seconds: 7200}
	m.FeatureTimeouts = []models.FeatureTimeout{{Feature: "solidworks", Seconds: 3600}}
	m.Groups = []models.Group{
		{Name: "eng", Members: []string{"jsmith", "mdoe"}},
		{Name: "empty"}, // skipped
	}
	m.Rules = []models.Rule{
		{Kind: models.RuleReserve, Count: 2, Feature: "solidworks", TargetKind: models.TargetGroup, Target: "eng"},
		{Kind: models.RuleCap, Count: 5, Feature: "solidworks", Version: "2024", TargetKind: models.TargetGroup, Target: "eng"},
		{Kind: models.RuleExclude, Feature: "solidworks", TargetKind: models.TargetHost, Target: "build-01"},
	}

	text := Export(m)

	assert.Contains(t, text, "TIMEOUTALL 7200\n")
	assert.Contains(t, text, "TIMEOUT solidworks 3600\n")
	assert.Contains(t, text, "GROUP eng jsmith mdoe\n")
	assert.NotContains(t, text, "GROUP empty")
	assert.Contains(t, text, "RESERVE 2 solidworks GROUP eng\n")
	assert.Contains(t, text, "CAP 5 solidworks:SWVERSION=2024 GROUP eng\n")
	assert.Contains(t, text, "EXCLUDE solidworks HOST build-01\n")
}

func TestExportDisabledTimeout(t *testing.T) {
	text := Export(models.NewOptionsModel())

	assert.NotContains(t, text, "TIMEOUTALL")
	assert.Contains(t, text, "# No global idle timeout configured")
}

func TestExportImportRoundTrip(t *testing.T) {
	first := Import(sampleOptions)
	exported := Export(first.Model)
	second := Import(exported)

	assert.Equal(t, first.Model, second.Model)
	assert.Equal(t, first.ReferencedUsers, second.ReferencedUsers)

	// Re-exporting is byte-stable.
	assert.Equal(t, exported, Export(second.Model))
}

func TestExportDirectiveOrder(t *testing.T) {
	m := models.NewOptionsModel()
	m.GlobalTimeout = models.GlobalTimeout{Enabled: true, Seconds: 60}
	m.Groups = []models.Group{{Name: "eng", Members: []string{"a"}}}
	m.Rules = []models.Rule{
		{Kind: models.RuleInclude, Feature: "f", TargetKind: models.TargetGroup, Target: "eng"},
	}

	text := Export(m)

	timeoutAt := strings.Index(text, "TIMEOUTALL")
	groupAt := strings.Index(text, "GROUP")
	ruleAt := strings.Index(text, "INCLUDE")
	require.True(t, timeoutAt >= 0 && groupAt >= 0 && ruleAt >= 0)
	assert.Less(t, timeoutAt, groupAt)
	assert.Less(t, groupAt, ruleAt)
}
