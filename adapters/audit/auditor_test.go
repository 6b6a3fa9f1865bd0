package audit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phaselock/adapters/voltmap"
	"phaselock/domain/phase"
	"phaselock/domain/voltage"
)

func cleanTable(t *testing.T, n int) voltage.Table {
	t.Helper()
	phases := make(phase.Vector, n)
	for i := range phases {
		phases[i] = float64(i) / float64(n) * phase.TwoPi
	}
	table, err := voltmap.Map(phases, voltmap.DefaultParams())
	require.NoError(t, err)
	return table
}

func TestAuditCleanTablePasses(t *testing.T) {
	table := cleanTable(t, 8)
	p := DefaultParams()
	p.ExpectedChannels = 8

	report, err := Audit(table, p)
	require.NoError(t, err)

	assert.True(t, report.Passed)
	assert.Empty(t, report.Violations)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 8, report.Channels)
	assert.GreaterOrEqual(t, report.SafetyMargin, 0.0)
	for _, check := range report.Checks {
		assert.True(t, check.Passed, check.Name)
	}
}

func TestAuditFlagsCorruptedVoltage(t *testing.T) {
	table := cleanTable(t, 6)
	table[3].Voltage = 9.5 // above the 8.0 ceiling

	report, err := Audit(table, DefaultParams())
	require.NoError(t, err)

	assert.False(t, report.Passed)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, 3, report.Violations[0].Channel)
	assert.Equal(t, 9.5, report.Violations[0].Value)
	assert.Equal(t, voltage.SeverityCritical, report.Violations[0].Severity)
	assert.Less(t, report.SafetyMargin, 0.0)
}

func TestAuditFlagsNegativeAndNonFiniteVoltage(t *testing.T) {
	table := cleanTable(t, 4)
	table[0].Voltage = -0.5
	table[2].Voltage = math.NaN()

	report, err := Audit(table, DefaultParams())
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.Len(t, report.Violations, 2)
}

func TestAuditFlagsDACOverflow(t *testing.T) {
	table := cleanTable(t, 4)
	p := DefaultParams()
	p.DACBits = 12
	table[1].DACValue = 5000 // above the 12-bit ceiling of 4095

	report, err := Audit(table, p)
	require.NoError(t, err)
	assert.False(t, report.Passed)
	require.NotEmpty(t, report.Violations)
	assert.Equal(t, 1, report.Violations[0].Channel)
}

func TestAuditFlagsChannelProblems(t *testing.T) {
	table := cleanTable(t, 4)
	table[2].Channel = 1 // duplicate of row 1

	report, err := Audit(table, DefaultParams())
	require.NoError(t, err)
	assert.False(t, report.Passed)

	p := DefaultParams()
	p.ExpectedChannels = 10
	report, err = Audit(cleanTable(t, 4), p)
	require.NoError(t, err)
	assert.False(t, report.Passed)
}

func TestAuditFlagsMissingChannelID(t *testing.T) {
	table := cleanTable(t, 3)
	table[1].Channel = 4 // id 1 now absent even though the count matches

	p := DefaultParams()
	p.ExpectedChannels = 3
	report, err := Audit(table, p)
	require.NoError(t, err)

	assert.False(t, report.Passed)
	require.NotEmpty(t, report.Violations)
	assert.Equal(t, 1, report.Violations[0].Channel)
	for _, check := range report.Checks {
		if check.Name == "channel_integrity" {
			assert.False(t, check.Passed)
		}
	}
}

func TestAuditReorderedChannelsOnlyWarn(t *testing.T) {
	table := cleanTable(t, 4)
	table[0].Channel, table[1].Channel = 1, 0 // complete set, wrong order

	report, err := Audit(table, DefaultParams())
	require.NoError(t, err)
	assert.True(t, report.Passed)
	assert.Empty(t, report.Violations)
	assert.NotEmpty(t, report.Warnings)
}

func TestAuditStrictPromotesWarnings(t *testing.T) {
	table := cleanTable(t, 4)
	table[1].PhaseRad = -0.2 // wrapped incorrectly upstream, volts still legal

	relaxed, err := Audit(table, DefaultParams())
	require.NoError(t, err)
	assert.True(t, relaxed.Passed)
	assert.NotEmpty(t, relaxed.Warnings)

	strict := DefaultParams()
	strict.Strict = true
	report, err := Audit(table, strict)
	require.NoError(t, err)
	assert.False(t, report.Passed)
}

func TestAuditRejectsEmptyTable(t *testing.T) {
	_, err := Audit(nil, DefaultParams())
	assert.Error(t, err)
}
