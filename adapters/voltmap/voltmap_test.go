package voltmap

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phaselock/domain/core"
	"phaselock/domain/phase"
	"phaselock/domain/voltage"
)

func TestMapReferenceScenario(t *testing.T) {
	p := Params{VPi: 5.2, VBias: 0.0, VMax: 8.0, DACBits: 16}
	eps := 1e-9
	phases := phase.Vector{0, math.Pi, phase.TwoPi - eps, 7 * math.Pi}

	table, err := Map(phases, p)
	require.NoError(t, err)
	require.Len(t, table, 4)

	// Zero phase drives zero volts and code zero.
	assert.Equal(t, 0.0, table[0].Voltage)
	assert.Equal(t, uint64(0), table[0].DACValue)

	// Pi phase drives exactly V_pi / 2.
	assert.InDelta(t, 2.6, table[1].Voltage, 1e-12)
	assert.Equal(t, uint64(math.Round(2.6/8.0*65535)), table[1].DACValue)

	// Just under a full turn approaches V_pi.
	assert.InDelta(t, 5.2, table[2].Voltage, 1e-6)

	// 7pi wraps to pi before mapping, matching channel 1.
	assert.InDelta(t, math.Pi, table[3].PhaseRad, 1e-12)
	assert.InDelta(t, 2.6, table[3].Voltage, 1e-12)
	assert.Equal(t, table[1].DACValue, table[3].DACValue)
}

func TestMapClampsToVMax(t *testing.T) {
	// A strong shifter (large V_pi) pushes late phases past the ceiling.
	p := Params{VPi: 20.0, VBias: 0.0, VMax: 8.0, DACBits: 16}
	table, err := Map(phase.Vector{0.1, 6.0}, p)
	require.NoError(t, err)

	assert.Equal(t, 8.0, table[1].Voltage)
	assert.Equal(t, uint64(65535), table[1].DACValue)
	for _, rec := range table {
		assert.GreaterOrEqual(t, rec.Voltage, 0.0)
		assert.LessOrEqual(t, rec.Voltage, p.VMax)
		assert.LessOrEqual(t, rec.DACValue, p.MaxCode())
	}
}

func TestMapBiasShiftsAllChannels(t *testing.T) {
	p := Params{VPi: 5.2, VBias: 1.0, VMax: 8.0, DACBits: 16}
	table, err := Map(phase.Vector{0, math.Pi}, p)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, table[0].Voltage, 1e-12)
	assert.InDelta(t, 3.6, table[1].Voltage, 1e-12)
}

func TestMapRejectsBadInput(t *testing.T) {
	good := DefaultParams()

	_, err := Map(phase.Vector{}, good)
	assert.Error(t, err)

	_, err = Map(phase.Vector{math.NaN()}, good)
	assert.Error(t, err)

	bad := good
	bad.VPi = 0
	_, err = Map(phase.Vector{1}, bad)
	assert.Error(t, err)

	bad = good
	bad.DACBits = 0
	_, err = Map(phase.Vector{1}, bad)
	assert.Error(t, err)
}

func TestCSVHeaderContract(t *testing.T) {
	table, err := Map(phase.Vector{0, 1, 2}, DefaultParams())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "Channel_ID,Phase_Rad,Voltage_V,DAC_Value_16bit", lines[0])
	assert.Len(t, lines, 5) // header + 3 rows + trailing newline
}

func TestCSVRoundTrip(t *testing.T) {
	table, err := Map(phase.Vector{0.3, 2.8, 5.9}, DefaultParams())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))
	back, err := ReadCSV(&buf)
	require.NoError(t, err)

	require.Len(t, back, len(table))
	for i := range table {
		assert.Equal(t, table[i].Channel, back[i].Channel)
		assert.Equal(t, table[i].DACValue, back[i].DACValue)
		assert.InDelta(t, table[i].Voltage, back[i].Voltage, 1e-6)
		assert.InDelta(t, table[i].PhaseRad, back[i].PhaseRad, 1e-6)
	}
}

func TestReadCSVRejectsWrongHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Chan,Phase,Volt,DAC\n0,0,0,0\n"))
	assert.ErrorIs(t, err, core.ErrMalformedResult)

	_, err = ReadCSV(strings.NewReader("Channel_ID,Phase_Rad,Voltage_V\n"))
	assert.ErrorIs(t, err, core.ErrMalformedResult)
}

func TestSummarize(t *testing.T) {
	table := voltage.Table{
		{Channel: 0, PhaseRad: 0.5, Voltage: 1.0, DACValue: 100},
		{Channel: 1, PhaseRad: 1.5, Voltage: 3.0, DACValue: 300},
		{Channel: 2, PhaseRad: 2.5, Voltage: 5.0, DACValue: 500},
	}
	s, err := Summarize(table)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Channels)
	assert.Equal(t, 0.5, s.MinPhase)
	assert.Equal(t, 2.5, s.MaxPhase)
	assert.InDelta(t, 1.5, s.MeanPhase, 1e-12)
	assert.Equal(t, 1.0, s.MinVoltage)
	assert.Equal(t, 5.0, s.MaxVoltage)
	assert.InDelta(t, 3.0, s.MeanVoltage, 1e-12)
	assert.Equal(t, uint64(100), s.MinDAC)
	assert.Equal(t, uint64(500), s.MaxDAC)
}
