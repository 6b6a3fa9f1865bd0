// Package voltmap converts phase vectors into hardware control tables:
// drive voltages for each thermo-optic shifter and the quantized DAC codes
// the controller writes to the chip.
package voltmap

import (
	"math"

	"github.com/montanaflynn/stats"

	"phaselock/domain/core"
	"phaselock/domain/phase"
	"phaselock/domain/voltage"
)

// Params describes the electrical characteristics of the phase shifters.
type Params struct {
	// VPi is the voltage producing a pi phase shift.
	VPi float64
	// VBias is added to every channel after conversion.
	VBias float64
	// VMax is the hard output ceiling of the drive electronics.
	VMax float64
	// DACBits is the converter resolution.
	DACBits int
}

// DefaultParams matches the reference driver board.
func DefaultParams() Params {
	return Params{VPi: 5.2, VBias: 0.0, VMax: 8.0, DACBits: 16}
}

// MaxCode returns the largest representable DAC value.
func (p Params) MaxCode() uint64 {
	return (uint64(1) << uint(p.DACBits)) - 1
}

// Validate rejects physically meaningless parameter sets.
func (p Params) Validate() error {
	if p.VPi <= 0 || math.IsNaN(p.VPi) || math.IsInf(p.VPi, 0) {
		return core.NewValidationError("v_pi", "must be positive and finite")
	}
	if p.VMax <= 0 || math.IsNaN(p.VMax) || math.IsInf(p.VMax, 0) {
		return core.NewValidationError("v_max", "must be positive and finite")
	}
	if math.IsNaN(p.VBias) || math.IsInf(p.VBias, 0) {
		return core.NewValidationError("v_bias", "must be finite")
	}
	if p.DACBits < 1 || p.DACBits > 32 {
		return core.NewValidationError("dac_bits", "must be between 1 and 32")
	}
	return nil
}

// Map converts a phase vector into a control table, one channel per mode in
// input order. Each phase is wrapped into [0, 2pi) first, then mapped
// linearly; the resulting voltage is clamped into [0, VMax] before
// quantization. The clamp silently limits out-of-range values, the audit
// stage decides whether a saturated channel is acceptable.
func Map(phases phase.Vector, p Params) (voltage.Table, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(phases) == 0 {
		return nil, core.NewValidationError("phases", "must not be empty")
	}

	maxCode := p.MaxCode()
	table := make(voltage.Table, len(phases))
	for i, raw := range phases {
		if math.IsNaN(raw) || math.IsInf(raw, 0) {
			return nil, core.NewValidationError("phases", "contains a non-finite value")
		}
		ph := phase.NormalizeAngle(raw)
		v := ph/phase.TwoPi*p.VPi + p.VBias
		v = clamp(v, 0, p.VMax)
		code := uint64(math.Round(v / p.VMax * float64(maxCode)))
		if code > maxCode {
			code = maxCode
		}
		table[i] = voltage.ChannelRecord{
			Channel:  i,
			PhaseRad: ph,
			Voltage:  v,
			DACValue: code,
		}
	}
	return table, nil
}

// Summary holds descriptive statistics over a control table.
type Summary struct {
	Channels    int
	MinPhase    float64
	MaxPhase    float64
	MeanPhase   float64
	MinVoltage  float64
	MaxVoltage  float64
	MeanVoltage float64
	MinDAC      uint64
	MaxDAC      uint64
}

// Summarize computes table statistics.
func Summarize(table voltage.Table) (Summary, error) {
	if len(table) == 0 {
		return Summary{}, core.NewValidationError("table", "must not be empty")
	}
	phases := make(stats.Float64Data, len(table))
	volts := make(stats.Float64Data, len(table))
	s := Summary{Channels: len(table), MinDAC: table[0].DACValue}
	for i, rec := range table {
		phases[i] = rec.PhaseRad
		volts[i] = rec.Voltage
		if rec.DACValue < s.MinDAC {
			s.MinDAC = rec.DACValue
		}
		if rec.DACValue > s.MaxDAC {
			s.MaxDAC = rec.DACValue
		}
	}

	var err error
	if s.MinPhase, err = stats.Min(phases); err != nil {
		return Summary{}, err
	}
	if s.MaxPhase, err = stats.Max(phases); err != nil {
		return Summary{}, err
	}
	if s.MeanPhase, err = stats.Mean(phases); err != nil {
		return Summary{}, err
	}
	if s.MinVoltage, err = stats.Min(volts); err != nil {
		return Summary{}, err
	}
	if s.MaxVoltage, err = stats.Max(volts); err != nil {
		return Summary{}, err
	}
	if s.MeanVoltage, err = stats.Mean(volts); err != nil {
		return Summary{}, err
	}
	return s, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
