// Package audit verifies a generated control table against the electrical
// limits of the hardware before anything is written to the chip. A failed
// report is advisory data for the caller, not an error: the audit itself
// succeeds whenever it can inspect the table.
package audit

import (
	"fmt"
	"math"

	"phaselock/domain/core"
	"phaselock/domain/phase"
	"phaselock/domain/voltage"
)

// Params bounds the audit.
type Params struct {
	// VMax is the electrical ceiling every channel must respect.
	VMax float64
	// DACBits fixes the valid code range.
	DACBits int
	// ExpectedChannels, when positive, requires an exact channel count.
	ExpectedChannels int
	// Strict promotes warnings to report failures.
	Strict bool
}

// DefaultParams matches the reference driver board.
func DefaultParams() Params {
	return Params{VMax: 8.0, DACBits: 16}
}

// Audit inspects a control table and produces a safety report. The table is
// never modified. An error is returned only when the audit cannot run at
// all, never for findings.
func Audit(table voltage.Table, p Params) (*voltage.SafetyReport, error) {
	if len(table) == 0 {
		return nil, core.NewValidationError("table", "must not be empty")
	}
	if p.VMax <= 0 || math.IsNaN(p.VMax) {
		return nil, core.NewValidationError("v_max", "must be positive")
	}
	if p.DACBits < 1 || p.DACBits > 32 {
		return nil, core.NewValidationError("dac_bits", "must be between 1 and 32")
	}
	maxCode := (uint64(1) << uint(p.DACBits)) - 1

	report := &voltage.SafetyReport{
		Channels:   len(table),
		MinVoltage: table[0].Voltage,
		MaxVoltage: table[0].Voltage,
		MinDAC:     table[0].DACValue,
		MaxDAC:     table[0].DACValue,
	}

	violation := func(channel int, reason string, value float64) {
		report.Violations = append(report.Violations, voltage.Finding{
			Severity: voltage.SeverityCritical,
			Channel:  channel,
			Reason:   reason,
			Value:    value,
		})
	}
	warning := func(channel int, reason string, value float64) {
		report.Warnings = append(report.Warnings, voltage.Finding{
			Severity: voltage.SeverityWarning,
			Channel:  channel,
			Reason:   reason,
			Value:    value,
		})
	}

	seen := make(map[int]bool, len(table))
	meanSum := 0.0
	voltageOK, dacOK, channelsOK := true, true, true
	for i, rec := range table {
		meanSum += rec.Voltage
		report.MinVoltage = math.Min(report.MinVoltage, rec.Voltage)
		report.MaxVoltage = math.Max(report.MaxVoltage, rec.Voltage)
		if rec.DACValue < report.MinDAC {
			report.MinDAC = rec.DACValue
		}
		if rec.DACValue > report.MaxDAC {
			report.MaxDAC = rec.DACValue
		}

		if math.IsNaN(rec.Voltage) || math.IsInf(rec.Voltage, 0) {
			voltageOK = false
			violation(rec.Channel, "voltage is not finite", rec.Voltage)
		} else if rec.Voltage < 0 || rec.Voltage > p.VMax {
			voltageOK = false
			violation(rec.Channel, fmt.Sprintf("voltage outside [0, %.3f]", p.VMax), rec.Voltage)
		}
		if rec.DACValue > maxCode {
			dacOK = false
			violation(rec.Channel, fmt.Sprintf("dac code above %d", maxCode), float64(rec.DACValue))
		}
		if seen[rec.Channel] {
			channelsOK = false
			violation(rec.Channel, "duplicate channel id", float64(rec.Channel))
		}
		seen[rec.Channel] = true

		if rec.PhaseRad < 0 || rec.PhaseRad >= phase.TwoPi {
			warning(rec.Channel, "phase outside [0, 2pi)", rec.PhaseRad)
		}
		if rec.Channel != i {
			warning(rec.Channel, fmt.Sprintf("channel id out of sequence at row %d", i), float64(rec.Channel))
		}
	}

	// Every id in 0..n-1 must be present. A gap means a phase shifter
	// would be driven with another channel's voltage.
	for id := 0; id < len(table); id++ {
		if !seen[id] {
			channelsOK = false
			violation(id, "channel id missing from table", float64(id))
		}
	}

	if p.ExpectedChannels > 0 && len(table) != p.ExpectedChannels {
		channelsOK = false
		violation(-1, fmt.Sprintf("table has %d channels, expected %d", len(table), p.ExpectedChannels), float64(len(table)))
	}

	report.MeanVoltage = meanSum / float64(len(table))
	report.SafetyMargin = p.VMax - report.MaxVoltage
	report.Checks = []voltage.CheckResult{
		checkResult("voltage_range", voltageOK, fmt.Sprintf("all voltages within [0, %.3f]", p.VMax)),
		checkResult("dac_range", dacOK, fmt.Sprintf("all codes within [0, %d]", maxCode)),
		checkResult("channel_integrity", channelsOK, "unique ids, no gaps, expected count"),
		checkResult("phase_domain", len(report.Warnings) == 0, "phases wrapped, ids sequential"),
	}

	report.Passed = len(report.Violations) == 0 && (!p.Strict || len(report.Warnings) == 0)
	return report, nil
}

func checkResult(name string, passed bool, detail string) voltage.CheckResult {
	if passed {
		detail = ""
	}
	return voltage.CheckResult{Name: name, Passed: passed, Detail: detail}
}
