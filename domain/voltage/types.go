package voltage

// CSV column names of the hardware control table. Column order and types are
// a compatibility contract with the chip driver; never reorder.
var CSVHeader = []string{"Channel_ID", "Phase_Rad", "Voltage_V", "DAC_Value_16bit"}

// ChannelRecord is one row of the hardware control table: the target phase
// for a channel, its drive voltage, and the quantized register value.
type ChannelRecord struct {
	Channel  int     `json:"channel_id"`
	PhaseRad float64 `json:"phase_rad"`
	Voltage  float64 `json:"voltage_v"`
	DACValue uint64  `json:"dac_value"`
}

// Table is the full ordered control table, one record per mode, row order
// ascending by channel id.
type Table []ChannelRecord

// Severity levels for audit findings.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Finding is one audit observation tied to a specific channel and value.
type Finding struct {
	Severity string  `json:"severity"`
	Channel  int     `json:"channel"`
	Reason   string  `json:"reason"`
	Value    float64 `json:"value"`
}

// CheckResult is the outcome of one named audit check across the table.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// SafetyReport summarizes a full audit pass over a control table. It is a
// derived, read-only view; producing it never mutates the audited table.
// A failed report must block any downstream hardware write.
type SafetyReport struct {
	Passed       bool          `json:"passed"`
	Checks       []CheckResult `json:"checks"`
	Violations   []Finding     `json:"violations"`
	Warnings     []Finding     `json:"warnings"`
	Channels     int           `json:"channels"`
	MinVoltage   float64       `json:"min_voltage"`
	MaxVoltage   float64       `json:"max_voltage"`
	MeanVoltage  float64       `json:"mean_voltage"`
	MinDAC       uint64        `json:"min_dac"`
	MaxDAC       uint64        `json:"max_dac"`
	SafetyMargin float64       `json:"safety_margin"`
}
