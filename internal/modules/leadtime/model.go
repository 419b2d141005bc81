// README: Lead-time classification result (immediate vs reservation).
package leadtime

type Mode string

const (
	ModeImmediate   Mode = "immediate"
	ModeReservation Mode = "reservation"
)

type Result struct {
	Mode             Mode    `json:"mode"`
	ThresholdMinutes float64 `json:"thresholdMinutes"`
	// DeltaMinutes is nil when the pickup instant could not be determined.
	DeltaMinutes *float64 `json:"deltaMinutes"`
}
