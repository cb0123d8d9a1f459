package gate

import "github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoLighting    VetoType = "lighting_off"
	VetoComfortBand VetoType = "comfort_band"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal records one flag the gate forced off.
type VetoSignal struct {
	Type   VetoType `json:"type"`
	Label  string   `json:"label"`
	Reason string   `json:"reason"`
}

// #endregion veto-signal

// #region comfort-band
// Comfort band inside which an unoccupied home needs neither HVAC nor ventilation.
const (
	ComfortMinTemp    = 18.0
	ComfortMaxTemp    = 26.0
	ComfortAirQuality = 90.0
)

// #endregion comfort-band

// #region result
// Result is the output of the override gate.
type Result struct {
	Decisions   home.Decisions
	Vetoed      bool
	VetoSignals []VetoSignal // only flags that were actually switched off
}

// #endregion result
