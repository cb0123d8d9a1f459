package gate

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// #region apply
// Apply enforces the energy-saving override on a decision set.
//
// When EnergySaving is on, lighting is always forced off. HVAC and
// ventilation are forced off only while the reading sits inside the
// comfort band; extreme conditions are never suppressed.
func Apply(r home.Reading, d home.Decisions) Result {
	if !d.EnergySaving {
		return Result{Decisions: d}
	}

	var vetoes []VetoSignal

	if d.Lighting {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoLighting,
			Label:  "Lighting",
			Reason: "energy saving active",
		})
	}
	d.Lighting = false

	if InComfortBand(r) {
		reason := fmt.Sprintf("energy saving in comfort band (temp=%.1f air=%.1f)", r.Temperature, r.AirQuality)
		if d.HVAC {
			vetoes = append(vetoes, VetoSignal{Type: VetoComfortBand, Label: "HVAC", Reason: reason})
		}
		if d.Ventilation {
			vetoes = append(vetoes, VetoSignal{Type: VetoComfortBand, Label: "Ventilation", Reason: reason})
		}
		d.HVAC = false
		d.Ventilation = false
	}

	return Result{
		Decisions:   d,
		Vetoed:      len(vetoes) > 0,
		VetoSignals: vetoes,
	}
}

// #endregion apply

// #region comfort-check
// InComfortBand reports whether 18 <= temperature <= 26 and air quality >= 90.
func InComfortBand(r home.Reading) bool {
	return r.Temperature >= ComfortMinTemp &&
		r.Temperature <= ComfortMaxTemp &&
		r.AirQuality >= ComfortAirQuality
}

// #endregion comfort-check
