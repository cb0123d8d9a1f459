// Package rules holds the deterministic baseline policy.
package rules

import (
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/gate"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// #region thresholds
const (
	HotThreshold    = 26.0 // >= turns on ventilation and HVAC
	ColdThreshold   = 18.0 // < turns on HVAC
	AirQualityFloor = 90.0 // < turns on ventilation
)

// #endregion thresholds

// #region evaluate
// Evaluate maps a reading to the baseline decision set. Pure and deterministic.
// Rules only switch flags on; the energy-saving override runs last and is the
// only step allowed to switch them off.
func Evaluate(r home.Reading) home.Decisions {
	d := home.Decisions{
		Lighting:     r.Presence,
		Security:     r.DoorOpen,
		EnergySaving: !r.Presence,
	}

	if r.Temperature >= HotThreshold {
		d.Ventilation = true
		d.HVAC = true
	} else if r.Temperature < ColdThreshold {
		d.HVAC = true
	}

	if r.AirQuality < AirQualityFloor {
		d.Ventilation = true
	}

	return gate.Apply(r, d).Decisions
}

// #endregion evaluate
