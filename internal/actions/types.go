// Package actions turns decision sets into prioritized device actions.
package actions

import "time"

// #region action-type
// ActionType names a device command.
type ActionType string

const (
	DoorNotification    ActionType = "DOOR_NOTIFICATION"
	ActivateVentilation ActionType = "ACTIVATE_VENTILATION"
	ActivateCooling     ActionType = "ACTIVATE_COOLING"
	ActivateHeating     ActionType = "ACTIVATE_HEATING"
	EnergySaving        ActionType = "ENERGY_SAVING"
	AdjustEnvironment   ActionType = "ADJUST_ENVIRONMENT"
)

// #endregion action-type

// #region priorities
// Lower runs first.
const (
	PrioritySecurity = 1
	PriorityClimate  = 2
	PriorityComfort  = 3
)

// HVAC mode selection. Between the two bounds HVAC stays idle.
const (
	CoolAbove      = 24.0
	CoolingTarget  = 23.0
	HeatBelow      = 20.0
	HeatingTarget  = 21.0
	VentilationMin = 15 // minutes per ventilation run
	DoorCheckMin   = 5  // minutes a door notification stays active
)

// #endregion priorities

// #region action
// Action is one command for the executor.
type Action struct {
	ID         string         `json:"id"`
	Type       ActionType     `json:"type"`
	Parameters map[string]any `json:"parameters"`
	Priority   int            `json:"priority"`
	CreatedAt  time.Time      `json:"created_at"`
}

// #endregion action
