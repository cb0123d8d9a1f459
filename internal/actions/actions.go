package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrUnknownAction is returned for action types the executor has no handler for.
var ErrUnknownAction = errors.New("unknown action type")

var executedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "smarthome",
		Subsystem: "actions",
		Name:      "executed_total",
		Help:      "Actions handed to the executor, by type and outcome",
	},
	[]string{"type", "outcome"},
)

// #region plan
// Plan maps the active flags of d to actions, ordered by priority. Actions
// with equal priority keep the order ventilation, hvac, lighting, security,
// energy saving.
func Plan(r home.Reading, d home.Decisions) []Action {
	return PlanAt(r, d, time.Now())
}

// PlanAt is Plan with an explicit timestamp.
func PlanAt(r home.Reading, d home.Decisions, now time.Time) []Action {
	var out []Action
	add := func(t ActionType, priority int, params map[string]any) {
		out = append(out, Action{
			ID:         uuid.NewString(),
			Type:       t,
			Parameters: params,
			Priority:   priority,
			CreatedAt:  now,
		})
	}

	if d.Ventilation {
		add(ActivateVentilation, PriorityClimate, map[string]any{"speed": "auto", "duration_minutes": VentilationMin})
	}
	if d.HVAC {
		switch {
		case r.Temperature > CoolAbove:
			add(ActivateCooling, PriorityClimate, map[string]any{"target_temp": CoolingTarget})
		case r.Temperature < HeatBelow:
			add(ActivateHeating, PriorityClimate, map[string]any{"target_temp": HeatingTarget})
		}
	}
	if d.Lighting {
		add(AdjustEnvironment, PriorityComfort, map[string]any{"lights": "on", "optimize_hvac": true})
	}
	if d.Security {
		add(DoorNotification, PrioritySecurity, map[string]any{"status": "check", "duration_minutes": DoorCheckMin})
	}
	if d.EnergySaving {
		add(EnergySaving, PriorityClimate, map[string]any{"lights": "off", "reduce_hvac": true})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// #endregion plan

// #region executor
// Executor carries out actions. Implementations must not feed anything back
// into the decision engine.
type Executor interface {
	Execute(ctx context.Context, a Action) error
}

// LogExecutor records each action on the logger instead of driving hardware.
type LogExecutor struct {
	logger *slog.Logger
}

// NewLogExecutor returns an executor that logs to logger.
func NewLogExecutor(logger *slog.Logger) *LogExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogExecutor{logger: logger}
}

// Execute logs a. Unknown types fail with ErrUnknownAction.
func (e *LogExecutor) Execute(ctx context.Context, a Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg string
	switch a.Type {
	case ActivateCooling:
		msg = fmt.Sprintf("activating cooling to %v°C", a.Parameters["target_temp"])
	case ActivateHeating:
		msg = fmt.Sprintf("activating heating to %v°C", a.Parameters["target_temp"])
	case ActivateVentilation:
		msg = fmt.Sprintf("activating ventilation: %v speed for %v minutes", a.Parameters["speed"], a.Parameters["duration_minutes"])
	case DoorNotification:
		msg = fmt.Sprintf("door %v notification sent", a.Parameters["status"])
	case AdjustEnvironment:
		msg = fmt.Sprintf("adjusting environment: lights=%v optimize_hvac=%v", a.Parameters["lights"], a.Parameters["optimize_hvac"])
	case EnergySaving:
		msg = fmt.Sprintf("energy saving mode: lights=%v reduce_hvac=%v", a.Parameters["lights"], a.Parameters["reduce_hvac"])
	default:
		executedTotal.WithLabelValues(string(a.Type), "unknown").Inc()
		return fmt.Errorf("execute %s: %w", a.Type, ErrUnknownAction)
	}

	executedTotal.WithLabelValues(string(a.Type), "ok").Inc()
	e.logger.Info(msg, "action_id", a.ID, "type", string(a.Type), "priority", a.Priority)
	return nil
}

// ExecuteAll runs actions in order and joins every failure.
func ExecuteAll(ctx context.Context, ex Executor, actions []Action) error {
	var errs []error
	for _, a := range actions {
		if err := ex.Execute(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// #endregion executor
