package rules

import (
	"testing"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		in   home.Reading
		want home.Decisions
	}{
		{
			"hot-poor-air-occupied",
			home.Reading{Temperature: 27, Humidity: 60, AirQuality: 80, Presence: true},
			home.Decisions{Ventilation: true, HVAC: true, Lighting: true},
		},
		{
			"cold-door-open-occupied",
			home.Reading{Temperature: 17, Humidity: 45, DoorOpen: true, AirQuality: 95, Presence: true},
			home.Decisions{HVAC: true, Security: true, Lighting: true},
		},
		{
			"comfortable-empty",
			home.Reading{Temperature: 22, Humidity: 50, AirQuality: 95},
			home.Decisions{EnergySaving: true},
		},
		{
			"hot-empty-keeps-cooling",
			home.Reading{Temperature: 30, AirQuality: 95},
			home.Decisions{Ventilation: true, HVAC: true, EnergySaving: true},
		},
		{
			"poor-air-empty-keeps-ventilation",
			home.Reading{Temperature: 22, AirQuality: 70},
			home.Decisions{Ventilation: true, EnergySaving: true},
		},
		{
			"boundary-hot-exact",
			home.Reading{Temperature: 26.0, AirQuality: 95, Presence: true},
			home.Decisions{Ventilation: true, HVAC: true, Lighting: true},
		},
		{
			"boundary-cold-exact",
			home.Reading{Temperature: 18.0, AirQuality: 95, Presence: true},
			home.Decisions{Lighting: true},
		},
		{
			"boundary-air-exact",
			home.Reading{Temperature: 22, AirQuality: 90.0, Presence: true},
			home.Decisions{Lighting: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.in)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEvaluateRuleFloor(t *testing.T) {
	// At exactly 26.0 an empty home in good air is inside the comfort band,
	// and the energy override runs last.
	if got := Evaluate(home.Reading{Temperature: 26, AirQuality: 99}); got.HVAC || got.Ventilation {
		t.Errorf("temp=26 empty good air: override must win, got %+v", got)
	}
	if got := Evaluate(home.Reading{Temperature: 26, AirQuality: 99, Presence: true}); !got.HVAC || !got.Ventilation {
		t.Errorf("temp=26 occupied: ventilation and hvac must be on, got %+v", got)
	}

	for _, temp := range []float64{26.01, 26.5, 35, 45} {
		for _, presence := range []bool{true, false} {
			got := Evaluate(home.Reading{Temperature: temp, AirQuality: 99, Presence: presence})
			if !got.Ventilation || !got.HVAC {
				t.Errorf("temp=%.1f presence=%v: ventilation and hvac must be on, got %+v", temp, presence, got)
			}
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	r := home.Reading{Temperature: 19.3, Humidity: 55, DoorOpen: true, AirQuality: 91, Presence: false}
	first := Evaluate(r)
	for i := 0; i < 10; i++ {
		if got := Evaluate(r); got != first {
			t.Fatalf("iteration %d: got %+v, want %+v", i, got, first)
		}
	}
}
