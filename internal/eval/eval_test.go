package eval

import (
	"testing"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/classifier"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

func makeHistory(n int, out func(i int) home.Decisions) []home.HistoryEntry {
	h := make([]home.HistoryEntry, n)
	for i := range h {
		h[i] = home.HistoryEntry{
			Input:  home.Reading{Temperature: float64(15 + i), Humidity: 50, AirQuality: 95, Presence: true},
			Output: out(i),
		}
	}
	return h
}

func TestEvalPassesOnFitHistory(t *testing.T) {
	h := makeHistory(20, func(i int) home.Decisions {
		return home.Decisions{HVAC: i >= 11, Lighting: true}
	})
	c := classifier.New(classifier.DefaultConfig())
	c.Train(h)

	result := NewEvalHarness(DefaultEvalConfig()).Run(c.Model(), h)

	if !result.Passed {
		t.Fatalf("expected pass, got fail: %s", result.Reason)
	}
	if result.Samples != 20 {
		t.Errorf("expected 20 samples, got %d", result.Samples)
	}
	if len(result.Metrics) != home.NumLabels {
		t.Fatalf("expected %d metrics, got %d", home.NumLabels, len(result.Metrics))
	}
}

func TestEvalFailsOnUnfitHistory(t *testing.T) {
	train := makeHistory(20, func(i int) home.Decisions { return home.Decisions{} })
	c := classifier.New(classifier.DefaultConfig())
	c.Train(train)

	other := makeHistory(20, func(i int) home.Decisions { return home.Decisions{Security: true} })
	result := NewEvalHarness(DefaultEvalConfig()).Run(c.Model(), other)

	if result.Passed {
		t.Fatal("expected fail against disagreeing history")
	}

	foundFail := false
	for _, m := range result.Metrics {
		if m.Name == "agreement_security" && !m.Pass {
			foundFail = true
		}
	}
	if !foundFail {
		t.Fatal("expected agreement_security metric to fail")
	}
}

func TestEvalNoModel(t *testing.T) {
	result := NewEvalHarness(DefaultEvalConfig()).Run(nil, nil)
	if result.Passed {
		t.Fatal("expected fail without a model")
	}
}

func TestMetricName(t *testing.T) {
	if got := MetricName("Energy Saving"); got != "agreement_energy_saving" {
		t.Errorf("got %q", got)
	}
	if got := MetricName("HVAC"); got != "agreement_hvac" {
		t.Errorf("got %q", got)
	}
}
