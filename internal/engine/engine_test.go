package engine

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/classifier"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/gate"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/rules"
)

// #region helpers
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var allTrue = home.Decisions{Ventilation: true, HVAC: true, Lighting: true, Security: true, EnergySaving: true}

// allTrueHistory returns n varied readings that were all recorded with every flag on.
func allTrueHistory(n int) []home.HistoryEntry {
	out := make([]home.HistoryEntry, n)
	for i := range out {
		out[i] = home.HistoryEntry{
			Input:  home.Reading{Temperature: 15 + float64(i), Humidity: 40 + float64(i), AirQuality: 60 + float64(i), Presence: i%2 == 0, DoorOpen: i%3 == 0},
			Output: allTrue,
		}
	}
	return out
}

// stubLearner is a scripted Learner.
type stubLearner struct {
	out       home.Decisions
	err       error
	predicts  int
	trainedOn int
}

func (s *stubLearner) Train(h []home.HistoryEntry) { s.trainedOn = len(h) }
func (s *stubLearner) Predict(home.Reading) (home.Decisions, error) {
	s.predicts++
	return s.out, s.err
}
func (s *stubLearner) Model() *classifier.Tree { return nil }

type failingStore struct{ history.MemoryStore }

func (f *failingStore) Append(home.HistoryEntry) error { return errors.New("disk full") }

type captureRecorder struct{ traces []Trace }

func (c *captureRecorder) Record(t Trace) error {
	c.traces = append(c.traces, t)
	return nil
}

// #endregion helpers

// #region scenario-tests
func TestDecideScenarios(t *testing.T) {
	tests := []struct {
		name string
		in   home.Reading
		want home.Decisions
	}{
		{
			"hot-poor-air-occupied",
			home.Reading{Temperature: 27, Humidity: 60, DoorOpen: false, AirQuality: 80, Presence: true},
			home.Decisions{Ventilation: true, HVAC: true, Lighting: true, Security: false, EnergySaving: false},
		},
		{
			"cold-door-open-occupied",
			home.Reading{Temperature: 17, Humidity: 45, DoorOpen: true, AirQuality: 95, Presence: true},
			home.Decisions{HVAC: true, Security: true, EnergySaving: false, Ventilation: false, Lighting: true},
		},
		{
			"comfortable-empty",
			home.Reading{Temperature: 22, Humidity: 50, DoorOpen: false, AirQuality: 95, Presence: false},
			home.Decisions{EnergySaving: true, Lighting: false, HVAC: false, Ventilation: false, Security: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(history.NewMemoryStore(), DefaultConfig(), quietLogger())
			got, trace := e.DecideTrace(tt.in)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if trace.Status != StatusInactive {
				t.Errorf("status = %s, want inactive on empty history", trace.Status)
			}
		})
	}
}

// #endregion scenario-tests

// #region property-tests
func TestDecideTotalityAndOverrideIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := New(history.NewMemoryStore(allTrueHistory(12)...), DefaultConfig(), quietLogger())

	for i := 0; i < 200; i++ {
		r := home.Reading{
			Temperature: 5 + rng.Float64()*35,
			Humidity:    rng.Float64() * 100,
			DoorOpen:    rng.Intn(2) == 0,
			AirQuality:  rng.Float64() * 100,
			Presence:    rng.Intn(2) == 0,
		}
		got := e.Decide(r)
		if again := gate.Apply(r, got).Decisions; again != got {
			t.Fatalf("reading %+v: output %+v not stable under override (%+v)", r, got, again)
		}
	}
}

func TestDecideRuleFloor(t *testing.T) {
	// A learner that would switch everything off cannot lower the rules.
	learner := &stubLearner{out: home.Decisions{}}
	e := New(history.NewMemoryStore(allTrueHistory(10)...), DefaultConfig(), quietLogger(), WithLearner(learner))

	for _, temp := range []float64{26.5, 30, 40} {
		for _, presence := range []bool{true, false} {
			got := e.Decide(home.Reading{Temperature: temp, AirQuality: 95, Presence: presence})
			if !got.Ventilation || !got.HVAC {
				t.Errorf("temp=%.1f presence=%v: got %+v", temp, presence, got)
			}
		}
	}
}

func TestDecideEnergyOverride(t *testing.T) {
	e := New(history.NewMemoryStore(allTrueHistory(15)...), DefaultConfig(), quietLogger())

	for _, temp := range []float64{18, 20, 22.5, 26} {
		for _, air := range []float64{90, 95, 100} {
			r := home.Reading{Temperature: temp, Humidity: 50, AirQuality: air, Presence: false}
			got, trace := e.DecideTrace(r)
			if got.Lighting || got.HVAC || got.Ventilation {
				t.Errorf("temp=%.1f air=%.0f: got %+v (status %s)", temp, air, got, trace.Status)
			}
		}
	}
}

func TestDecideActivationThreshold(t *testing.T) {
	r := home.Reading{Temperature: 22, Humidity: 50, AirQuality: 95, Presence: true}

	below := New(history.NewMemoryStore(allTrueHistory(9)...), DefaultConfig(), quietLogger())
	got, trace := below.DecideTrace(r)
	if got != rules.Evaluate(r) {
		t.Errorf("below threshold: got %+v, want rules %+v", got, rules.Evaluate(r))
	}
	if trace.Status != StatusInactive || trace.Learned != nil {
		t.Errorf("below threshold: status=%s learned=%v", trace.Status, trace.Learned)
	}
	if below.Model() != nil {
		t.Error("below threshold: classifier should not have been trained")
	}

	at := New(history.NewMemoryStore(allTrueHistory(10)...), DefaultConfig(), quietLogger())
	got, trace = at.DecideTrace(r)
	if trace.Status != StatusActive {
		t.Fatalf("at threshold: status = %s, want active", trace.Status)
	}
	if *trace.Learned != allTrue {
		t.Errorf("at threshold: learned = %+v, want all true", *trace.Learned)
	}
	// Learned energy saving switches the override on in the comfort band.
	want := home.Decisions{Security: true, EnergySaving: true}
	if got != want {
		t.Errorf("at threshold: got %+v, want %+v", got, want)
	}
}

func TestDecideMonotonicFusion(t *testing.T) {
	e := New(history.NewMemoryStore(allTrueHistory(20)...), DefaultConfig(), quietLogger())

	readings := []home.Reading{
		{Temperature: 22, Humidity: 50, AirQuality: 95, Presence: true},
		{Temperature: 17, Humidity: 45, DoorOpen: true, AirQuality: 95, Presence: true},
		{Temperature: 27, Humidity: 60, AirQuality: 80, Presence: true},
		{Temperature: 22, Humidity: 50, AirQuality: 95, Presence: false},
	}
	for _, r := range readings {
		_, trace := e.DecideTrace(r)
		if trace.Status != StatusActive {
			t.Fatalf("status = %s, want active", trace.Status)
		}
		rule, fused := trace.Rule.Labels(), trace.Fused.Labels()
		for i := range rule {
			if rule[i] && !fused[i] {
				t.Errorf("reading %+v: fusion turned %s off", r, home.LabelNames[i])
			}
		}

		// Anything the final output dropped relative to fusion must be an override veto.
		vetoed := map[string]bool{}
		for _, v := range trace.Vetoes {
			vetoed[v.Label] = true
		}
		final := trace.Final.Labels()
		for i := range fused {
			if fused[i] && !final[i] && !vetoed[home.LabelNames[i]] {
				t.Errorf("reading %+v: %s dropped without a veto", r, home.LabelNames[i])
			}
		}
	}
}

func TestDecideHistoryGrowth(t *testing.T) {
	store := history.NewMemoryStore()
	e := New(store, DefaultConfig(), quietLogger())

	const n = 25
	var outputs []home.Decisions
	for i := 0; i < n; i++ {
		r := home.Reading{Temperature: 10 + float64(i), Humidity: 50, AirQuality: 70 + float64(i), Presence: i%2 == 0}
		outputs = append(outputs, e.Decide(r))
	}

	got := store.Load()
	if len(got) != n {
		t.Fatalf("history has %d entries, want %d", len(got), n)
	}
	for i, entry := range got {
		if entry.Input.Temperature != 10+float64(i) {
			t.Errorf("entry %d out of order: temperature %v", i, entry.Input.Temperature)
		}
		if entry.Output != outputs[i] {
			t.Errorf("entry %d output %+v, returned %+v", i, entry.Output, outputs[i])
		}
	}
}

func TestDecideRecoversFromCorruptHistoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor_history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := history.NewFileStore(path, quietLogger())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	e := New(store, DefaultConfig(), quietLogger())

	var trace Trace
	for i := 0; i < 15; i++ {
		r := home.Reading{Temperature: 15 + float64(i), Humidity: 50, AirQuality: 95, Presence: i%3 != 0}
		_, trace = e.DecideTrace(r)
	}

	if n := len(store.Load()); n != 15 {
		t.Fatalf("history has %d entries after 15 decisions, want 15", n)
	}
	if trace.HistoryLen != 14 {
		t.Errorf("last trace history_len = %d, want 14", trace.HistoryLen)
	}
	if trace.Status != StatusActive {
		t.Errorf("last status = %s (%s), want active", trace.Status, trace.FallbackReason)
	}
}

// #endregion property-tests

// #region fallback-tests
func TestDecideFallbackOnInferenceError(t *testing.T) {
	learner := &stubLearner{out: allTrue, err: errors.New("corrupt model")}
	e := New(history.NewMemoryStore(allTrueHistory(10)...), DefaultConfig(), quietLogger(), WithLearner(learner))

	r := home.Reading{Temperature: 22, Humidity: 50, AirQuality: 95, Presence: true}
	got, trace := e.DecideTrace(r)
	if got != rules.Evaluate(r) {
		t.Errorf("got %+v, want rules %+v", got, rules.Evaluate(r))
	}
	if trace.Status != StatusUnavailable || trace.FallbackReason != FallbackInferenceError {
		t.Errorf("status=%s reason=%q", trace.Status, trace.FallbackReason)
	}
}

func TestDecideBreakerOpens(t *testing.T) {
	learner := &stubLearner{err: errors.New("boom")}
	cfg := DefaultConfig()
	cfg.Breaker = BreakerConfig{MaxFailures: 2, OpenTimeout: time.Hour}
	e := New(history.NewMemoryStore(allTrueHistory(10)...), cfg, quietLogger(), WithLearner(learner))

	r := home.Reading{Temperature: 22, AirQuality: 95, Presence: true}
	e.Decide(r)
	e.Decide(r)
	_, trace := e.DecideTrace(r)

	if learner.predicts != 2 {
		t.Errorf("predicts = %d, want 2 (breaker should short-circuit the third)", learner.predicts)
	}
	if trace.FallbackReason != FallbackBreakerOpen {
		t.Errorf("reason = %q, want %q", trace.FallbackReason, FallbackBreakerOpen)
	}
	if trace.Final != rules.Evaluate(r) {
		t.Errorf("final %+v, want rules %+v", trace.Final, rules.Evaluate(r))
	}
}

func TestDecideUntrainedDoesNotTrip(t *testing.T) {
	learner := &stubLearner{err: classifier.ErrUntrained}
	cfg := DefaultConfig()
	cfg.Breaker = BreakerConfig{MaxFailures: 1, OpenTimeout: time.Hour}
	e := New(history.NewMemoryStore(allTrueHistory(10)...), cfg, quietLogger(), WithLearner(learner))

	for i := 0; i < 3; i++ {
		_, trace := e.DecideTrace(home.Reading{Temperature: 22, AirQuality: 95})
		if trace.FallbackReason != FallbackUntrained {
			t.Errorf("call %d: reason = %q, want %q", i, trace.FallbackReason, FallbackUntrained)
		}
	}
	if learner.predicts != 3 {
		t.Errorf("predicts = %d, want 3", learner.predicts)
	}
}

func TestDecideAppendFailureIsSwallowed(t *testing.T) {
	e := New(&failingStore{}, DefaultConfig(), quietLogger())

	r := home.Reading{Temperature: 27, Humidity: 60, AirQuality: 80, Presence: true}
	if got := e.Decide(r); got != rules.Evaluate(r) {
		t.Errorf("got %+v, want %+v", got, rules.Evaluate(r))
	}
}

// #endregion fallback-tests

// #region trace-tests
func TestRecorderReceivesTraces(t *testing.T) {
	rec := &captureRecorder{}
	fixed := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	e := New(history.NewMemoryStore(), DefaultConfig(), quietLogger(), WithRecorder(rec), WithClock(func() time.Time { return fixed }))

	e.Decide(home.Reading{Temperature: 22, AirQuality: 95})
	e.Decide(home.Reading{Temperature: 22, AirQuality: 95, Presence: true})

	if len(rec.traces) != 2 {
		t.Fatalf("recorded %d traces, want 2", len(rec.traces))
	}
	if rec.traces[0].DecisionID == "" || rec.traces[0].DecisionID == rec.traces[1].DecisionID {
		t.Errorf("decision ids not unique: %q %q", rec.traces[0].DecisionID, rec.traces[1].DecisionID)
	}
	if !rec.traces[0].CreatedAt.Equal(fixed) {
		t.Errorf("created_at = %v, want %v", rec.traces[0].CreatedAt, fixed)
	}
	if rec.traces[1].HistoryLen != 1 {
		t.Errorf("second trace history_len = %d, want 1", rec.traces[1].HistoryLen)
	}
}

func TestTrainWindow(t *testing.T) {
	learner := &stubLearner{}
	cfg := DefaultConfig()
	cfg.TrainWindow = 5
	e := New(history.NewMemoryStore(allTrueHistory(12)...), cfg, quietLogger(), WithLearner(learner))

	e.Decide(home.Reading{Temperature: 22, AirQuality: 95})
	if learner.trainedOn != 5 {
		t.Errorf("trained on %d entries, want 5", learner.trainedOn)
	}
	if n := len(e.History()); n != 13 {
		t.Errorf("history len = %d, want 13 (window must not delete)", n)
	}
}

// #endregion trace-tests

// #region retrain-tests
func TestRetrainEmptyHistory(t *testing.T) {
	e := New(history.NewMemoryStore(), DefaultConfig(), quietLogger())

	res := e.Retrain()
	if res.Passed || res.Reason != "no model" {
		t.Errorf("got %+v, want failed 'no model'", res)
	}
	if got := e.LearnedRules(); len(got) != 0 {
		t.Errorf("expected no learned rules, got %v", got)
	}
}

func TestRetrainLearnsRules(t *testing.T) {
	store := history.NewMemoryStore()
	for i := 0; i < 20; i++ {
		r := home.Reading{Temperature: 15 + float64(i), Humidity: 50, AirQuality: 95, Presence: true}
		store.Append(home.HistoryEntry{Input: r, Output: rules.Evaluate(r)})
	}
	e := New(store, DefaultConfig(), quietLogger())

	res := e.Retrain()
	if !res.Passed {
		t.Fatalf("retrain eval failed: %s", res.Reason)
	}
	if res.Samples != 20 {
		t.Errorf("samples = %d, want 20", res.Samples)
	}
	if e.Model() == nil {
		t.Fatal("expected a trained model")
	}
	if len(e.LearnedRules()) == 0 {
		t.Error("expected learned rules after retrain")
	}
	if len(e.LeafRules()) == 0 {
		t.Error("expected leaf rules after retrain")
	}
}

// #endregion retrain-tests
