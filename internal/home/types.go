package home

import "strings"

// #region reading
// Reading is one instant's environmental snapshot handed over by the sensor layer.
type Reading struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // %
	DoorOpen    bool    `json:"door_status"`
	AirQuality  float64 `json:"air_quality"` // 0-100, higher is better
	Presence    bool    `json:"presence"`
}

// NumFeatures is the width of the classifier feature vector.
const NumFeatures = 5

// FeatureNames are the human-readable names of Features() positions.
var FeatureNames = [NumFeatures]string{"Temperature", "Humidity", "Door Status", "Air Quality", "Presence"}

// Features returns [temperature, humidity, door, air_quality, presence] with booleans as 0/1.
func (r Reading) Features() [NumFeatures]float64 {
	return [NumFeatures]float64{
		r.Temperature,
		r.Humidity,
		boolFloat(r.DoorOpen),
		r.AirQuality,
		boolFloat(r.Presence),
	}
}

// #endregion reading

// #region decisions
// Decisions is the five-flag automation output. All five fields are always present.
type Decisions struct {
	Ventilation  bool `json:"ventilation"`
	HVAC         bool `json:"hvac"`
	Lighting     bool `json:"lighting"`
	Security     bool `json:"security"`
	EnergySaving bool `json:"energy_saving"`
}

// NumLabels is the number of decision flags.
const NumLabels = 5

// LabelNames are the human-readable names of Labels() positions.
var LabelNames = [NumLabels]string{"Ventilation", "HVAC", "Lighting", "Security", "Energy Saving"}

// Labels returns the flags in canonical order.
func (d Decisions) Labels() [NumLabels]bool {
	return [NumLabels]bool{d.Ventilation, d.HVAC, d.Lighting, d.Security, d.EnergySaving}
}

// DecisionsFromLabels is the inverse of Labels.
func DecisionsFromLabels(l [NumLabels]bool) Decisions {
	return Decisions{
		Ventilation:  l[0],
		HVAC:         l[1],
		Lighting:     l[2],
		Security:     l[3],
		EnergySaving: l[4],
	}
}

// Or combines two decision sets field by field.
func (d Decisions) Or(o Decisions) Decisions {
	a, b := d.Labels(), o.Labels()
	var out [NumLabels]bool
	for i := range out {
		out[i] = a[i] || b[i]
	}
	return DecisionsFromLabels(out)
}

// Active returns the names of the flags that are set.
func (d Decisions) Active() []string {
	var names []string
	for i, on := range d.Labels() {
		if on {
			names = append(names, LabelNames[i])
		}
	}
	return names
}

// Diff returns the names of labels where d and o disagree.
func (d Decisions) Diff(o Decisions) []string {
	a, b := d.Labels(), o.Labels()
	var names []string
	for i := range a {
		if a[i] != b[i] {
			names = append(names, LabelNames[i])
		}
	}
	return names
}

func (d Decisions) String() string {
	active := d.Active()
	if len(active) == 0 {
		return "none"
	}
	return strings.Join(active, ", ")
}

// #endregion decisions

// #region history-entry
// HistoryEntry pairs an input snapshot with the decisions produced for it.
type HistoryEntry struct {
	Input  Reading   `json:"input"`
	Output Decisions `json:"output"`
}

// #endregion history-entry

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
