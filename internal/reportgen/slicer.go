package reportgen

// HighRiskThreshold is the predicted success probability at or below which
// a slicer prediction is flagged as high risk.
const HighRiskThreshold = 0.70

// PredictionSpec configures the slicer backend's predictive report. Zero
// values are omitted so the backend applies its own defaults.
type PredictionSpec struct {
	Target   string   `json:"target,omitempty"`
	Features []string `json:"features,omitempty"`
	Horizon  int      `json:"horizon,omitempty"`
}

// Options renders the specification as generate-call options.
func (s PredictionSpec) Options() map[string]any {
	opts := map[string]any{}
	if s.Target != "" {
		opts["target"] = s.Target
	}
	if len(s.Features) > 0 {
		opts["features"] = s.Features
	}
	if s.Horizon > 0 {
		opts["horizon"] = s.Horizon
	}
	if len(opts) == 0 {
		return nil
	}
	return map[string]any{"specification": opts}
}

// RiskLevel classifies a predicted success probability.
func RiskLevel(probability float64) string {
	if probability <= HighRiskThreshold {
		return "high"
	}
	return "low"
}
