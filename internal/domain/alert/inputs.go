package alert

import (
	"encoding/json"
	"fmt"
)

// RuleInputs is the explainability payload of an alert: the literal values a
// rule used to fire. Each rule id has its own concrete shape; inputs for rule
// ids this build does not know are carried opaquely and rendered through
// the alert's summary text.
type RuleInputs interface {
	isRuleInputs()
}

// WeightGainInputs explains a windowed weight-delta trigger.
type WeightGainInputs struct {
	Delta       float64 `json:"delta"`
	WindowHours int     `json:"window_hours"`
	Baseline    float64 `json:"baseline"`
	Latest      float64 `json:"latest"`
}

func (WeightGainInputs) isRuleInputs() {}

// ReadingValue wraps the single measurement value of a threshold trigger.
type ReadingValue struct {
	Value float64 `json:"value"`
}

// ThresholdInputs explains a single-reading threshold trigger.
type ThresholdInputs struct {
	Measurement ReadingValue `json:"measurement"`
	Threshold   float64      `json:"threshold"`
}

func (ThresholdInputs) isRuleInputs() {}

// UnknownInputs carries the raw payload of a rule id this build does not
// recognize. Rendering falls back to the alert's summary text.
type UnknownInputs struct {
	Raw json.RawMessage
}

func (UnknownInputs) isRuleInputs() {}

func (u UnknownInputs) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return []byte("{}"), nil
	}
	return u.Raw, nil
}

// EncodeInputs serializes inputs for storage.
func EncodeInputs(in RuleInputs) ([]byte, error) {
	if in == nil {
		return nil, fmt.Errorf("alert inputs are required")
	}
	return json.Marshal(in)
}

// DecodeInputs restores the typed variant for a stored payload, keyed by rule
// id. Unrecognized rule ids decode to UnknownInputs.
func DecodeInputs(ruleID string, raw []byte) (RuleInputs, error) {
	switch ruleID {
	case RuleWeightGain48h:
		var in WeightGainInputs
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("decoding inputs for %s: %w", ruleID, err)
		}
		return in, nil
	case RuleBPSystolicHigh, RuleBPSystolicLow, RuleBPDiastolicHigh, RuleSpO2Low, RuleHeartRateHigh:
		var in ThresholdInputs
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("decoding inputs for %s: %w", ruleID, err)
		}
		return in, nil
	default:
		return UnknownInputs{Raw: json.RawMessage(raw)}, nil
	}
}
