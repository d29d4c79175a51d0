package alert

import (
	"fmt"
	"time"

	"github.com/renalwatch/renalwatch/internal/domain/measurement"
)

// Rule ids.
const (
	RuleWeightGain48h   = "weight_gain_48h"
	RuleBPSystolicHigh  = "bp_systolic_high"
	RuleBPSystolicLow   = "bp_systolic_low"
	RuleBPDiastolicHigh = "bp_diastolic_high"
	RuleSpO2Low         = "spo2_low"
	RuleHeartRateHigh   = "heart_rate_high"
)

// RuleConfig holds the clinical thresholds. Deltas are absolute values in the
// canonical unit, not percentages.
type RuleConfig struct {
	WeightGainDeltaKg    float64
	WeightGainWindow     time.Duration
	BPSystolicCritical   float64
	BPSystolicWarning    float64
	BPSystolicLowWarning float64
	BPDiastolicWarning   float64
	SpO2Warning          float64
	SpO2Critical         float64
	HeartRateWarning     float64
}

func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		WeightGainDeltaKg:    1.5,
		WeightGainWindow:     48 * time.Hour,
		BPSystolicCritical:   180,
		BPSystolicWarning:    160,
		BPSystolicLowWarning: 90,
		BPDiastolicWarning:   110,
		SpO2Warning:          92,
		SpO2Critical:         88,
		HeartRateWarning:     120,
	}
}

// Trigger is a rule's firing decision: the severity plus the literal inputs
// that explain it.
type Trigger struct {
	Severity string
	Inputs   RuleInputs
	Summary  string
}

// Rule is a stateless, deterministic function from a bounded data window to a
// trigger decision. The same history always yields the same decision.
type Rule struct {
	ID              string
	Name            string
	MeasurementType string
	// Window is how much trailing history the rule needs; zero means the rule
	// only looks at the incoming reading.
	Window   time.Duration
	Evaluate func(m *measurement.Measurement, history []*measurement.Measurement) (*Trigger, error)
}

// Catalog returns the full rule set for the given thresholds.
func Catalog(cfg RuleConfig) []Rule {
	return []Rule{
		{
			ID:              RuleWeightGain48h,
			Name:            "Rapid weight gain",
			MeasurementType: measurement.TypeWeight,
			Window:          cfg.WeightGainWindow,
			Evaluate:        weightGainRule(cfg),
		},
		{
			ID:              RuleBPSystolicHigh,
			Name:            "Systolic blood pressure high",
			MeasurementType: measurement.TypeBPSystolic,
			Evaluate: tieredHighRule(cfg.BPSystolicCritical, cfg.BPSystolicWarning,
				"systolic %.0f mmHg at or above %.0f"),
		},
		{
			ID:              RuleBPSystolicLow,
			Name:            "Systolic blood pressure low",
			MeasurementType: measurement.TypeBPSystolic,
			Evaluate: lowRule(cfg.BPSystolicLowWarning, SeverityWarning,
				"systolic %.0f mmHg at or below %.0f"),
		},
		{
			ID:              RuleBPDiastolicHigh,
			Name:            "Diastolic blood pressure high",
			MeasurementType: measurement.TypeBPDiastolic,
			Evaluate: highRule(cfg.BPDiastolicWarning, SeverityWarning,
				"diastolic %.0f mmHg at or above %.0f"),
		},
		{
			ID:              RuleSpO2Low,
			Name:            "Oxygen saturation low",
			MeasurementType: measurement.TypeSpO2,
			Evaluate: tieredLowRule(cfg.SpO2Critical, cfg.SpO2Warning,
				"SpO2 %.0f%% at or below %.0f"),
		},
		{
			ID:              RuleHeartRateHigh,
			Name:            "Heart rate high",
			MeasurementType: measurement.TypeHeartRate,
			Evaluate: highRule(cfg.HeartRateWarning, SeverityWarning,
				"heart rate %.0f bpm at or above %.0f"),
		},
	}
}

// weightGainRule fires when the latest weight exceeds the lowest weight in the
// trailing window by at least the configured absolute delta.
func weightGainRule(cfg RuleConfig) func(*measurement.Measurement, []*measurement.Measurement) (*Trigger, error) {
	return func(m *measurement.Measurement, history []*measurement.Measurement) (*Trigger, error) {
		baseline := m.Value
		found := false
		for _, h := range history {
			if h.ID == m.ID {
				continue
			}
			if h.TakenAt.After(m.TakenAt) {
				return nil, fmt.Errorf("history contains reading newer than the evaluated point")
			}
			if !found || h.Value < baseline {
				baseline = h.Value
				found = true
			}
		}
		if !found {
			// No prior reading in the window: nothing to compare against.
			return nil, nil
		}

		delta := m.Value - baseline
		if delta < cfg.WeightGainDeltaKg {
			return nil, nil
		}
		windowHours := int(cfg.WeightGainWindow / time.Hour)
		return &Trigger{
			Severity: SeverityWarning,
			Inputs: WeightGainInputs{
				Delta:       delta,
				WindowHours: windowHours,
				Baseline:    baseline,
				Latest:      m.Value,
			},
			Summary: fmt.Sprintf("weight gained %.1f kg over %d h (%.1f to %.1f)", delta, windowHours, baseline, m.Value),
		}, nil
	}
}

func highRule(threshold float64, severity, format string) func(*measurement.Measurement, []*measurement.Measurement) (*Trigger, error) {
	return func(m *measurement.Measurement, _ []*measurement.Measurement) (*Trigger, error) {
		if m.Value < threshold {
			return nil, nil
		}
		return thresholdTrigger(severity, m.Value, threshold, format), nil
	}
}

func lowRule(threshold float64, severity, format string) func(*measurement.Measurement, []*measurement.Measurement) (*Trigger, error) {
	return func(m *measurement.Measurement, _ []*measurement.Measurement) (*Trigger, error) {
		if m.Value > threshold {
			return nil, nil
		}
		return thresholdTrigger(severity, m.Value, threshold, format), nil
	}
}

// tieredHighRule fires CRITICAL at or above the critical threshold, WARNING at
// or above the warning threshold.
func tieredHighRule(critical, warning float64, format string) func(*measurement.Measurement, []*measurement.Measurement) (*Trigger, error) {
	return func(m *measurement.Measurement, _ []*measurement.Measurement) (*Trigger, error) {
		switch {
		case m.Value >= critical:
			return thresholdTrigger(SeverityCritical, m.Value, critical, format), nil
		case m.Value >= warning:
			return thresholdTrigger(SeverityWarning, m.Value, warning, format), nil
		}
		return nil, nil
	}
}

// tieredLowRule fires CRITICAL at or below the critical threshold, WARNING at
// or below the warning threshold.
func tieredLowRule(critical, warning float64, format string) func(*measurement.Measurement, []*measurement.Measurement) (*Trigger, error) {
	return func(m *measurement.Measurement, _ []*measurement.Measurement) (*Trigger, error) {
		switch {
		case m.Value <= critical:
			return thresholdTrigger(SeverityCritical, m.Value, critical, format), nil
		case m.Value <= warning:
			return thresholdTrigger(SeverityWarning, m.Value, warning, format), nil
		}
		return nil, nil
	}
}

func thresholdTrigger(severity string, value, threshold float64, format string) *Trigger {
	return &Trigger{
		Severity: severity,
		Inputs: ThresholdInputs{
			Measurement: ReadingValue{Value: value},
			Threshold:   threshold,
		},
		Summary: fmt.Sprintf(format, value, threshold),
	}
}
