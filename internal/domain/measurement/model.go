package measurement

import (
	"time"

	"github.com/google/uuid"
)

// Measurement types. Values are stored in the canonical unit for the type
// regardless of the unit they were submitted in.
const (
	TypeWeight     = "WEIGHT"
	TypeBPSystolic = "BP_SYSTOLIC"
	TypeBPDiastolic = "BP_DIASTOLIC"
	TypeSpO2       = "SPO2"
	TypeHeartRate  = "HEART_RATE"
	TypeBodyFat    = "BODY_FAT"
	TypeMuscleMass = "MUSCLE_MASS"
	TypeBodyWater  = "BODY_WATER"
)

// canonicalUnits maps each measurement type to its storage unit.
var canonicalUnits = map[string]string{
	TypeWeight:      "kg",
	TypeBPSystolic:  "mmHg",
	TypeBPDiastolic: "mmHg",
	TypeSpO2:        "%",
	TypeHeartRate:   "bpm",
	TypeBodyFat:     "%",
	TypeMuscleMass:  "kg",
	TypeBodyWater:   "%",
}

// Measurement sources.
const (
	SourceManual   = "manual"
	SourceWithings = "withings"
	SourceFitbit   = "fitbit"
)

var validSources = map[string]bool{
	SourceManual:   true,
	SourceWithings: true,
	SourceFitbit:   true,
}

// Measurement is a single physiologic data point. Immutable once created.
type Measurement struct {
	ID         uuid.UUID `json:"id"`
	PatientID  uuid.UUID `json:"patient_id"`
	Type       string    `json:"type"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	TakenAt    time.Time `json:"taken_at"`
	Source     string    `json:"source"`
	ExternalID *string   `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CanonicalUnit returns the storage unit for a measurement type, or "" if the
// type is unknown.
func CanonicalUnit(typ string) string {
	return canonicalUnits[typ]
}

// ValidType reports whether typ is a known measurement type.
func ValidType(typ string) bool {
	_, ok := canonicalUnits[typ]
	return ok
}
