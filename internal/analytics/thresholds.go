package analytics

import (
	"errors"
	"fmt"

	"github.com/jwulff/trustguard/internal/model"
)

// ErrThresholdOrder is wrapped by CheckThresholds when safe > caution > danger
// does not hold.
var ErrThresholdOrder = errors.New("trust thresholds out of order")

const (
	thresholdMin = 0
	thresholdMax = 100

	minAPIKeyLen = 20
)

// ValidThresholds reports whether safe > caution > danger.
func ValidThresholds(t model.TrustThresholds) bool {
	return t.Safe > t.Caution && t.Caution > t.Danger
}

// CheckThresholds returns an error naming the first pair out of order.
func CheckThresholds(t model.TrustThresholds) error {
	if t.Safe <= t.Caution {
		return fmt.Errorf("%w: safe (%d) must be greater than caution (%d)", ErrThresholdOrder, t.Safe, t.Caution)
	}
	if t.Caution <= t.Danger {
		return fmt.Errorf("%w: caution (%d) must be greater than danger (%d)", ErrThresholdOrder, t.Caution, t.Danger)
	}
	return nil
}

// Range is an inclusive integer range.
type Range struct {
	Min int
	Max int
}

// Clamp returns v limited to the range.
func (r Range) Clamp(v int) int {
	return max(r.Min, min(r.Max, v))
}

// Bounds are the slider ranges for each threshold given its neighbours.
type Bounds struct {
	Safe    Range
	Caution Range
	Danger  Range
}

// ThresholdBounds returns the allowed slider range for each threshold so a
// valid configuration cannot be moved out of order by the sliders alone.
func ThresholdBounds(t model.TrustThresholds) Bounds {
	return Bounds{
		Safe:    Range{Min: t.Caution + 1, Max: thresholdMax},
		Caution: Range{Min: t.Danger + 1, Max: t.Safe - 1},
		Danger:  Range{Min: thresholdMin, Max: t.Caution - 1},
	}
}

// Warning is an advisory validation message. Warnings never block saving.
type Warning struct {
	Field   string
	Message string
}

// ValidateSettings returns advisory warnings for settings that are likely
// to misbehave: thresholds out of order, or a missing or short API key.
func ValidateSettings(s model.ExtensionSettings) []Warning {
	var warnings []Warning
	if err := CheckThresholds(s.TrustThresholds); err != nil {
		warnings = append(warnings, Warning{Field: "trustThresholds", Message: err.Error()})
	}
	switch {
	case s.APIKey == "":
		warnings = append(warnings, Warning{Field: "apiKey", Message: "API key is required for analysis"})
	case len(s.APIKey) < minAPIKeyLen:
		warnings = append(warnings, Warning{Field: "apiKey", Message: "API key looks too short"})
	}
	return warnings
}
