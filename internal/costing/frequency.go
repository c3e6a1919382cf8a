package costing

import (
	"time"

	dErrors "complyhub/pkg/domain-errors"
)

// Frequency is how often a control is tested.
type Frequency string

const (
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiAnnual Frequency = "semi_annual"
	FrequencyAnnual     Frequency = "annual"
)

// daysPerMonth approximates a month when projecting the next test date.
const daysPerMonth = 30

// ParseFrequency validates a frequency. The empty string is accepted as "not set".
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if f == "" || f.IsValid() {
		return f, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown test frequency %q", s)
}

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencySemiAnnual, FrequencyAnnual:
		return true
	}
	return false
}

func (f Frequency) String() string {
	return string(f)
}

// TestsPerYear is the annual multiplier: 12, 4, 2, 1. Unknown or unset frequencies yield 0.
func (f Frequency) TestsPerYear() float64 {
	switch f {
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	case FrequencySemiAnnual:
		return 2
	case FrequencyAnnual:
		return 1
	}
	return 0
}

// MonthsBetweenTests is 12 / TestsPerYear, or 0 when unset.
func (f Frequency) MonthsBetweenTests() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencySemiAnnual:
		return 6
	case FrequencyAnnual:
		return 12
	}
	return 0
}

// NextTestDate projects the next due test: last + 30 days per month of interval.
// Returns false when either the last test date or the frequency is missing.
func NextTestDate(last time.Time, f Frequency) (time.Time, bool) {
	months := f.MonthsBetweenTests()
	if last.IsZero() || months == 0 {
		return time.Time{}, false
	}
	return last.AddDate(0, 0, daysPerMonth*months), true
}
