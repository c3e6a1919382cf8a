package costing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "complyhub/pkg/domain-errors"
)

const delta = 1e-9

func TestCompute(t *testing.T) {
	t.Run("quarterly manual maintenance cost", func(t *testing.T) {
		f := Compute(Inputs{MaintenanceMinutes: 10, Frequency: FrequencyQuarterly, HourlyRate: 60})
		assert.InDelta(t, 40.0, f.MaintenanceCost, delta)
		assert.InDelta(t, 40.0, f.AnnualMaintenanceMinutes, delta)
		assert.InDelta(t, 40.0/60, f.AnnualMaintenanceHours, delta)
	})

	t.Run("annual maintenance minutes per frequency", func(t *testing.T) {
		cases := map[Frequency]float64{
			FrequencyMonthly:    12,
			FrequencyQuarterly:  4,
			FrequencySemiAnnual: 2,
			FrequencyAnnual:     1,
		}
		for freq, mult := range cases {
			f := Compute(Inputs{MaintenanceMinutes: 7.5, Frequency: freq})
			assert.InDelta(t, 7.5*mult, f.AnnualMaintenanceMinutes, delta, string(freq))
		}
	})

	t.Run("combined time adds automated seconds", func(t *testing.T) {
		f := Compute(Inputs{
			MaintenanceMinutes:   10,
			AutomatedTestSeconds: 120,
			Frequency:            FrequencyMonthly,
			HourlyRate:           30,
		})
		assert.InDelta(t, 120.0, f.AnnualMaintenanceMinutes, delta)
		assert.InDelta(t, 144.0, f.AnnualMaintenanceMinutesCombined, delta)
		assert.InDelta(t, 72.0, f.MaintenanceCostCombined, delta)
		assert.InDelta(t, 2.4, f.AnnualMaintenanceHoursCombined, delta)
	})

	t.Run("zero implementation time never divides", func(t *testing.T) {
		f := Compute(Inputs{ImplementationCost: 500})
		assert.Zero(t, f.CostPerMinute)
		assert.Zero(t, f.ImplementationHours)
		assert.InDelta(t, 500.0, f.FirstYearCost, delta)
	})

	t.Run("cost per minute and first year cost", func(t *testing.T) {
		f := Compute(Inputs{
			ImplementationMinutes: 120,
			ImplementationCost:    600,
			MaintenanceMinutes:    30,
			Frequency:             FrequencyAnnual,
			HourlyRate:            100,
		})
		assert.InDelta(t, 2.0, f.ImplementationHours, delta)
		assert.InDelta(t, 5.0, f.CostPerMinute, delta)
		assert.InDelta(t, 50.0, f.MaintenanceCost, delta)
		assert.InDelta(t, 650.0, f.FirstYearCost, delta)
	})

	t.Run("missing frequency zeroes maintenance", func(t *testing.T) {
		f := Compute(Inputs{MaintenanceMinutes: 10, AutomatedTestSeconds: 60, HourlyRate: 60})
		assert.Zero(t, f.AnnualMaintenanceMinutes)
		assert.Zero(t, f.AnnualMaintenanceMinutesCombined)
		assert.Zero(t, f.MaintenanceCost)
	})

	t.Run("negative inputs never produce negative outputs", func(t *testing.T) {
		f := Compute(Inputs{
			ImplementationMinutes: -10,
			ImplementationCost:    -5,
			MaintenanceMinutes:    -3,
			AutomatedTestSeconds:  -60,
			Frequency:             FrequencyMonthly,
			HourlyRate:            -1,
		})
		assert.Equal(t, Figures{}, f)
	})
}

func TestFrequency(t *testing.T) {
	t.Run("parse accepts known values and empty", func(t *testing.T) {
		f, err := ParseFrequency("semi_annual")
		require.NoError(t, err)
		assert.Equal(t, FrequencySemiAnnual, f)

		f, err = ParseFrequency("")
		require.NoError(t, err)
		assert.Equal(t, Frequency(""), f)
	})

	t.Run("parse rejects unknown values", func(t *testing.T) {
		_, err := ParseFrequency("weekly")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("next test date uses thirty day months", func(t *testing.T) {
		last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		next, ok := NextTestDate(last, FrequencyQuarterly)
		require.True(t, ok)
		assert.Equal(t, last.AddDate(0, 0, 90), next)

		_, ok = NextTestDate(time.Time{}, FrequencyQuarterly)
		assert.False(t, ok)
		_, ok = NextTestDate(last, "")
		assert.False(t, ok)
	})
}

func TestEffectivenessScore(t *testing.T) {
	assert.Zero(t, EffectivenessScore(false, true, CheckPass))
	assert.InDelta(t, 50.0, EffectivenessScore(true, false, CheckFail), delta)
	assert.InDelta(t, 60.0, EffectivenessScore(true, true, CheckPass), delta)
	assert.InDelta(t, 40.0, EffectivenessScore(true, true, CheckWarning), delta)
	assert.InDelta(t, 30.0, EffectivenessScore(true, true, CheckFail), delta)
}
