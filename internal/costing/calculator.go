// Package costing converts a control's raw effort inputs into annualized
// cost and time figures. Everything here is pure and stateless.
package costing

// Inputs are the raw, operator-entered values of a control.
// Times are minutes except AutomatedTestSeconds; amounts share one currency.
type Inputs struct {
	ImplementationMinutes float64
	ImplementationCost    float64
	MaintenanceMinutes    float64 // manual effort per test cycle
	AutomatedTestSeconds  float64 // automated run time per test cycle
	Frequency             Frequency
	HourlyRate            float64
}

// Figures are the derived values stored alongside a control and rolled up to
// domains and standards.
type Figures struct {
	ImplementationHours              float64 `json:"implementation_hours"`
	AnnualMaintenanceMinutes         float64 `json:"total_annual_maintenance_time"`
	AnnualMaintenanceHours           float64 `json:"total_annual_maintenance_hours"`
	MaintenanceCost                  float64 `json:"maintenance_cost"`
	AnnualMaintenanceMinutesCombined float64 `json:"total_annual_maintenance_time_combined"`
	AnnualMaintenanceHoursCombined   float64 `json:"total_annual_maintenance_hours_combined"`
	MaintenanceCostCombined          float64 `json:"maintenance_cost_combined"`
	CostPerMinute                    float64 `json:"cost_per_minute"`
	FirstYearCost                    float64 `json:"total_first_year_cost"`
}

// Compute derives all figures from in. Missing inputs produce zero outputs,
// negative inputs are treated as zero, and every division by a zero
// denominator resolves to zero instead of failing.
func Compute(in Inputs) Figures {
	implMinutes := nonNegative(in.ImplementationMinutes)
	implCost := nonNegative(in.ImplementationCost)
	manual := nonNegative(in.MaintenanceMinutes)
	automated := nonNegative(in.AutomatedTestSeconds)
	rate := nonNegative(in.HourlyRate)
	perYear := in.Frequency.TestsPerYear()

	var out Figures
	out.ImplementationHours = implMinutes / 60
	out.CostPerMinute = divide(implCost, implMinutes)

	out.AnnualMaintenanceMinutes = manual * perYear
	out.AnnualMaintenanceHours = out.AnnualMaintenanceMinutes / 60
	out.MaintenanceCost = out.AnnualMaintenanceMinutes * rate / 60

	out.AnnualMaintenanceMinutesCombined = out.AnnualMaintenanceMinutes + automated/60*perYear
	out.AnnualMaintenanceHoursCombined = out.AnnualMaintenanceMinutesCombined / 60
	out.MaintenanceCostCombined = out.AnnualMaintenanceMinutesCombined * rate / 60

	out.FirstYearCost = implCost + out.MaintenanceCost
	return out
}

// divide returns 0 for a zero denominator; an empty control is a normal case.
func divide(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
