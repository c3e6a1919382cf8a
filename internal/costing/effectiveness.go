package costing

// CheckResult is the outcome of the last automated assessment run.
type CheckResult string

const (
	CheckPass    CheckResult = "pass"
	CheckFail    CheckResult = "fail"
	CheckWarning CheckResult = "warning"
)

func (r CheckResult) IsValid() bool {
	return r == "" || r == CheckPass || r == CheckFail || r == CheckWarning
}

// EffectivenessScore rates an implemented control from 0 to 100.
// Controls that are not implemented score 0. The base score of 50 is adjusted
// by the automated check result when automated assessment is enabled.
func EffectivenessScore(implemented, automated bool, result CheckResult) float64 {
	if !implemented {
		return 0
	}
	score := 50.0
	if automated {
		switch result {
		case CheckPass:
			score *= 1.2
		case CheckFail:
			score *= 0.6
		case CheckWarning:
			score *= 0.8
		}
	}
	return min(score, 100)
}
