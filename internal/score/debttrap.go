package score

import "ethoscope/internal/session"

// Risk labels for the debt-trap score.
const (
	RiskCritical = "critical"
	RiskHigh     = "high"
	RiskMedium   = "medium"
	RiskLow      = "low"
)

// DebtTrapResult is the banded breakdown of the debt-trap score.
type DebtTrapResult struct {
	Score   float64            `json:"score"`
	Label   string             `json:"label"`
	Factors map[string]float64 `json:"factors"`
}

// DebtTrap estimates how entrenched the borrower is in a rollover
// cycle, as a weighted sum of four bands: fee-to-principal ratio,
// rollover count, principal still owed, and effective APR.
func DebtTrap(loan session.LoanTerms) DebtTrapResult {
	factors := make(map[string]float64, 4)

	if loan.Amount > 0 {
		switch ratio := loan.FeesAccrued / loan.Amount; {
		case ratio > 3.0:
			factors["feeToPrincipal"] = 40
		case ratio > 2.0:
			factors["feeToPrincipal"] = 30
		case ratio > 1.0:
			factors["feeToPrincipal"] = 20
		case ratio > 0.5:
			factors["feeToPrincipal"] = 10
		}
	}

	switch {
	case loan.RolloverCount > 5:
		factors["rollovers"] = 30
	case loan.RolloverCount > 3:
		factors["rollovers"] = 20
	case loan.RolloverCount > 1:
		factors["rollovers"] = 10
	}

	if loan.Amount > 0 {
		switch owed := loan.PrincipalOwed / loan.Amount; {
		case owed > 0.9:
			factors["principalOwed"] = 20
		case owed > 0.7:
			factors["principalOwed"] = 15
		case owed > 0.5:
			factors["principalOwed"] = 10
		}
	}

	switch {
	case loan.APR > 500:
		factors["effectiveAPR"] = 10
	case loan.APR > 300:
		factors["effectiveAPR"] = 5
	}

	var total float64
	for _, v := range factors {
		total += v
	}
	score := clamp(total)
	return DebtTrapResult{Score: score, Label: riskLabel(score), Factors: factors}
}

func riskLabel(score float64) string {
	switch {
	case score >= 70:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}
