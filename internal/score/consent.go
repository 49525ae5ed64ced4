package score

import "ethoscope/internal/session"

// Pillar names, in evaluation order.
var consentPillars = []string{
	"capacity",
	"disclosure",
	"comprehension",
	"voluntariness",
	"authorization",
}

// pillarRationales are the fixed educational strings recorded with a
// compliance violation when a pillar is unsatisfied.
var pillarRationales = map[string]string{
	"capacity":      "Capacity was never confirmed: a valid agreement requires the borrower to be able to understand and weigh the commitment.",
	"disclosure":    "Material terms were not disclosed before commitment: fees, APR, and rollover consequences must be presented up front.",
	"comprehension": "Comprehension was never verified: presenting terms is not enough; the borrower must demonstrably understand them.",
	"voluntariness": "Voluntariness was not affirmed: pressure tactics or defaults substituted for a free choice.",
	"authorization": "Authorization was never given: the commitment proceeded without an explicit, affirmative act by the borrower.",
}

// ConsentResult is the consent-quality breakdown.
type ConsentResult struct {
	ComplianceRate float64         `json:"complianceRate"`
	Pillars        map[string]bool `json:"pillars"`
	// Violations lists one entry per unsatisfied pillar; the caller
	// appends them to the record (deduplicated per pillar).
	Violations []session.ComplianceViolation `json:"violations,omitempty"`
}

// ConsentQuality scores the five consent pillars: 20 points each,
// complianceRate = satisfied/5 * 100.
func ConsentQuality(flags session.ConsentFlags) ConsentResult {
	status := map[string]bool{
		"capacity":      flags.CapacityConfirmed,
		"disclosure":    flags.DisclosureProvided,
		"comprehension": flags.ComprehensionVerified,
		"voluntariness": flags.VoluntarinessAffirmed,
		"authorization": flags.AuthorizationGiven,
	}
	res := ConsentResult{Pillars: status}
	satisfied := 0
	for _, pillar := range consentPillars {
		if status[pillar] {
			satisfied++
			continue
		}
		res.Violations = append(res.Violations, session.ComplianceViolation{
			RuleID:          "consent." + pillar,
			Severity:        session.SeverityHigh,
			PenaltyEstimate: 1000,
			Rationale:       pillarRationales[pillar],
		})
	}
	res.ComplianceRate = clamp(float64(satisfied) / float64(len(consentPillars)) * 100)
	return res
}
