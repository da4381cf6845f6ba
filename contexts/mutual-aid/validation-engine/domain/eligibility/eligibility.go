package eligibility

import "almoner/contexts/mutual-aid/validation-engine/domain/entities"

// Validator admission thresholds. The profile service owns the underlying
// scores; this package only judges a snapshot of them.
const (
	MinReputationScore    = 3.0
	MinValidationAccuracy = 0.7
)

// Report carries the verdict plus both sides of each threshold so callers
// can show validators exactly what they are missing.
type Report struct {
	Eligible                  bool
	MinReputationScore        float64
	CurrentReputationScore    float64
	MinValidationAccuracy     float64
	CurrentValidationAccuracy float64
	IsActiveValidator         bool
	UnmetRequirements         []string
}

// Check is a pure function over a validator snapshot.
func Check(snapshot entities.ValidatorSnapshot) Report {
	report := Report{
		MinReputationScore:        MinReputationScore,
		CurrentReputationScore:    snapshot.ReputationScore,
		MinValidationAccuracy:     MinValidationAccuracy,
		CurrentValidationAccuracy: snapshot.ValidationAccuracy,
		IsActiveValidator:         snapshot.IsActiveValidator,
	}
	if snapshot.ReputationScore < MinReputationScore {
		report.UnmetRequirements = append(report.UnmetRequirements, "reputation_score")
	}
	if snapshot.ValidationAccuracy < MinValidationAccuracy {
		report.UnmetRequirements = append(report.UnmetRequirements, "validation_accuracy")
	}
	if !snapshot.IsActiveValidator {
		report.UnmetRequirements = append(report.UnmetRequirements, "active_validator")
	}
	report.Eligible = len(report.UnmetRequirements) == 0
	return report
}
