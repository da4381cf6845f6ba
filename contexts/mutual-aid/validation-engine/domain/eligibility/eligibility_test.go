package eligibility

import (
	"testing"

	"almoner/contexts/mutual-aid/validation-engine/domain/entities"
)

func TestCheckEligibleValidator(t *testing.T) {
	report := Check(entities.ValidatorSnapshot{
		ValidatorID:        "validator-1",
		ReputationScore:    3.0,
		ValidationAccuracy: 0.7,
		IsActiveValidator:  true,
	})
	if !report.Eligible {
		t.Fatalf("thresholds are inclusive, expected eligible: %+v", report)
	}
	if len(report.UnmetRequirements) != 0 {
		t.Fatalf("unexpected unmet requirements: %v", report.UnmetRequirements)
	}
}

func TestCheckReportsEveryUnmetRequirement(t *testing.T) {
	report := Check(entities.ValidatorSnapshot{
		ValidatorID:        "validator-2",
		ReputationScore:    2.9,
		ValidationAccuracy: 0.69,
		IsActiveValidator:  false,
	})
	if report.Eligible {
		t.Fatalf("expected ineligible validator: %+v", report)
	}
	if len(report.UnmetRequirements) != 3 {
		t.Fatalf("expected all three requirements unmet, got %v", report.UnmetRequirements)
	}
}

func TestCheckSingleFailure(t *testing.T) {
	report := Check(entities.ValidatorSnapshot{
		ValidatorID:        "validator-3",
		ReputationScore:    4.5,
		ValidationAccuracy: 0.9,
		IsActiveValidator:  false,
	})
	if report.Eligible {
		t.Fatalf("inactive validator must be ineligible")
	}
	if len(report.UnmetRequirements) != 1 || report.UnmetRequirements[0] != "active_validator" {
		t.Fatalf("expected only active_validator unmet, got %v", report.UnmetRequirements)
	}
}
