// Package reward holds the pure payout arithmetic for validation work.
package reward

import "math"

const baseReward = 0.5

// Breakdown itemizes one payout so the ledger can audit it later.
type Breakdown struct {
	Base          float64
	SeverityMult  float64
	AmountMult    float64
	AccuracyBonus float64
	Total         float64
}

// Compute derives the payout for validating one request. Base scales with
// severity and logarithmically with amount; the accuracy bonus multiplies
// the rounded base. Total is rounded again to cents: it is the amount the
// ledger credits, and entries never carry sub-cent balances.
func Compute(severityLevel int, amount float64, accuracy float64) Breakdown {
	severityMult := 1 + float64(severityLevel-5)*0.1
	amountMult := 1 + math.Log10(amount+1)*0.1
	bonus := AccuracyBonus(accuracy)
	base := round2(baseReward * severityMult * amountMult)
	return Breakdown{
		Base:          base,
		SeverityMult:  severityMult,
		AmountMult:    amountMult,
		AccuracyBonus: bonus,
		Total:         round2(base * bonus),
	}
}

// AccuracyBonus is a step function over the validator's historical accuracy.
func AccuracyBonus(accuracy float64) float64 {
	switch {
	case accuracy >= 0.95:
		return 1.5
	case accuracy >= 0.9:
		return 1.3
	case accuracy >= 0.8:
		return 1.1
	default:
		return 1.0
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
