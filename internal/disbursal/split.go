// Package disbursal holds the pure rules behind milestone funding: splitting a
// target into tranche amounts and validating release evidence.
package disbursal

import (
	"strings"

	"github.com/shopspring/decimal"

	"csrhub/pkg/apperror"
)

var hundred = decimal.NewFromInt(100)

// Milestone is one requested tranche of a new project
type Milestone struct {
	UnlockCondition string          `json:"unlock_condition"`
	Percentage      decimal.Decimal `json:"percentage"`
}

// Allocation is a milestone resolved to an amount
type Allocation struct {
	Sequence        int
	UnlockCondition string
	Percentage      decimal.Decimal
	Amount          int64
}

// Split divides target across milestones. Percentages must total exactly 100.
// Every tranche but the last gets round(target*pct/100); the last takes the
// remainder so the amounts always add up to target.
func Split(target int64, milestones []Milestone) ([]Allocation, error) {
	if target <= 0 {
		return nil, apperror.Validation("target amount must be positive")
	}
	if len(milestones) == 0 {
		return nil, apperror.Validation("at least one milestone is required")
	}

	total := decimal.Zero
	for i, m := range milestones {
		if strings.TrimSpace(m.UnlockCondition) == "" {
			return nil, apperror.Validation("milestone %d: unlock condition is required", i+1)
		}
		if !m.Percentage.IsPositive() {
			return nil, apperror.Validation("milestone %d: percentage must be positive", i+1)
		}
		// stored as decimal(5,2)
		if !m.Percentage.Equal(m.Percentage.Round(2)) {
			return nil, apperror.Validation("milestone %d: percentage allows at most 2 decimal places, got %s", i+1, m.Percentage.String())
		}
		total = total.Add(m.Percentage)
	}
	if !total.Equal(hundred) {
		return nil, apperror.Validation("milestone percentages must total 100, got %s", total.String())
	}

	targetDec := decimal.NewFromInt(target)
	allocations := make([]Allocation, len(milestones))
	var allocated int64
	for i, m := range milestones {
		var amount int64
		if i == len(milestones)-1 {
			amount = target - allocated
		} else {
			amount = targetDec.Mul(m.Percentage).Div(hundred).Round(0).IntPart()
		}
		if amount <= 0 {
			return nil, apperror.Validation("milestone %d: computed amount %d is not positive", i+1, amount)
		}
		allocated += amount
		allocations[i] = Allocation{
			Sequence:        i + 1,
			UnlockCondition: strings.TrimSpace(m.UnlockCondition),
			Percentage:      m.Percentage,
			Amount:          amount,
		}
	}
	return allocations, nil
}
