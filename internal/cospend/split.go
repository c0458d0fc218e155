// Package cospend implements the arithmetic behind shared expenses: split
// calculation, debt netting, monthly summaries and recurring schedules.
package cospend

import (
	"errors"
	"math"

	"github.com/homestead/homestead/internal/model"
)

// Split calculation errors.
var (
	ErrNoParticipants       = errors.New("at least one participant is required")
	ErrPersonalExceedsTotal = errors.New("personal amounts cannot exceed total payment amount")
	ErrInvalidProportions   = errors.New("proportions must be positive")
	ErrInvalidSplitMethod   = errors.New("invalid split method")
)

// Participant is an input to CalculateSplits.
type Participant struct {
	Username       string
	Proportion     float64
	PersonalAmount float64
}

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalculateSplits divides amount among participants according to method. The
// payer's split is credited with the amount they fronted, so positive values
// owe and negative values are owed. Amounts are rounded to 2 decimals.
func CalculateSplits(amount float64, paidBy string, method model.SplitMethod, participants []Participant) ([]*model.PaymentSplit, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	n := float64(len(participants))
	splits := make([]*model.PaymentSplit, 0, len(participants))

	switch method {
	case model.SplitEqual:
		share := amount / n
		for _, p := range participants {
			splits = append(splits, newSplit(p.Username, owed(share, amount, p.Username == paidBy)))
		}

	case model.SplitFull:
		for _, p := range participants {
			v := 0.0
			if p.Username == paidBy {
				v = -amount
			}
			splits = append(splits, newSplit(p.Username, v))
		}

	case model.SplitProportional:
		var total float64
		for _, p := range participants {
			if p.Proportion <= 0 {
				return nil, ErrInvalidProportions
			}
			total += p.Proportion
		}
		for _, p := range participants {
			ratio := p.Proportion / total
			s := newSplit(p.Username, owed(amount*ratio, amount, p.Username == paidBy))
			s.Proportion = &ratio
			splits = append(splits, s)
		}

	case model.SplitPersonalEqual:
		var personal float64
		for _, p := range participants {
			personal += p.PersonalAmount
		}
		if personal > amount+0.005 {
			return nil, ErrPersonalExceedsTotal
		}
		shared := (amount - personal) / n
		for _, p := range participants {
			pa := p.PersonalAmount
			s := newSplit(p.Username, owed(pa+shared, amount, p.Username == paidBy))
			s.PersonalAmount = &pa
			splits = append(splits, s)
		}

	default:
		return nil, ErrInvalidSplitMethod
	}

	return splits, nil
}

func owed(share, amount float64, isPayer bool) float64 {
	if isPayer {
		return Round2(share - amount)
	}
	return Round2(share)
}

func newSplit(username string, amount float64) *model.PaymentSplit {
	return &model.PaymentSplit{Username: username, Amount: amount}
}

// ConvertSplits scales split amounts by an exchange rate in place.
func ConvertSplits(splits []*model.PaymentSplit, rate float64) {
	for _, s := range splits {
		s.Amount = Round2(s.Amount * rate)
		if s.PersonalAmount != nil {
			v := Round2(*s.PersonalAmount * rate)
			s.PersonalAmount = &v
		}
	}
}

// PersonalTotal sums the personal amounts of splits.
func PersonalTotal(splits []*model.PaymentSplit) float64 {
	var total float64
	for _, s := range splits {
		if s.PersonalAmount != nil {
			total += *s.PersonalAmount
		}
	}
	return total
}
