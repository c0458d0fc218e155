package cospend

import (
	"math"
	"sort"

	"github.com/homestead/homestead/internal/model"
)

// debtThreshold hides residue from rounding.
const debtThreshold = 0.01

// Debts nets the current user's position against every other participant.
// Only payments where one side paid create a pairwise debt: when the other
// user paid, the current user owes their own share; when the current user paid,
// the other user owes theirs. Nets within ±0.01 are dropped. Both lists are
// sorted by amount, largest first, and reported as positive values.
func Debts(user string, payments []*model.Payment) model.DebtSummary {
	type acc struct {
		net float64
		ids []string
	}
	byUser := make(map[string]*acc)

	for _, p := range payments {
		var mine *model.PaymentSplit
		for _, s := range p.Splits {
			if s.Username == user {
				mine = s
				break
			}
		}
		if mine == nil {
			continue
		}

		for _, other := range p.Splits {
			if other.Username == user {
				continue
			}

			var delta float64
			switch {
			case p.PaidBy == other.Username && mine.Amount > 0:
				delta = mine.Amount
			case p.PaidBy == user && other.Amount > 0:
				delta = -other.Amount
			default:
				continue
			}

			a, ok := byUser[other.Username]
			if !ok {
				a = &acc{}
				byUser[other.Username] = a
			}
			a.net += delta
			a.ids = append(a.ids, p.ID)
		}
	}

	summary := model.DebtSummary{
		WhoOwesMe: []model.DebtEntry{},
		WhoIOwe:   []model.DebtEntry{},
	}
	for name, a := range byUser {
		if math.Abs(a.net) <= debtThreshold {
			continue
		}
		entry := model.DebtEntry{
			Username:     name,
			NetAmount:    Round2(math.Abs(a.net)),
			PaymentCount: len(a.ids),
			PaymentIDs:   a.ids,
		}
		if a.net < 0 {
			summary.WhoOwesMe = append(summary.WhoOwesMe, entry)
			summary.TotalOwedToMe += entry.NetAmount
		} else {
			summary.WhoIOwe = append(summary.WhoIOwe, entry)
			summary.TotalIOwe += entry.NetAmount
		}
	}

	sortDebts(summary.WhoOwesMe)
	sortDebts(summary.WhoIOwe)
	summary.TotalOwedToMe = Round2(summary.TotalOwedToMe)
	summary.TotalIOwe = Round2(summary.TotalIOwe)
	return summary
}

func sortDebts(entries []model.DebtEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].NetAmount != entries[j].NetAmount {
			return entries[i].NetAmount > entries[j].NetAmount
		}
		return entries[i].Username < entries[j].Username
	})
}

// NetBalance sums a user's split amounts. Positive means the user owes money.
func NetBalance(splits []*model.PaymentSplit) float64 {
	var total float64
	for _, s := range splits {
		total += s.Amount
	}
	return Round2(total)
}

// Balances aggregates splits per user, sorted by username.
func Balances(splits []*model.PaymentSplit) []model.UserBalance {
	byUser := make(map[string]*model.UserBalance)
	for _, s := range splits {
		b, ok := byUser[s.Username]
		if !ok {
			b = &model.UserBalance{Username: s.Username}
			byUser[s.Username] = b
		}
		if s.Amount > 0 {
			b.TotalOwed += s.Amount
		} else {
			b.TotalOwing += -s.Amount
		}
		b.NetBalance += s.Amount
	}

	out := make([]model.UserBalance, 0, len(byUser))
	for _, b := range byUser {
		b.TotalOwed = Round2(b.TotalOwed)
		b.TotalOwing = Round2(b.TotalOwing)
		b.NetBalance = Round2(b.NetBalance)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
