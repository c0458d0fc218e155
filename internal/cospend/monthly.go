package cospend

import (
	"sort"
	"time"

	"github.com/homestead/homestead/internal/model"
)

// MonthlySummary is a chart-ready breakdown of spending by month and category.
type MonthlySummary struct {
	Months     []string                `json:"months"`
	Categories []model.PaymentCategory `json:"categories"`
	Data       []model.MonthlyExpense  `json:"data"`
}

// MonthKey formats t as YYYY-MM in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// MonthlyWindowStart returns the first instant of the oldest month in a window
// of n months ending with now's month.
func MonthlyWindowStart(now time.Time, n int) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)
}

// Monthly buckets non-settlement payments from the last n months by month and
// category. Leading months without spending are trimmed.
func Monthly(payments []*model.Payment, now time.Time, n int) MonthlySummary {
	if n < 1 {
		n = 1
	}
	start := MonthlyWindowStart(now, n)

	months := make([]string, 0, n)
	for i := 0; i < n; i++ {
		months = append(months, MonthKey(start.AddDate(0, i, 0)))
	}

	type key struct {
		month    string
		category model.PaymentCategory
	}
	buckets := make(map[key]*model.MonthlyExpense)
	categories := make(map[model.PaymentCategory]bool)

	for _, p := range payments {
		if p.Category == model.CategorySettlement || p.Date.Before(start) || p.Date.After(now) {
			continue
		}
		k := key{MonthKey(p.Date), p.Category}
		b, ok := buckets[k]
		if !ok {
			b = &model.MonthlyExpense{Month: k.month, Category: k.category}
			buckets[k] = b
		}
		b.Total += p.Amount
		b.Count++
		categories[p.Category] = true
	}

	first := len(months)
	for i, m := range months {
		for k, b := range buckets {
			if k.month == m && b.Total > 0 {
				first = i
				break
			}
		}
		if first != len(months) {
			break
		}
	}
	if first == len(months) {
		first = 0
	}

	summary := MonthlySummary{
		Months:     months[first:],
		Categories: make([]model.PaymentCategory, 0, len(categories)),
		Data:       make([]model.MonthlyExpense, 0, len(buckets)),
	}
	for c := range categories {
		summary.Categories = append(summary.Categories, c)
	}
	sort.Slice(summary.Categories, func(i, j int) bool { return summary.Categories[i] < summary.Categories[j] })

	for _, b := range buckets {
		b.Total = Round2(b.Total)
		summary.Data = append(summary.Data, *b)
	}
	sort.Slice(summary.Data, func(i, j int) bool {
		if summary.Data[i].Month != summary.Data[j].Month {
			return summary.Data[i].Month < summary.Data[j].Month
		}
		return summary.Data[i].Category < summary.Data[j].Category
	})
	return summary
}
