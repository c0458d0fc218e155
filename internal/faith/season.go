package faith

import (
	"time"

	"github.com/homestead/homestead/internal/model"
)

// Easter returns Easter Sunday of year in the Gregorian calendar.
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// Season reports whether date falls in Eastertide (Easter Sunday through
// Pentecost) or Lent (Ash Wednesday through Holy Saturday). Only the calendar
// date of t matters.
func Season(t time.Time) model.LiturgicalSeason {
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	easter := Easter(t.Year())

	switch {
	case !date.Before(easter) && !date.After(easter.AddDate(0, 0, 49)):
		return model.SeasonEastertide
	case !date.Before(easter.AddDate(0, 0, -46)) && !date.After(easter.AddDate(0, 0, -1)):
		return model.SeasonLent
	}
	return model.SeasonNone
}
