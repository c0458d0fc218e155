// Package faith holds the calendar logic behind the rosary pages and the
// prayer streak.
package faith

import (
	"time"

	"github.com/homestead/homestead/internal/model"
)

var (
	luminousWeek = [7]model.Mystery{
		time.Sunday:    model.MysteryGlorious,
		time.Monday:    model.MysteryJoyful,
		time.Tuesday:   model.MysterySorrowful,
		time.Wednesday: model.MysteryGlorious,
		time.Thursday:  model.MysteryLuminous,
		time.Friday:    model.MysterySorrowful,
		time.Saturday:  model.MysteryJoyful,
	}
	traditionalWeek = [7]model.Mystery{
		time.Sunday:    model.MysteryGlorious,
		time.Monday:    model.MysteryJoyful,
		time.Tuesday:   model.MysterySorrowful,
		time.Wednesday: model.MysteryGlorious,
		time.Thursday:  model.MysteryJoyful,
		time.Friday:    model.MysterySorrowful,
		time.Saturday:  model.MysteryGlorious,
	}
)

// MysteryFor returns the mystery prayed on day.
func MysteryFor(day time.Weekday, luminous bool) model.Mystery {
	if luminous {
		return luminousWeek[day]
	}
	return traditionalWeek[day]
}

// RosaryDay describes what to pray on a given date.
type RosaryDay struct {
	Mystery          model.Mystery          `json:"mystery"`
	TodaysMystery    model.Mystery          `json:"todays_mystery"`
	Luminous         bool                   `json:"luminous"`
	LiturgicalSeason model.LiturgicalSeason `json:"liturgical_season,omitempty"`
}

// Rosary resolves the mystery to show. A requested mystery is honored when it
// is valid and allowed by the luminous setting; otherwise today's is used.
func Rosary(now time.Time, luminous bool, requested string) RosaryDay {
	today := MysteryFor(now.Weekday(), luminous)

	chosen := today
	if m := model.Mystery(requested); m.IsValid() {
		chosen = m
	}
	if !luminous && chosen == model.MysteryLuminous {
		chosen = today
	}

	return RosaryDay{
		Mystery:          chosen,
		TodaysMystery:    today,
		Luminous:         luminous,
		LiturgicalSeason: Season(now),
	}
}
