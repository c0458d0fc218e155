package model

import "time"

// RosaryStreak tracks consecutive days of prayer.
type RosaryStreak struct {
	Username   string    `json:"-"`
	Length     int       `json:"length"`
	LastPrayed *string   `json:"last_prayed"`
	UpdatedAt  time.Time `json:"-"`
}

// Mystery is a set of rosary mysteries.
type Mystery string

const (
	MysteryJoyful    Mystery = "freudenreich"
	MysterySorrowful Mystery = "schmerzhaften"
	MysteryGlorious  Mystery = "glorreichen"
	MysteryLuminous  Mystery = "lichtreichen"
)

// IsValid checks the mystery against the known set.
func (m Mystery) IsValid() bool {
	switch m {
	case MysteryJoyful, MysterySorrowful, MysteryGlorious, MysteryLuminous:
		return true
	}
	return false
}

// LiturgicalSeason is the part of the church year relevant to the rosary.
type LiturgicalSeason string

const (
	SeasonNone       LiturgicalSeason = ""
	SeasonEastertide LiturgicalSeason = "eastertide"
	SeasonLent       LiturgicalSeason = "lent"
)

// Verse is a single bible verse.
type Verse struct {
	Book         string `json:"book"`
	Abbreviation string `json:"abbreviation"`
	BookNumber   int    `json:"book_number"`
	Chapter      int    `json:"chapter"`
	Verse        int    `json:"verse"`
	Text         string `json:"text"`
}
