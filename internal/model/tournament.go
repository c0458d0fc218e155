package model

import "time"

// TournamentStatus is the lifecycle phase of a tournament.
type TournamentStatus string

const (
	StatusSetup      TournamentStatus = "setup"
	StatusGroupStage TournamentStatus = "group_stage"
	StatusBracket    TournamentStatus = "bracket"
	StatusCompleted  TournamentStatus = "completed"
)

// IsValid checks the status against the known set.
func (s TournamentStatus) IsValid() bool {
	switch s {
	case StatusSetup, StatusGroupStage, StatusBracket, StatusCompleted:
		return true
	}
	return false
}

// Tournament limits and defaults.
const (
	DefaultRoundsPerMatch = 3
	MinRoundsPerMatch     = 1
	MaxRoundsPerMatch     = 10
	DefaultMatchSize      = 2
	MinMatchSize          = 2
	MaxMatchSize          = 12
	MaxTournamentName     = 200
)

// Contestant is a player in a tournament.
type Contestant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Seed int    `json:"seed,omitempty"`
	DNF  bool   `json:"dnf"`
}

// Round is one race of a match with per-contestant scores.
type Round struct {
	RoundNumber int            `json:"round_number"`
	Scores      map[string]int `json:"scores"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Match groups contestants racing together over several rounds.
type Match struct {
	ID            string   `json:"id"`
	ContestantIDs []string `json:"contestant_ids"`
	Rounds        []Round  `json:"rounds"`
	Completed     bool     `json:"completed"`
	WinnerID      string   `json:"winner_id,omitempty"`
}

// Totals sums each contestant's scores across all rounds.
func (m *Match) Totals() map[string]int {
	totals := make(map[string]int, len(m.ContestantIDs))
	for _, id := range m.ContestantIDs {
		totals[id] = 0
	}
	for _, r := range m.Rounds {
		for id, s := range r.Scores {
			totals[id] += s
		}
	}
	return totals
}

// Standing is a contestant's position within a group.
type Standing struct {
	ContestantID string `json:"contestant_id"`
	TotalScore   int    `json:"total_score"`
	Position     int    `json:"position"`
}

// Group is a group-stage pool.
type Group struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	ContestantIDs []string   `json:"contestant_ids"`
	Matches       []Match    `json:"matches"`
	Standings     []Standing `json:"standings"`
}

// BracketRound is one round of a knockout bracket. Round 1 is the final.
type BracketRound struct {
	RoundNumber int     `json:"round_number"`
	Name        string  `json:"name"`
	Matches     []Match `json:"matches"`
}

// Bracket is a knockout tree stored as rounds.
type Bracket struct {
	Rounds []BracketRound `json:"rounds"`
}

// Round returns the round with the given number, or nil.
func (b *Bracket) Round(n int) *BracketRound {
	if b == nil {
		return nil
	}
	for i := range b.Rounds {
		if b.Rounds[i].RoundNumber == n {
			return &b.Rounds[i]
		}
	}
	return nil
}

// Tournament is a Mario Kart tournament.
type Tournament struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Status           TournamentStatus `json:"status"`
	Contestants      []Contestant     `json:"contestants"`
	Groups           []Group          `json:"groups"`
	Bracket          *Bracket         `json:"bracket,omitempty"`
	RunnersUpBracket *Bracket         `json:"runners_up_bracket,omitempty"`
	RoundsPerMatch   int              `json:"rounds_per_match"`
	MatchSize        int              `json:"match_size"`
	CreatedBy        string           `json:"created_by"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Contestant returns the contestant with id, or nil.
func (t *Tournament) Contestant(id string) *Contestant {
	for i := range t.Contestants {
		if t.Contestants[i].ID == id {
			return &t.Contestants[i]
		}
	}
	return nil
}
