package dto

import "github.com/homestead/homestead/internal/model"

// CreateTournamentRequest is the body of tournament create.
type CreateTournamentRequest struct {
	Name           string `json:"name"`
	RoundsPerMatch int    `json:"rounds_per_match"`
	MatchSize      int    `json:"match_size"`
}

// UpdateTournamentRequest changes tournament settings. Absent fields are kept.
type UpdateTournamentRequest struct {
	Name           *string                 `json:"name"`
	RoundsPerMatch *int                    `json:"rounds_per_match"`
	Status         *model.TournamentStatus `json:"status"`
}

// ContestantRequest adds a contestant.
type ContestantRequest struct {
	Name string `json:"name"`
}

// DNFRequest toggles the did-not-finish flag.
type DNFRequest struct {
	DNF *bool `json:"dnf"`
}

// GroupConfigRequest assigns contestants to a named group.
type GroupConfigRequest struct {
	Name          string   `json:"name"`
	ContestantIDs []string `json:"contestant_ids"`
}

// GroupsRequest selects how groups are formed.
type GroupsRequest struct {
	GroupConfigs     []GroupConfigRequest `json:"group_configs"`
	NumberOfGroups   int                  `json:"number_of_groups"`
	MaxUsersPerGroup int                  `json:"max_users_per_group"`
}

// GroupScoresRequest records one round of a group match.
type GroupScoresRequest struct {
	MatchID     string         `json:"match_id"`
	RoundNumber int            `json:"round_number"`
	Scores      map[string]int `json:"scores"`
}

// BracketRequest generates the knockout bracket.
type BracketRequest struct {
	TopNFromEachGroup int `json:"top_n_from_each_group"`
}

// BracketScoresRequest records one round of a bracket match.
type BracketScoresRequest struct {
	RoundNumber int            `json:"round_number"`
	Scores      map[string]int `json:"scores"`
}

// TournamentResponse wraps a tournament.
type TournamentResponse struct {
	Tournament *model.Tournament `json:"tournament"`
}

// ContestantResponse returns the tournament with the new contestant.
type ContestantResponse struct {
	Tournament *model.Tournament `json:"tournament"`
	Contestant *model.Contestant `json:"contestant"`
}

// TournamentListResponse lists tournaments.
type TournamentListResponse struct {
	Tournaments []*model.Tournament `json:"tournaments"`
}
