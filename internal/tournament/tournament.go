// Package tournament implements group stages and knockout brackets for
// Mario Kart style races where several contestants compete per match.
package tournament

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/homestead/homestead/internal/model"
)

// Tournament rule violations.
var (
	ErrNameRequired         = errors.New("name is required")
	ErrNameTooLong          = errors.New("name is too long")
	ErrInvalidRounds        = errors.New("rounds per match must be between 1 and 10")
	ErrInvalidMatchSize     = errors.New("match size must be between 2 and 12")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrDuplicateContestant  = errors.New("contestant with this name already exists")
	ErrContestantNotFound   = errors.New("contestant not found")
	ErrNotInSetup           = errors.New("contestants can only be removed during setup")
	ErrNotEnoughContestants = errors.New("need at least 2 contestants to create groups")
	ErrGroupConfigRequired  = errors.New("either number_of_groups, max_users_per_group or group_configs is required")
	ErrGroupNotFound        = errors.New("group not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrScoresRequired       = errors.New("match_id, round_number and scores are required")
	ErrNotGroupStage        = errors.New("can only generate bracket from group stage")
	ErrNoStandings          = errors.New("group has no standings yet")
	ErrNotEnoughQualified   = errors.New("not enough qualified contestants for bracket")
	ErrNoBracket            = errors.New("tournament has no bracket")
)

// NewID generates identifiers for contestants, groups and matches.
var NewID = func() string {
	return ulid.Make().String()
}

// Shuffle randomizes group assignment. Tests replace it for determinism.
var Shuffle = rand.Shuffle

// New builds a tournament in setup with defaults applied.
func New(name, createdBy string, roundsPerMatch, matchSize int, now time.Time) (*model.Tournament, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(name) > model.MaxTournamentName {
		return nil, ErrNameTooLong
	}
	if roundsPerMatch == 0 {
		roundsPerMatch = model.DefaultRoundsPerMatch
	}
	if matchSize == 0 {
		matchSize = model.DefaultMatchSize
	}
	if roundsPerMatch < model.MinRoundsPerMatch || roundsPerMatch > model.MaxRoundsPerMatch {
		return nil, ErrInvalidRounds
	}
	if matchSize < model.MinMatchSize || matchSize > model.MaxMatchSize {
		return nil, ErrInvalidMatchSize
	}
	if createdBy == "" {
		createdBy = "anonymous"
	}

	return &model.Tournament{
		ID:             NewID(),
		Name:           name,
		Status:         model.StatusSetup,
		Contestants:    []model.Contestant{},
		Groups:         []model.Group{},
		RoundsPerMatch: roundsPerMatch,
		MatchSize:      matchSize,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Update holds optional changes to tournament settings.
type Update struct {
	Name           *string
	RoundsPerMatch *int
	Status         *model.TournamentStatus
}

// Apply validates and applies u to t.
func (u Update) Apply(t *model.Tournament) error {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return ErrNameRequired
		}
		if len(name) > model.MaxTournamentName {
			return ErrNameTooLong
		}
		t.Name = name
	}
	if u.RoundsPerMatch != nil {
		if *u.RoundsPerMatch < model.MinRoundsPerMatch || *u.RoundsPerMatch > model.MaxRoundsPerMatch {
			return ErrInvalidRounds
		}
		t.RoundsPerMatch = *u.RoundsPerMatch
	}
	if u.Status != nil {
		if !u.Status.IsValid() {
			return ErrInvalidStatus
		}
		t.Status = *u.Status
	}
	return nil
}

// AddContestant registers a new contestant. During the group stage the
// contestant joins every group and match, with zero scores for rounds that
// were already played.
func AddContestant(t *model.Tournament, name string) (*model.Contestant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	for _, c := range t.Contestants {
		if strings.EqualFold(c.Name, name) {
			return nil, ErrDuplicateContestant
		}
	}

	c := model.Contestant{ID: NewID(), Name: name, Seed: len(t.Contestants) + 1}
	t.Contestants = append(t.Contestants, c)

	if t.Status == model.StatusGroupStage {
		for gi := range t.Groups {
			g := &t.Groups[gi]
			g.ContestantIDs = append(g.ContestantIDs, c.ID)
			for mi := range g.Matches {
				m := &g.Matches[mi]
				m.ContestantIDs = append(m.ContestantIDs, c.ID)
				for ri := range m.Rounds {
					if m.Rounds[ri].Scores == nil {
						m.Rounds[ri].Scores = map[string]int{}
					}
					m.Rounds[ri].Scores[c.ID] = 0
				}
			}
			g.Standings = append(g.Standings, model.Standing{
				ContestantID: c.ID,
				Position:     len(g.Standings) + 1,
			})
		}
	}

	return &t.Contestants[len(t.Contestants)-1], nil
}

// RemoveContestant deletes a contestant while the tournament is in setup.
func RemoveContestant(t *model.Tournament, id string) error {
	if t.Status != model.StatusSetup {
		return ErrNotInSetup
	}
	idx := slices.IndexFunc(t.Contestants, func(c model.Contestant) bool { return c.ID == id })
	if idx < 0 {
		return ErrContestantNotFound
	}
	t.Contestants = slices.Delete(t.Contestants, idx, idx+1)
	return nil
}

// SetDNF marks whether a contestant did not finish.
func SetDNF(t *model.Tournament, id string, dnf bool) error {
	c := t.Contestant(id)
	if c == nil {
		return ErrContestantNotFound
	}
	c.DNF = dnf
	return nil
}

// GroupConfig assigns contestants to a named group explicitly.
type GroupConfig struct {
	Name          string
	ContestantIDs []string
}

// GroupOptions selects one of the group assignment strategies. The first set
// field wins, in field order.
type GroupOptions struct {
	Configs          []GroupConfig
	NumberOfGroups   int
	MaxUsersPerGroup int
}

// CreateGroups replaces the groups of t and moves it into the group stage.
// Each group with at least two members gets one match containing everyone.
func CreateGroups(t *model.Tournament, opts GroupOptions) error {
	if len(t.Contestants) < 2 {
		return ErrNotEnoughContestants
	}

	var members [][]string
	var names []string

	switch {
	case len(opts.Configs) > 0:
		for _, cfg := range opts.Configs {
			for _, id := range cfg.ContestantIDs {
				if t.Contestant(id) == nil {
					return fmt.Errorf("%w: %s", ErrContestantNotFound, id)
				}
			}
			members = append(members, slices.Clone(cfg.ContestantIDs))
			names = append(names, cfg.Name)
		}
	case opts.NumberOfGroups > 0:
		ids := shuffledIDs(t)
		size := ceilDiv(len(ids), opts.NumberOfGroups)
		members = chunk(ids, size)
	case opts.MaxUsersPerGroup > 0:
		ids := shuffledIDs(t)
		members = chunk(ids, opts.MaxUsersPerGroup)
	default:
		return ErrGroupConfigRequired
	}

	groups := make([]model.Group, 0, len(members))
	for i, ids := range members {
		name := fmt.Sprintf("Group %c", 'A'+i)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		g := model.Group{
			ID:            NewID(),
			Name:          name,
			ContestantIDs: ids,
			Matches:       []model.Match{},
			Standings:     make([]model.Standing, 0, len(ids)),
		}
		if len(ids) >= 2 {
			g.Matches = append(g.Matches, model.Match{
				ID:            NewID(),
				ContestantIDs: slices.Clone(ids),
				Rounds:        []model.Round{},
			})
		}
		for pos, id := range ids {
			g.Standings = append(g.Standings, model.Standing{ContestantID: id, Position: pos + 1})
		}
		groups = append(groups, g)
	}

	t.Groups = groups
	t.Status = model.StatusGroupStage
	return nil
}

func shuffledIDs(t *model.Tournament) []string {
	ids := make([]string, len(t.Contestants))
	for i, c := range t.Contestants {
		ids[i] = c.ID
	}
	Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}

func chunk(ids []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end:end])
	}
	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// upsertRound sets the scores for roundNumber, replacing an existing entry.
func upsertRound(m *model.Match, roundNumber int, scores map[string]int, now time.Time) {
	completed := now
	for i := range m.Rounds {
		if m.Rounds[i].RoundNumber == roundNumber {
			m.Rounds[i].Scores = scores
			m.Rounds[i].CompletedAt = &completed
			return
		}
	}
	m.Rounds = append(m.Rounds, model.Round{RoundNumber: roundNumber, Scores: scores, CompletedAt: &completed})
	sort.Slice(m.Rounds, func(i, j int) bool { return m.Rounds[i].RoundNumber < m.Rounds[j].RoundNumber })
}

// RecordGroupScores stores one round of a group match and recomputes the
// group standings.
func RecordGroupScores(t *model.Tournament, groupID, matchID string, roundNumber int, scores map[string]int, now time.Time) error {
	if matchID == "" || roundNumber < 1 || len(scores) == 0 {
		return ErrScoresRequired
	}

	gi := slices.IndexFunc(t.Groups, func(g model.Group) bool { return g.ID == groupID })
	if gi < 0 {
		return ErrGroupNotFound
	}
	g := &t.Groups[gi]

	mi := slices.IndexFunc(g.Matches, func(m model.Match) bool { return m.ID == matchID })
	if mi < 0 {
		return ErrMatchNotFound
	}
	m := &g.Matches[mi]

	upsertRound(m, roundNumber, scores, now)
	m.Completed = len(m.Rounds) >= t.RoundsPerMatch
	g.Standings = Standings(g)
	return nil
}

// Standings totals every score across the group's matches, ranked highest first.
// Ties keep the group's member order.
func Standings(g *model.Group) []model.Standing {
	totals := make(map[string]int, len(g.ContestantIDs))
	order := slices.Clone(g.ContestantIDs)
	for _, id := range order {
		totals[id] = 0
	}
	for _, m := range g.Matches {
		for id, s := range m.Totals() {
			if _, ok := totals[id]; !ok {
				order = append(order, id)
			}
			totals[id] += s
		}
	}

	out := make([]model.Standing, 0, len(order))
	for _, id := range order {
		out = append(out, model.Standing{ContestantID: id, TotalScore: totals[id]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}
