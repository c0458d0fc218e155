package tournament

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/homestead/homestead/internal/model"
)

// DefaultTopN is how many contestants per group advance by default.
const DefaultTopN = 2

// mainRoundName names main bracket rounds counted back from the final.
func mainRoundName(n int) string {
	switch n {
	case 1:
		return "Final"
	case 2:
		return "Semi-Finals"
	case 3:
		return "Quarter-Finals"
	case 4:
		return "Round of 16"
	case 5:
		return "Round of 32"
	}
	return fmt.Sprintf("Round %d", n)
}

func consolationRoundName(n int) string {
	switch n {
	case 1:
		return "3rd Place Match"
	case 2:
		return "Consolation Semi-Finals"
	case 3:
		return "Consolation Quarter-Finals"
	}
	return fmt.Sprintf("Consolation Round %d", n)
}

// Size returns the smallest power of matchSize that holds n contestants and
// its exponent, the number of rounds.
func Size(n, matchSize int) (size, rounds int) {
	size = 1
	for size < n {
		size *= matchSize
		rounds++
	}
	if rounds == 0 {
		return matchSize, 1
	}
	return size, rounds
}

// buildBracket lays out a bracket for ids. The first-played round is filled
// sequentially, later rounds get empty matches.
func buildBracket(ids []string, matchSize int, name func(int) string) *model.Bracket {
	size, total := Size(len(ids), matchSize)

	b := &model.Bracket{Rounds: make([]model.BracketRound, 0, total)}
	for rn := 1; rn <= total; rn++ {
		matches := size / matchSize
		if rn < total {
			matches = pow(matchSize, rn-1)
		}
		round := model.BracketRound{RoundNumber: rn, Name: name(rn), Matches: make([]model.Match, 0, matches)}
		for i := 0; i < matches; i++ {
			m := model.Match{ID: NewID(), ContestantIDs: []string{}, Rounds: []model.Round{}}
			if rn == total {
				for j := 0; j < matchSize; j++ {
					if idx := i*matchSize + j; idx < len(ids) {
						m.ContestantIDs = append(m.ContestantIDs, ids[idx])
					}
				}
			}
			round.Matches = append(round.Matches, m)
		}
		b.Rounds = append(b.Rounds, round)
	}
	return b
}

func pow(base, exp int) int {
	out := 1
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}

// Qualifiers splits group members into bracket qualifiers and the rest. The
// top n of each group qualify, interleaved by position: every group winner
// first, then every runner-up, and so on.
func Qualifiers(groups []model.Group, n int) (qualified, rest []string, err error) {
	byPosition := make([][]string, 0, n)
	for _, g := range groups {
		if len(g.Standings) == 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoStandings, g.Name)
		}
		standings := make([]model.Standing, len(g.Standings))
		copy(standings, g.Standings)
		sort.SliceStable(standings, func(i, j int) bool { return standings[i].Position < standings[j].Position })

		for i, s := range standings {
			if i < n {
				for len(byPosition) <= i {
					byPosition = append(byPosition, nil)
				}
				byPosition[i] = append(byPosition[i], s.ContestantID)
			} else {
				rest = append(rest, s.ContestantID)
			}
		}
	}
	for _, ids := range byPosition {
		qualified = append(qualified, ids...)
	}
	return qualified, rest, nil
}

// GenerateBracket moves a tournament from the group stage into the knockout
// stage. A runners-up bracket is created when enough contestants missed out.
func GenerateBracket(t *model.Tournament, topN int) error {
	if t.Status != model.StatusGroupStage {
		return ErrNotGroupStage
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	matchSize := effectiveMatchSize(t.MatchSize)

	qualified, rest, err := Qualifiers(t.Groups, topN)
	if err != nil {
		return err
	}
	if len(qualified) < matchSize {
		return fmt.Errorf("%w: need at least %d", ErrNotEnoughQualified, matchSize)
	}

	t.Bracket = buildBracket(qualified, matchSize, mainRoundName)
	t.RunnersUpBracket = nil
	if len(rest) >= matchSize {
		t.RunnersUpBracket = buildBracket(rest, matchSize, consolationRoundName)
	}
	t.Status = model.StatusBracket
	return nil
}

type matchLocation struct {
	bracket   *model.Bracket
	roundIdx  int
	matchIdx  int
	runnersUp bool
}

func findBracketMatch(t *model.Tournament, matchID string) (matchLocation, bool) {
	for _, candidate := range []struct {
		b         *model.Bracket
		runnersUp bool
	}{{t.Bracket, false}, {t.RunnersUpBracket, true}} {
		if candidate.b == nil {
			continue
		}
		for ri := range candidate.b.Rounds {
			for mi := range candidate.b.Rounds[ri].Matches {
				if candidate.b.Rounds[ri].Matches[mi].ID == matchID {
					return matchLocation{candidate.b, ri, mi, candidate.runnersUp}, true
				}
			}
		}
	}
	return matchLocation{}, false
}

// Ranking orders a match's contestants by total score, highest first. Ties
// keep the match's contestant order.
func Ranking(m *model.Match) []string {
	totals := m.Totals()
	ids := make([]string, 0, len(totals))
	seen := make(map[string]bool, len(totals))
	for _, id := range m.ContestantIDs {
		ids = append(ids, id)
		seen[id] = true
	}
	extra := make([]string, 0)
	for id := range totals {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	ids = append(ids, extra...)

	sort.SliceStable(ids, func(i, j int) bool { return totals[ids[i]] > totals[ids[j]] })
	return ids
}

// RecordBracketScores stores one round of a bracket match. Once the match has
// all its rounds the winner advances. Second place of a first-played main
// round drops into the first-played round of the runners-up bracket. The
// tournament completes when the final and the third place match are decided.
func RecordBracketScores(t *model.Tournament, matchID string, roundNumber int, scores map[string]int, now time.Time) error {
	if roundNumber < 1 || len(scores) == 0 {
		return ErrScoresRequired
	}
	if t.Bracket == nil {
		return ErrNoBracket
	}

	loc, ok := findBracketMatch(t, matchID)
	if !ok {
		return ErrMatchNotFound
	}
	round := &loc.bracket.Rounds[loc.roundIdx]
	m := &round.Matches[loc.matchIdx]

	upsertRound(m, roundNumber, scores, now)

	if len(m.Rounds) >= t.RoundsPerMatch {
		m.Completed = true
		matchSize := effectiveMatchSize(t.MatchSize)
		ranking := Ranking(m)
		if len(ranking) > 0 {
			m.WinnerID = ranking[0]
			advance(loc.bracket, round.RoundNumber, loc.matchIdx, m.WinnerID, matchSize)
		}
		firstPlayed := loc.roundIdx == len(loc.bracket.Rounds)-1
		if !loc.runnersUp && firstPlayed && len(ranking) > 1 {
			dropDown(t.RunnersUpBracket, loc.matchIdx, ranking[1], matchSize)
		}
	}

	if isComplete(t) {
		t.Status = model.StatusCompleted
	}
	return nil
}

func effectiveMatchSize(n int) int {
	if n < model.MinMatchSize {
		return model.DefaultMatchSize
	}
	return n
}

func advance(b *model.Bracket, roundNumber, matchIdx int, winner string, matchSize int) {
	if roundNumber <= 1 {
		return
	}
	next := b.Round(roundNumber - 1)
	if next == nil {
		return
	}
	target := matchIdx / matchSize
	if target < len(next.Matches) {
		addContestant(&next.Matches[target], winner, matchSize)
	}
}

// dropDown places a main bracket runner-up into the runners-up bracket's
// first-played round.
func dropDown(b *model.Bracket, matchIdx int, id string, matchSize int) {
	if b == nil || len(b.Rounds) == 0 {
		return
	}
	first := &b.Rounds[len(b.Rounds)-1]
	target := matchIdx / matchSize
	if target < len(first.Matches) {
		addContestant(&first.Matches[target], id, matchSize)
	}
}

// addContestant adds id to m unless it is already there or m is full.
func addContestant(m *model.Match, id string, capacity int) {
	if slices.Contains(m.ContestantIDs, id) || len(m.ContestantIDs) >= capacity {
		return
	}
	m.ContestantIDs = append(m.ContestantIDs, id)
}

func isComplete(t *model.Tournament) bool {
	final := t.Bracket.Round(1)
	if final == nil || len(final.Matches) == 0 || !final.Matches[0].Completed {
		return false
	}
	third := t.RunnersUpBracket.Round(1)
	return third == nil || len(third.Matches) == 0 || third.Matches[0].Completed
}
