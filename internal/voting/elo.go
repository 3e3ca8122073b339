package voting

import (
	"math"
	"slices"

	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
)

// Expected is the probability the logistic Elo model gives the winner.
func Expected(winner, loser float64) float64 {
	return 1 / (1 + math.Pow(10, (loser-winner)/400))
}

// Delta is the rating the winner gains and the loser gives up.
func Delta(k, winner, loser float64) float64 {
	return k * (1 - Expected(winner, loser))
}

type Elo struct {
	cfg *mode.Config
}

func NewElo(cfg *mode.Config) Elo { return Elo{cfg: cfg} }

func (Elo) Enabled() bool { return true }

func (e Elo) startRating() float64 {
	if e.cfg.Voting.StartRating > 0 {
		return e.cfg.Voting.StartRating
	}
	return mode.DefaultStartRating
}

func (e Elo) kFactor() float64 {
	if e.cfg.Voting.KFactor > 0 {
		return e.cfg.Voting.KFactor
	}
	return mode.DefaultKFactor
}

func (e Elo) Initialize(subs []room.Submission) *State {
	images := make([]string, 0, len(subs))
	for _, s := range subs {
		images = append(images, s.PlayerID)
	}
	st := newState(images, e.startRating())
	st.TotalRounds = e.Rounds(len(st.order))
	return st
}

func (e Elo) Rounds(n int) int { return e.cfg.VotingRounds(n) }

// PrepareRound hands every connected voter two images other than their own.
// The pair is chosen by, in order: fewest images the voter has already
// seen, not a repeat matchup, lowest combined show count, lowest single show
// count, then submission order. Voters are rotated each round so the same
// player does not always pick first.
func (e Elo) PrepareRound(r *room.Room, st *State, round int) []Assignment {
	st.Round = round
	clear(st.Assignments)
	clear(st.Voted)

	voters := Voters(r)
	if len(voters) == 0 || len(st.order) < 2 {
		return nil
	}
	k := (round - 1) % len(voters)
	if k < 0 {
		k = 0
	}
	voters = slices.Concat(voters[k:], voters[:k])

	out := make([]Assignment, 0, len(voters))
	for _, v := range voters {
		a, ok := st.pick(v)
		if !ok {
			continue
		}
		st.markShown(v, a.Left, a.Right)
		st.Assignments[v] = a
		out = append(out, a)
	}
	return out
}

type pairKey struct {
	seen, repeat, sum, peak, i, j int
}

func (k pairKey) less(o pairKey) bool {
	a := [...]int{k.seen, k.repeat, k.sum, k.peak, k.i, k.j}
	b := [...]int{o.seen, o.repeat, o.sum, o.peak, o.i, o.j}
	return slices.Compare(a[:], b[:]) < 0
}

func (st *State) pick(voter string) (Assignment, bool) {
	var (
		best  pairKey
		found bool
		out   Assignment
	)
	for i, a := range st.order {
		if a == voter {
			continue
		}
		for j := i + 1; j < len(st.order); j++ {
			b := st.order[j]
			if b == voter {
				continue
			}
			key := pairKey{
				sum:  st.ShowCount[a] + st.ShowCount[b],
				peak: max(st.ShowCount[a], st.ShowCount[b]),
				i:    i,
				j:    j,
			}
			if st.seen(voter, a) {
				key.seen++
			}
			if st.seen(voter, b) {
				key.seen++
			}
			if st.Matchups[a][b] {
				key.repeat = 1
			}
			if !found || key.less(best) {
				best, found = key, true
				out = Assignment{VoterID: voter, Left: a, Right: b}
			}
		}
	}
	return out, found
}

func (e Elo) ProcessVote(_ *room.Room, st *State, voterID, choiceID string) (Result, error) {
	if st == nil {
		return Result{}, errs.State("no voting in progress")
	}
	a, ok := st.Assignments[voterID]
	if !ok {
		return Result{Reason: "no assignment this round"}, nil
	}
	if st.Voted[voterID] {
		return Result{Reason: "already voted this round"}, nil
	}
	if !a.Offers(choiceID) {
		return Result{}, errs.State("choice %q is not part of your matchup", choiceID)
	}

	winner, loser := a.Left, a.Right
	if choiceID == a.Right {
		winner, loser = a.Right, a.Left
	}
	delta := Delta(e.kFactor(), st.Ratings[winner], st.Ratings[loser])
	st.Ratings[winner] += delta
	st.Ratings[loser] -= delta
	st.Voted[voterID] = true

	return Result{
		Success: true,
		Change: Change{
			WinnerID:     winner,
			LoserID:      loser,
			Delta:        delta,
			WinnerRating: st.Ratings[winner],
			LoserRating:  st.Ratings[loser],
		},
	}, nil
}

func (Elo) RoundComplete(st *State) bool {
	if st == nil {
		return true
	}
	for voter := range st.Assignments {
		if !st.Voted[voter] {
			return false
		}
	}
	return true
}

func (Elo) DropVoter(st *State, voterID string) {
	if st == nil || st.Voted[voterID] {
		return
	}
	delete(st.Assignments, voterID)
}

// SelectFinalists records the n best-rated images as the finale field.
func (Elo) SelectFinalists(st *State, n int) []string {
	if st == nil {
		return nil
	}
	ranked := st.Images()
	slices.SortStableFunc(ranked, func(a, b string) int {
		return cmpDesc(st.Ratings[a], st.Ratings[b])
	})
	st.Finalists = ranked[:min(n, len(ranked))]
	clear(st.FinaleTally)
	clear(st.FinaleVoters)
	clear(st.Assignments)
	return slices.Clone(st.Finalists)
}

func (Elo) ProcessFinaleVote(_ *room.Room, st *State, voterID, choiceID string) (bool, error) {
	if st == nil || len(st.Finalists) == 0 {
		return false, errs.State("no finale in progress")
	}
	if !slices.Contains(st.Finalists, choiceID) {
		return false, errs.State("%q is not a finalist", choiceID)
	}
	if voterID == choiceID {
		return false, errs.State("cannot vote for your own submission")
	}
	if st.FinaleVoters[voterID] {
		return false, nil
	}
	st.FinaleVoters[voterID] = true
	st.FinaleTally[choiceID]++
	return true, nil
}

// Ranking orders by rating, then finale votes, then submission order.
func (e Elo) Ranking(subs []room.Submission, st *State) []Placement {
	out := placements(subs)
	if st == nil {
		for i := range out {
			out[i].Rating = e.startRating()
		}
		return number(out)
	}
	for i := range out {
		out[i].Rating = st.Ratings[out[i].PlayerID]
		out[i].FinaleVotes = st.FinaleTally[out[i].PlayerID]
	}
	slices.SortStableFunc(out, func(a, b Placement) int {
		if c := cmpDesc(a.Rating, b.Rating); c != 0 {
			return c
		}
		return b.FinaleVotes - a.FinaleVotes
	})
	return number(out)
}

func (e Elo) Fairness(st *State) Fairness {
	if st == nil || len(st.order) == 0 {
		return Fairness{IsFair: true}
	}
	bound := e.cfg.Voting.FairnessBound
	if bound <= 0 {
		bound = mode.DefaultFairnessBound
	}

	f := Fairness{Min: math.MaxInt}
	total := 0
	for _, id := range st.order {
		c := st.ShowCount[id]
		total += c
		f.Min = min(f.Min, c)
		f.Max = max(f.Max, c)
	}
	f.Mean = float64(total) / float64(len(st.order))
	for _, id := range st.order {
		d := float64(st.ShowCount[id]) - f.Mean
		f.Variance += d * d
	}
	f.Variance /= float64(len(st.order))
	f.IsFair = f.Variance <= bound
	return f
}

func cmpDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

// placements lists one entry per submitting player, first submission wins.
func placements(subs []room.Submission) []Placement {
	out := make([]Placement, 0, len(subs))
	seen := make(map[string]bool, len(subs))
	for _, s := range subs {
		if seen[s.PlayerID] {
			continue
		}
		seen[s.PlayerID] = true
		out = append(out, Placement{PlayerID: s.PlayerID, SubmittedAt: s.SubmittedAt})
	}
	return out
}

func number(ps []Placement) []Placement {
	for i := range ps {
		ps[i].Place = i + 1
	}
	return ps
}
