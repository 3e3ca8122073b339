package voting

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func eloConfig() *mode.Config {
	return &mode.Config{
		ID:     "elo",
		Phases: []mode.Phase{mode.PhaseLobby, mode.PhaseDrawing, mode.PhaseVoting, mode.PhaseResults},
		Voting: mode.VotingConfig{Type: mode.VotingElo, StartRating: 1000, KFactor: 32},
	}
}

// judgingRoom has n players who all submitted, in join order.
func judgingRoom(n int) (*room.Room, []room.Submission) {
	r := room.New("r", "CODE", room.KindPublic, "elo", t0)
	r.Phase = mode.PhaseVoting
	r.Round = 1
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("p%d", i)
		r.AddPlayer(room.NewPlayer(id, "", id, t0))
		r.Submissions = append(r.Submissions, room.Submission{PlayerID: id, Round: 1, SubmittedAt: t0.Add(time.Duration(i) * time.Second)})
	}
	return r, r.RoundSubmissions()
}

func TestExpectedBounds(t *testing.T) {
	cases := [][2]float64{{1000, 1000}, {1400, 1000}, {1000, 1400}, {2500, 300}}
	for _, c := range cases {
		e := Expected(c[0], c[1])
		if !(e > 0 && e < 1) {
			t.Fatalf("Expected(%v, %v) = %v, want in (0,1)", c[0], c[1], e)
		}
	}
	assert.InDelta(t, 0.5, Expected(1000, 1000), 1e-12)
}

func TestProcessVote_EqualRatings(t *testing.T) {
	e := NewElo(eloConfig())
	r, subs := judgingRoom(2)
	st := e.Initialize(subs)
	// a third player judges the two drawings
	r.AddPlayer(room.NewPlayer("judge", "", "judge", t0))
	r.Remove("p0")
	r.Remove("p1")

	as := e.PrepareRound(r, st, 1)
	require.Len(t, as, 1)

	res, err := e.ProcessVote(r, st, "judge", "p0")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 1016.0, st.Ratings["p0"])
	assert.Equal(t, 984.0, st.Ratings["p1"])
	assert.Equal(t, 16.0, res.Change.Delta)
}

func TestProcessVote_ZeroSum(t *testing.T) {
	e := NewElo(eloConfig())
	r, subs := judgingRoom(6)
	st := e.Initialize(subs)

	for round := 1; round <= 3; round++ {
		for _, a := range e.PrepareRound(r, st, round) {
			before := st.Ratings[a.Left] + st.Ratings[a.Right]
			res, err := e.ProcessVote(r, st, a.VoterID, a.Right)
			require.NoError(t, err)
			require.True(t, res.Success)
			assert.InDelta(t, before, st.Ratings[a.Left]+st.Ratings[a.Right], 1e-9)
		}
	}
	total := 0.0
	for _, v := range st.Ratings {
		total += v
	}
	assert.InDelta(t, 6000.0, total, 1e-9)
}

func TestProcessVote_Idempotent(t *testing.T) {
	e := NewElo(eloConfig())
	r, subs := judgingRoom(4)
	st := e.Initialize(subs)
	a := e.PrepareRound(r, st, 1)[0]

	first, err := e.ProcessVote(r, st, a.VoterID, a.Left)
	require.NoError(t, err)
	require.True(t, first.Success)
	snapshot := map[string]float64{}
	for k, v := range st.Ratings {
		snapshot[k] = v
	}

	second, err := e.ProcessVote(r, st, a.VoterID, a.Left)
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Equal(t, snapshot, st.Ratings)
}

func TestProcessVote_Rejections(t *testing.T) {
	e := NewElo(eloConfig())
	r, subs := judgingRoom(4)
	st := e.Initialize(subs)
	a := e.PrepareRound(r, st, 1)[0]

	res, err := e.ProcessVote(r, st, "stranger", a.Left)
	require.NoError(t, err, "no assignment is a no-op")
	assert.False(t, res.Success)

	_, err = e.ProcessVote(r, st, a.VoterID, a.VoterID)
	assert.True(t, errors.Is(err, errs.ErrState))
	assert.False(t, st.Voted[a.VoterID])
}

func TestPrepareRound_NeverOwnImage(t *testing.T) {
	e := NewElo(eloConfig())
	for n := 3; n <= 16; n++ {
		r, subs := judgingRoom(n)
		st := e.Initialize(subs)
		for round := 1; round <= st.TotalRounds; round++ {
			for _, a := range e.PrepareRound(r, st, round) {
				if a.Offers(a.VoterID) {
					t.Fatalf("n=%d round=%d: %s was shown their own image", n, round, a.VoterID)
				}
				if a.Left == a.Right {
					t.Fatalf("n=%d: identical pair %v", n, a)
				}
			}
		}
	}
}

func TestPrepareRound_Fairness(t *testing.T) {
	e := NewElo(eloConfig())
	for _, n := range []int{5, 10, 12, 16, 20} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			r, subs := judgingRoom(n)
			st := e.Initialize(subs)
			repeats := 0
			faced := map[[2]string]bool{}
			for round := 1; round <= st.TotalRounds; round++ {
				for _, a := range e.PrepareRound(r, st, round) {
					key := [2]string{a.Left, a.Right}
					if faced[key] {
						repeats++
					}
					faced[key] = true
				}
			}
			f := e.Fairness(st)
			assert.True(t, f.IsFair, "variance %v", f.Variance)
			assert.Less(t, f.Variance, 1.0)
			assert.Zero(t, repeats)
		})
	}
}

func TestPrepareRound_TenSubmissions(t *testing.T) {
	e := NewElo(eloConfig())
	r, subs := judgingRoom(10)
	st := e.Initialize(subs)
	require.Equal(t, 3, st.TotalRounds)

	for round := 1; round <= st.TotalRounds; round++ {
		for _, a := range e.PrepareRound(r, st, round) {
			require.False(t, st.Voted[a.VoterID])
		}
	}
	f := e.Fairness(st)
	assert.Equal(t, 5, f.Min)
	assert.Equal(t, 7, f.Max)
	assert.InDelta(t, 6.0, f.Mean, 1e-9)
	for voter, seen := range st.Seen {
		// three rounds of two fresh images each
		assert.Len(t, seen, 6, voter)
	}
}

func TestRoundComplete(t *testing.T) {
	e := NewElo(eloConfig())
	r, subs := judgingRoom(3)
	st := e.Initialize(subs)
	as := e.PrepareRound(r, st, 1)
	require.Len(t, as, 3)

	assert.False(t, e.RoundComplete(st))
	_, _ = e.ProcessVote(r, st, as[0].VoterID, as[0].Left)
	_, _ = e.ProcessVote(r, st, as[1].VoterID, as[1].Left)
	assert.False(t, e.RoundComplete(st))

	e.DropVoter(st, as[2].VoterID)
	assert.True(t, e.RoundComplete(st))
}

func TestFinale(t *testing.T) {
	e := NewElo(eloConfig())
	r, subs := judgingRoom(4)
	st := e.Initialize(subs)
	st.Ratings["p2"] = 1100
	st.Ratings["p3"] = 1050

	finalists := e.SelectFinalists(st, 3)
	assert.Equal(t, []string{"p2", "p3", "p0"}, finalists)

	_, err := e.ProcessFinaleVote(r, st, "p0", "p1")
	assert.True(t, errors.Is(err, errs.ErrState), "not a finalist")
	_, err = e.ProcessFinaleVote(r, st, "p2", "p2")
	assert.True(t, errors.Is(err, errs.ErrState), "own submission")

	ok, err := e.ProcessFinaleVote(r, st, "p1", "p0")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.ProcessFinaleVote(r, st, "p1", "p2")
	require.NoError(t, err)
	assert.False(t, ok, "re-votes are ignored")
	assert.Equal(t, 1, st.FinaleTally["p0"])
	assert.Zero(t, st.FinaleTally["p2"])
}

func TestRanking(t *testing.T) {
	e := NewElo(eloConfig())
	_, subs := judgingRoom(4)
	st := e.Initialize(subs)
	st.Ratings["p3"] = 1040
	st.Ratings["p1"] = 1040
	st.FinaleTally["p3"] = 2

	got := e.Ranking(subs, st)
	var ids []string
	for i, p := range got {
		assert.Equal(t, i+1, p.Place)
		ids = append(ids, p.PlayerID)
	}
	// p3 beats p1 on finale votes; p0 and p2 tie and keep submission order
	assert.Equal(t, []string{"p3", "p1", "p0", "p2"}, ids)
}

func TestRanking_WithoutVoting(t *testing.T) {
	e := NewElo(eloConfig())
	_, subs := judgingRoom(1)
	got := e.Ranking(subs, nil)
	require.Len(t, got, 1)
	assert.Equal(t, 1000.0, got[0].Rating)
}

func TestNoop(t *testing.T) {
	var e Engine = Noop{}
	r, subs := judgingRoom(3)

	assert.False(t, e.Enabled())
	assert.Nil(t, e.Initialize(subs))
	_, err := e.ProcessVote(r, nil, "p0", "p1")
	assert.True(t, errors.Is(err, errs.ErrState))
	_, err = e.ProcessFinaleVote(r, nil, "p0", "p1")
	assert.Error(t, err)

	got := e.Ranking(subs, nil)
	require.Len(t, got, 3)
	assert.Equal(t, "p0", got[0].PlayerID)
	assert.Equal(t, 3, got[2].Place)
	assert.True(t, e.Fairness(nil).IsFair)
}

func TestFor(t *testing.T) {
	assert.IsType(t, Elo{}, For(eloConfig()))
	assert.IsType(t, Noop{}, For(&mode.Config{}))
}

func TestFairnessStats(t *testing.T) {
	e := NewElo(eloConfig())
	st := newState([]string{"a", "b", "c", "d"}, 1000)
	st.ShowCount = map[string]int{"a": 1, "b": 3, "c": 3, "d": 1}
	f := e.Fairness(st)
	assert.Equal(t, 1, f.Min)
	assert.Equal(t, 3, f.Max)
	assert.InDelta(t, 2.0, f.Mean, 1e-9)
	assert.InDelta(t, 1.0, f.Variance, 1e-9)
	assert.True(t, f.IsFair, "variance equal to the bound is fair")
	assert.False(t, math.IsNaN(f.Variance))
}
