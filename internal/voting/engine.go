// Package voting ranks submissions through rounds of pairwise votes.
package voting

import (
	"time"

	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
)

type Assignment struct {
	VoterID string
	Left    string
	Right   string
}

func (a Assignment) Offers(imageID string) bool {
	return a.Left == imageID || a.Right == imageID
}

// Change describes the rating movement produced by one vote.
type Change struct {
	WinnerID     string
	LoserID      string
	Delta        float64
	WinnerRating float64
	LoserRating  float64
}

// Result of a vote. Success=false with a Reason is a harmless no-op.
type Result struct {
	Success bool
	Reason  string
	Change  Change
}

type Placement struct {
	PlayerID    string
	Place       int
	Rating      float64
	FinaleVotes int
	SubmittedAt time.Time
}

type Fairness struct {
	IsFair   bool
	Variance float64
	Min      int
	Max      int
	Mean     float64
}

type Engine interface {
	Enabled() bool
	// Initialize returns nil when the engine does not judge.
	Initialize(subs []room.Submission) *State
	Rounds(n int) int
	PrepareRound(r *room.Room, st *State, round int) []Assignment
	ProcessVote(r *room.Room, st *State, voterID, choiceID string) (Result, error)
	RoundComplete(st *State) bool
	// DropVoter forgets the voter's open assignment so the round can finish
	// without them.
	DropVoter(st *State, voterID string)
	SelectFinalists(st *State, n int) []string
	// ProcessFinaleVote reports false for a repeat vote.
	ProcessFinaleVote(r *room.Room, st *State, voterID, choiceID string) (bool, error)
	Ranking(subs []room.Submission, st *State) []Placement
	Fairness(st *State) Fairness
}

func For(cfg *mode.Config) Engine {
	if cfg.Voting.Type == mode.VotingElo {
		return NewElo(cfg)
	}
	return Noop{}
}

// Voters are the connected players of r in join order.
func Voters(r *room.Room) []string {
	var ids []string
	for _, p := range r.Members() {
		if p.Connected() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
