package voting

import (
	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
)

// Noop serves modes without judging. It ranks by submission order and
// refuses every vote, so callers never need to branch on the mode.
type Noop struct{}

var errDisabled = errs.State("voting is disabled for this mode")

func (Noop) Enabled() bool                                     { return false }
func (Noop) Initialize([]room.Submission) *State               { return nil }
func (Noop) Rounds(int) int                                    { return 0 }
func (Noop) PrepareRound(*room.Room, *State, int) []Assignment { return nil }
func (Noop) RoundComplete(*State) bool                         { return true }
func (Noop) DropVoter(*State, string)                          {}
func (Noop) SelectFinalists(*State, int) []string              { return nil }
func (Noop) Fairness(*State) Fairness                          { return Fairness{IsFair: true} }

func (Noop) ProcessVote(*room.Room, *State, string, string) (Result, error) {
	return Result{Reason: "voting is disabled"}, errDisabled
}

func (Noop) ProcessFinaleVote(*room.Room, *State, string, string) (bool, error) {
	return false, errDisabled
}

func (Noop) Ranking(subs []room.Submission, _ *State) []Placement {
	return number(placements(subs))
}
