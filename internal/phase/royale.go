package phase

import (
	"slices"

	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
)

// Royale repeats drawing, voting and elimination until a single survivor is
// left, then crowns them.
type Royale struct{ machine }

func (y Royale) Advance(r *room.Room) mode.Phase {
	switch r.Phase {
	case mode.PhaseDrawing:
		if y.HasVoting() && len(r.RoundSubmissions()) >= 2 {
			return mode.PhaseVoting
		}
		return y.declared(mode.PhaseElimination)
	case mode.PhaseVoting:
		return y.declared(mode.PhaseElimination)
	case mode.PhaseElimination:
		return y.AfterElimination(r)
	default:
		return y.NextPhase(r.Phase)
	}
}

// AfterElimination keeps cycling while more than one survivor remains.
func (y Royale) AfterElimination(r *room.Room) mode.Phase {
	if st, ok := r.Sub.(*room.RoyaleState); ok && len(st.Survivors) > 1 {
		return y.declared(mode.PhaseDrawing)
	}
	return y.declared(mode.PhaseWinner)
}

func (y Royale) Submitters(r *room.Room) []string {
	st, ok := r.Sub.(*room.RoyaleState)
	if !ok {
		return y.machine.Submitters(r)
	}
	var ids []string
	for _, id := range st.Survivors {
		if p, ok := r.Player(id); ok && p.Connected() {
			ids = append(ids, id)
		}
	}
	return ids
}

func (y Royale) CanSubmit(r *room.Room, playerID string) error {
	if st, ok := r.Sub.(*room.RoyaleState); ok && !st.IsSurvivor(playerID) {
		return errs.State("eliminated players cannot submit")
	}
	return y.canSubmit(r, playerID)
}

func (y Royale) SubmissionsClosed(r *room.Room) bool {
	return y.submissionsClosed(r, y.Submitters(r))
}

func (y Royale) Enter(r *room.Room, p mode.Phase, ranking []string) {
	y.enter(r, p)
	switch p {
	case mode.PhaseCountdown:
		st := &room.RoyaleState{}
		for _, m := range r.Members() {
			st.Survivors = append(st.Survivors, m.ID)
		}
		r.Sub = st
	case mode.PhaseElimination:
		if st, ok := r.Sub.(*room.RoyaleState); ok {
			eliminate(st, ranking)
		}
	case mode.PhaseWinner:
		if st, ok := r.Sub.(*room.RoyaleState); ok && len(st.Survivors) == 1 {
			st.Winner = st.Survivors[0]
		}
	}
}

// DropPlayer removes a departed player from the survivor list.
func (Royale) DropPlayer(r *room.Room, playerID string) {
	st, ok := r.Sub.(*room.RoyaleState)
	if !ok || !st.IsSurvivor(playerID) {
		return
	}
	st.Survivors = slices.DeleteFunc(st.Survivors, func(id string) bool { return id == playerID })
	st.Eliminated = append(st.Eliminated, playerID)
}

// eliminate knocks out the bottom third of the survivors, at least one and
// never all of them. Survivors missing from ranking did not submit and go
// first, latest joiner first.
func eliminate(st *room.RoyaleState, ranking []string) {
	order := make([]string, 0, len(st.Survivors))
	for _, id := range ranking {
		if st.IsSurvivor(id) && !slices.Contains(order, id) {
			order = append(order, id)
		}
	}
	for _, id := range st.Survivors {
		if !slices.Contains(order, id) {
			order = append(order, id)
		}
	}

	cut := max(1, len(order)/3)
	if cut >= len(order) {
		cut = len(order) - 1
	}
	if cut <= 0 {
		st.LastEliminated = nil
		return
	}
	keep := order[:len(order)-cut]
	out := order[len(order)-cut:]

	st.Survivors = slices.DeleteFunc(st.Survivors, func(id string) bool { return !slices.Contains(keep, id) })
	st.Eliminated = append(st.Eliminated, out...)
	st.LastEliminated = slices.Clone(out)
}
