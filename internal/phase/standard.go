package phase

import (
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
)

// Standard walks lobby, countdown, drawing, then optionally voting and
// finale before results.
type Standard struct{ machine }

func (s Standard) Advance(r *room.Room) mode.Phase {
	switch r.Phase {
	case mode.PhaseDrawing:
		return s.AfterDrawing(r)
	case mode.PhaseVoting:
		return s.AfterVoting(r)
	case mode.PhaseFinale:
		return s.declared(mode.PhaseResults)
	default:
		return s.NextPhase(r.Phase)
	}
}

// AfterDrawing goes to voting when there is something to compare.
func (s Standard) AfterDrawing(r *room.Room) mode.Phase {
	if s.HasVoting() && len(r.RoundSubmissions()) >= 2 {
		return mode.PhaseVoting
	}
	return s.declared(mode.PhaseResults)
}

func (s Standard) AfterVoting(*room.Room) mode.Phase {
	if s.HasFinale() {
		return mode.PhaseFinale
	}
	return s.declared(mode.PhaseResults)
}
