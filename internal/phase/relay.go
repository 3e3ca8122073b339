package phase

import (
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
)

const relayTurns = 3

// Relay has no separate drawing phase. Players answer during guessing, the
// answers are shown during reveal, and the pair repeats for a fixed number
// of turns.
type Relay struct{ machine }

func (r Relay) Advance(rm *room.Room) mode.Phase {
	if rm.Phase == mode.PhaseReveal {
		return r.AfterReveal(rm)
	}
	return r.NextPhase(rm.Phase)
}

func (r Relay) AfterReveal(rm *room.Room) mode.Phase {
	if st, ok := rm.Sub.(*room.RelayState); ok && st.Turn < st.Turns {
		return mode.PhaseGuessing
	}
	return r.declared(mode.PhaseResults)
}

func (r Relay) Enter(rm *room.Room, p mode.Phase, _ []string) {
	r.enter(rm, p)
	switch p {
	case mode.PhaseCountdown:
		rm.Sub = &room.RelayState{Turns: relayTurns, Scores: make(map[string]int)}
	case mode.PhaseGuessing:
		if st, ok := rm.Sub.(*room.RelayState); ok {
			st.Turn++
		}
	case mode.PhaseReveal:
		st, ok := rm.Sub.(*room.RelayState)
		if !ok {
			return
		}
		for _, s := range rm.RoundSubmissions() {
			st.Scores[s.PlayerID]++
		}
	}
}
