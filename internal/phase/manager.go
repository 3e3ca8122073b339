// Package phase holds the per-mode phase state machines.
package phase

import (
	"slices"
	"time"

	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
)

// Fallbacks apply when a mode does not mention a phase in its timers. The
// lobby never has a phase clock; its countdown belongs to the lobby policy.
var fallbackTimers = map[mode.Phase]time.Duration{
	mode.PhaseCountdown:   5 * time.Second,
	mode.PhaseDrawing:     90 * time.Second,
	mode.PhaseGuessing:    60 * time.Second,
	mode.PhaseReveal:      8 * time.Second,
	mode.PhaseVoting:      20 * time.Second,
	mode.PhaseFinale:      20 * time.Second,
	mode.PhaseResults:     15 * time.Second,
	mode.PhaseElimination: 6 * time.Second,
	mode.PhaseWinner:      10 * time.Second,
}

type Manager interface {
	Phases() []mode.Phase
	// NextPhase is the plain linear successor of current.
	NextPhase(current mode.Phase) mode.Phase
	// TimerDuration returns ok=false when the phase ends only on its
	// completion predicate.
	TimerDuration(p mode.Phase) (time.Duration, bool)
	CanTransitionTo(r *room.Room, target mode.Phase) bool
	// Advance picks the phase that follows r's current one, taking the
	// mode's branches into account.
	Advance(r *room.Room) mode.Phase

	HasVoting() bool
	HasFinale() bool
	VotingRounds(n int) int
	FinalistCount(n int) int

	IsSubmissionPhase(p mode.Phase) bool
	// Submitters lists the players expected to submit this round.
	Submitters(r *room.Room) []string
	CanSubmit(r *room.Room, playerID string) error
	SubmissionsClosed(r *room.Room) bool

	// Enter updates the mode sub-state as r moves into p. ranking lists
	// player ids best first and is only consulted by phases that need it.
	Enter(r *room.Room, p mode.Phase, ranking []string)
}

// PlayerDropper is implemented by machines whose sub-state tracks players
// individually and must forget one that leaves mid-game.
type PlayerDropper interface {
	DropPlayer(r *room.Room, playerID string)
}

// For picks the machine matching the shape of cfg's phase list.
func For(cfg *mode.Config) Manager {
	m := machine{cfg: cfg}
	switch {
	case cfg.HasPhase(mode.PhaseElimination):
		return Royale{m}
	case cfg.HasPhase(mode.PhaseGuessing) && !cfg.HasPhase(mode.PhaseDrawing):
		return Relay{m}
	default:
		return Standard{m}
	}
}

// machine is the linear walk every variant starts from.
type machine struct {
	cfg *mode.Config
}

func (m machine) Phases() []mode.Phase { return slices.Clone(m.cfg.Phases) }

func (m machine) NextPhase(current mode.Phase) mode.Phase {
	i := slices.Index(m.cfg.Phases, current)
	if i < 0 || i == len(m.cfg.Phases)-1 {
		return mode.PhaseLobby
	}
	return m.cfg.Phases[i+1]
}

func (m machine) TimerDuration(p mode.Phase) (time.Duration, bool) {
	if p == mode.PhaseLobby {
		return 0, false
	}
	if d, clocked, found := m.cfg.PhaseTimer(p); found {
		return d, clocked
	}
	d, ok := fallbackTimers[p]
	return d, ok
}

func (m machine) CanTransitionTo(_ *room.Room, target mode.Phase) bool {
	return m.cfg.HasPhase(target)
}

func (m machine) HasVoting() bool {
	return m.cfg.Voting.Type == mode.VotingElo && m.cfg.HasPhase(mode.PhaseVoting)
}

func (m machine) HasFinale() bool {
	return m.HasVoting() && m.cfg.Voting.Finale && m.cfg.HasPhase(mode.PhaseFinale)
}

func (m machine) VotingRounds(n int) int  { return m.cfg.VotingRounds(n) }
func (m machine) FinalistCount(n int) int { return m.cfg.FinalistCount(n) }

func (machine) IsSubmissionPhase(p mode.Phase) bool {
	return p == mode.PhaseDrawing || p == mode.PhaseGuessing
}

func (machine) Submitters(r *room.Room) []string {
	var ids []string
	for _, p := range r.Members() {
		if p.Connected() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (m machine) canSubmit(r *room.Room, playerID string) error {
	if !m.IsSubmissionPhase(r.Phase) {
		return errs.State("submissions are closed")
	}
	if !r.IsMember(playerID) {
		return errs.State("only players can submit")
	}
	if _, done := r.SubmissionFor(playerID); done {
		return errs.State("already submitted this round")
	}
	return nil
}

func (m machine) CanSubmit(r *room.Room, playerID string) error {
	return m.canSubmit(r, playerID)
}

func (m machine) submissionsClosed(r *room.Room, submitters []string) bool {
	if !m.IsSubmissionPhase(r.Phase) {
		return true
	}
	for _, id := range submitters {
		if _, ok := r.SubmissionFor(id); !ok {
			return false
		}
	}
	return true
}

func (m machine) SubmissionsClosed(r *room.Room) bool {
	return m.submissionsClosed(r, m.Submitters(r))
}

func (m machine) enter(r *room.Room, p mode.Phase) {
	if m.IsSubmissionPhase(p) {
		r.Round++
	}
}

func (m machine) Enter(r *room.Room, p mode.Phase, _ []string) { m.enter(r, p) }

// declared returns the first candidate the mode declares, or lobby.
func (m machine) declared(candidates ...mode.Phase) mode.Phase {
	for _, p := range candidates {
		if m.cfg.HasPhase(p) {
			return p
		}
	}
	return mode.PhaseLobby
}
