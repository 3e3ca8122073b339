package room

import (
	"slices"
	"time"

	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
)

type Kind string

const (
	KindPublic  Kind = "public"
	KindPrivate Kind = "private"
)

type Submission struct {
	PlayerID    string
	Payload     []byte
	Round       int
	SubmittedAt time.Time
}

type Vote struct {
	VoterID  string
	ChoiceID string
	Round    int
	Finale   bool
	CastAt   time.Time
}

// Timer is the room's record of an outstanding scheduled event. The
// scheduler owns the clock; the room only remembers which generation is live.
type Timer struct {
	Gen      uint64
	Phase    mode.Phase
	Duration time.Duration
	Deadline time.Time
}

// Room is one running game instance. It is not safe for concurrent use; the
// engine mutates it from a single goroutine.
type Room struct {
	ID        string
	Code      string
	Kind      Kind
	ModeID    string
	HostID    string
	CreatedAt time.Time

	Phase mode.Phase
	Round int
	// Gen increases on every phase or voting-round change so that timers
	// issued for an older state can be recognised.
	Gen uint64

	Players    map[string]*Player
	Spectators map[string]*Player
	order      []string

	Submissions []Submission
	Votes       []Vote

	LobbyTimer *Timer
	PhaseTimer *Timer
	lobbyGen   uint64

	// Interrupted is set when the last member leaves mid-game.
	Interrupted bool

	Sub SubState
}

func New(id, code string, kind Kind, modeID string, now time.Time) *Room {
	return &Room{
		ID:         id,
		Code:       code,
		Kind:       kind,
		ModeID:     modeID,
		CreatedAt:  now,
		Phase:      mode.PhaseLobby,
		Players:    make(map[string]*Player),
		Spectators: make(map[string]*Player),
	}
}

func (r *Room) Player(id string) (*Player, bool) {
	p, ok := r.Players[id]
	return p, ok
}

func (r *Room) IsMember(id string) bool {
	_, ok := r.Players[id]
	return ok
}

func (r *Room) IsSpectator(id string) bool {
	_, ok := r.Spectators[id]
	return ok
}

// AddPlayer admits p as a member; a spectator with the same id is promoted.
func (r *Room) AddPlayer(p *Player) {
	delete(r.Spectators, p.ID)
	if _, exists := r.Players[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.Players[p.ID] = p
}

func (r *Room) AddSpectator(p *Player) {
	if r.IsMember(p.ID) {
		return
	}
	r.Spectators[p.ID] = p
}

// Remove drops id from members or spectators and reports whether it was a member.
func (r *Room) Remove(id string) bool {
	delete(r.Spectators, id)
	if _, ok := r.Players[id]; !ok {
		return false
	}
	delete(r.Players, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return true
}

// Members returns players in join order.
func (r *Room) Members() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.Players[id])
	}
	return out
}

func (r *Room) PlayerCount() int { return len(r.Players) }

func (r *Room) HumanCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.Bot {
			n++
		}
	}
	return n
}

func (r *Room) ConnectedCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Connected() {
			n++
		}
	}
	return n
}

func (r *Room) SubmissionFor(playerID string) (Submission, bool) {
	for _, s := range r.Submissions {
		if s.PlayerID == playerID && s.Round == r.Round {
			return s, true
		}
	}
	return Submission{}, false
}

// RoundSubmissions returns submissions made in the current round, in order.
func (r *Room) RoundSubmissions() []Submission {
	out := make([]Submission, 0, len(r.Submissions))
	for _, s := range r.Submissions {
		if s.Round == r.Round {
			out = append(out, s)
		}
	}
	return out
}

// NextLobbyGen hands out a fresh generation for a lobby timer.
func (r *Room) NextLobbyGen() uint64 {
	r.lobbyGen++
	return r.lobbyGen
}

// ResetForLobby clears everything a finished or aborted game left behind.
// Membership is left to the caller.
func (r *Room) ResetForLobby() {
	r.Phase = mode.PhaseLobby
	r.Round = 0
	r.Gen++
	r.Submissions = nil
	r.Votes = nil
	r.PhaseTimer = nil
	r.LobbyTimer = nil
	r.Interrupted = false
	r.Sub = nil
}
