// Package sched turns "call me back later" into keyed, generation-tagged
// events. A room never holds a closure over its own state; when an event
// fires, the receiver compares the carried generation with the room's
// current one and ignores it if they differ.
package sched

import (
	"sync"
	"time"

	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
)

type Kind string

const (
	KindLobby Kind = "lobby"
	KindPhase Kind = "phase"
	// KindBot drives a synthetic player's next action.
	KindBot Kind = "bot"
	// KindGrace expires a disconnected player's reserved slot.
	KindGrace Kind = "grace"
)

// Key identifies one outstanding event. PlayerID is empty for room-wide kinds.
type Key struct {
	RoomID   string
	Kind     Kind
	PlayerID string
}

type Event struct {
	Key   Key
	Gen   uint64
	Phase mode.Phase
}

type entry struct {
	stop Stopper
	seq  uint64
}

// Scheduler keeps at most one pending event per Key. It is safe for
// concurrent use because fired events arrive on clock goroutines.
type Scheduler struct {
	clock Clock
	fire  func(Event)

	mu      sync.Mutex
	seq     uint64
	pending map[Key]entry
}

func New(clock Clock, fire func(Event)) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{clock: clock, fire: fire, pending: make(map[Key]entry)}
}

func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Schedule replaces any event pending under key and returns the deadline.
func (s *Scheduler) Schedule(key Key, gen uint64, p mode.Phase, d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.pending[key]; ok {
		old.stop.Stop()
	}
	s.seq++
	seq := s.seq
	ev := Event{Key: key, Gen: gen, Phase: p}
	stop := s.clock.AfterFunc(d, func() { s.deliver(ev, seq) })
	s.pending[key] = entry{stop: stop, seq: seq}
	return s.clock.Now().Add(d)
}

func (s *Scheduler) deliver(ev Event, seq uint64) {
	s.mu.Lock()
	cur, ok := s.pending[ev.Key]
	if !ok || cur.seq != seq {
		s.mu.Unlock()
		return
	}
	delete(s.pending, ev.Key)
	s.mu.Unlock()

	s.fire(ev)
}

func (s *Scheduler) Cancel(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[key]
	if !ok {
		return false
	}
	e.stop.Stop()
	delete(s.pending, key)
	return true
}

// CancelPlayer drops every per-player event for playerID in roomID.
func (s *Scheduler) CancelPlayer(roomID, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.pending {
		if k.RoomID == roomID && k.PlayerID == playerID && playerID != "" {
			e.stop.Stop()
			delete(s.pending, k)
		}
	}
}

// CancelRoom drops everything pending for roomID.
func (s *Scheduler) CancelRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.pending {
		if k.RoomID == roomID {
			e.stop.Stop()
			delete(s.pending, k)
		}
	}
}

func (s *Scheduler) Pending(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
