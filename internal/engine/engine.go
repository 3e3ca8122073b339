// Package engine is the synchronous game core. Every exported method mutates
// rooms directly and must be called from a single goroutine; the hub owns
// that goroutine in production and tests call straight in.
package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
	"github.com/DoyleJ11/sketch-arena-backend/internal/rules"
	"github.com/DoyleJ11/sketch-arena-backend/internal/sched"
	"github.com/DoyleJ11/sketch-arena-backend/internal/voting"
)

type EventType string

const (
	EvtPlayerJoined       EventType = "player-joined"
	EvtPlayerLeft         EventType = "player-left"
	EvtPlayerDisconnected EventType = "player-disconnected"
	EvtPlayerReconnected  EventType = "player-reconnected"
	EvtHostChanged        EventType = "host-changed"
	EvtLobbyTimerStarted  EventType = "lobby-timer-started"
	EvtLobbyTimerCanceled EventType = "lobby-timer-cancelled"
	EvtPhaseChanged       EventType = "phase-changed"
	EvtSubmissionReceived EventType = "submission-received"
	EvtVotingRoundReady   EventType = "voting-round-ready"
	EvtVoteAcknowledged   EventType = "vote-acknowledged"
	EvtFinaleReady        EventType = "finale-ready"
	EvtResultsReady       EventType = "results-ready"
	EvtPlayerEliminated   EventType = "player-eliminated"
	EvtRoomClosed         EventType = "room-closed"
)

// Event is published for every observable change. Fields beyond Type and
// RoomID are filled only when they mean something for Type.
type Event struct {
	Type     EventType
	RoomID   string
	PlayerID string
	Phase    mode.Phase
	Round    int
	Duration time.Duration
	Deadline time.Time

	Assignments []voting.Assignment
	Finalists   []string
	Ranking     []voting.Placement
	Change      *voting.Change
	Eliminated  []string
	Winner      string
	Reason      string
}

type Publisher interface {
	Publish(Event)
}

type PublisherFunc func(Event)

func (f PublisherFunc) Publish(ev Event) { f(ev) }

// ContentSource produces what a bot submits.
type ContentSource interface {
	Content(r *room.Room, botID string) []byte
}

type blankContent struct{}

func (blankContent) Content(*room.Room, string) []byte { return []byte(`{"strokes":[]}`) }

const (
	defaultBotDelay    = 2 * time.Second
	defaultIdleTimeout = 2 * time.Minute
)

type Engine struct {
	log     *zap.Logger
	rules   *rules.Resolver
	rooms   *room.Store
	sched   *sched.Scheduler
	pub     Publisher
	content ContentSource

	// ballots holds the judging state of rooms currently voting.
	ballots map[string]*voting.State
	// starting marks rooms inside startGame, so a game that ends on entry
	// cannot start itself again from the same call.
	starting map[string]bool

	botDelay    time.Duration
	idleTimeout time.Duration
}

type Option func(*Engine)

func WithContent(c ContentSource) Option {
	return func(e *Engine) { e.content = c }
}

func WithBotDelay(d time.Duration) Option {
	return func(e *Engine) { e.botDelay = d }
}

// WithIdleTimeout bounds how long a created room may sit with nobody in it.
func WithIdleTimeout(d time.Duration) Option {
	return func(e *Engine) { e.idleTimeout = d }
}

func New(log *zap.Logger, resolver *rules.Resolver, rooms *room.Store, s *sched.Scheduler, pub Publisher, opts ...Option) *Engine {
	e := &Engine{
		log:         log.Named("engine"),
		rules:       resolver,
		rooms:       rooms,
		sched:       s,
		pub:         pub,
		content:     blankContent{},
		ballots:     make(map[string]*voting.State),
		starting:    make(map[string]bool),
		botDelay:    defaultBotDelay,
		idleTimeout: defaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) now() time.Time { return e.sched.Now() }

func (e *Engine) publish(ev Event) {
	if e.pub != nil {
		e.pub.Publish(ev)
	}
}

func (e *Engine) roomLog(r *room.Room) *zap.Logger {
	return e.log.With(zap.String("room", r.ID), zap.String("mode", r.ModeID))
}

// Ballot exposes a room's judging state, nil outside of judging.
func (e *Engine) Ballot(roomID string) *voting.State { return e.ballots[roomID] }

func (e *Engine) Rooms() *room.Store { return e.rooms }
