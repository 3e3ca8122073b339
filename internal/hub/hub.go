package hub

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-arena-backend/internal/engine"
	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
	"github.com/DoyleJ11/sketch-arena-backend/internal/rules"
	"github.com/DoyleJ11/sketch-arena-backend/internal/sched"
	"github.com/DoyleJ11/sketch-arena-backend/pkg/types"
)

var ErrClosed = errors.New("hub closed")

type Msg interface{ isHubMsg() }

// Join seats a player and, when Outbox is set, subscribes ClientID to the
// room's events in the same step.
type Join struct {
	Req      engine.JoinRequest
	ClientID string
	Outbox   chan engine.Event
	Reply    chan JoinReply
}

type JoinReply struct {
	Seat engine.JoinResult
	Room types.RoomSnapshot
	Err  error
}

// Leave unsubscribes ClientID. A dropped connection only frees the seat if
// ClientID still owns it.
type Leave struct {
	RoomID   string
	PlayerID string
	ClientID string
	Reason   engine.LeaveReason
}

type ActionKind string

const (
	ActStart      ActionKind = "start"
	ActSubmit     ActionKind = "submit"
	ActVote       ActionKind = "vote"
	ActFinaleVote ActionKind = "finale_vote"
)

type Action struct {
	RoomID   string
	PlayerID string
	Kind     ActionKind
	Choice   string
	Payload  []byte
	Reply    chan error
}

type CreateRoom struct {
	ModeID string
	Reply  chan CreateReply
}

type CreateReply struct {
	Room types.CreateRoomResponse
	Err  error
}

type GetSnapshot struct {
	Code  string
	Reply chan SnapshotReply
}

type SnapshotReply struct {
	Room types.RoomSnapshot
	Err  error
}

type TimerFired struct{ Event sched.Event }

// GetStats reports counters without racing the loop.
type GetStats struct{ Reply chan Stats }

type Stats struct {
	Rooms   int
	Clients int
}

type Shutdown struct{}

func (Join) isHubMsg()        {}
func (Leave) isHubMsg()       {}
func (Action) isHubMsg()      {}
func (CreateRoom) isHubMsg()  {}
func (GetSnapshot) isHubMsg() {}
func (TimerFired) isHubMsg()  {}
func (GetStats) isHubMsg()    {}
func (Shutdown) isHubMsg()    {}

type client struct {
	roomID   string
	playerID string
	outbox   chan engine.Event
}

// Hub is the single goroutine that owns the engine. Everything reaches game
// state through its inbox.
type Hub struct {
	inbox chan Msg
	eng   *engine.Engine
	log   *zap.Logger

	clients map[string]*client
	rooms   map[string]map[string]struct{}
	// seats maps a player to the client currently speaking for them.
	seats map[string]string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, log *zap.Logger, resolver *rules.Resolver, store *room.Store, clock sched.Clock, opts ...engine.Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan Msg, 256),
		log:     log.Named("hub"),
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
		seats:   make(map[string]string),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s := sched.New(clock, h.fire)
	h.eng = engine.New(log, resolver, store, s, h, opts...)
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

// Done is closed once the loop has exited.
func (h *Hub) Done() <-chan struct{} { return h.done }

// fire runs on timer goroutines and hands the event to the loop.
func (h *Hub) fire(ev sched.Event) {
	select {
	case h.inbox <- TimerFired{Event: ev}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- h.join(msg)

			case Leave:
				h.leave(msg)

			case Action:
				err := h.act(msg)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case CreateRoom:
				r, err := h.eng.CreatePrivateRoom(msg.ModeID)
				if err != nil {
					msg.Reply <- CreateReply{Err: err}
					break
				}
				msg.Reply <- CreateReply{Room: types.CreateRoomResponse{RoomID: r.ID, Code: r.Code, Mode: r.ModeID}}

			case GetSnapshot:
				snap, err := h.eng.SnapshotByCode(msg.Code)
				msg.Reply <- SnapshotReply{Room: snap, Err: err}

			case TimerFired:
				h.eng.HandleTimer(msg.Event)

			case GetStats:
				msg.Reply <- Stats{Rooms: h.eng.Rooms().Len(), Clients: len(h.clients)}

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) join(msg Join) JoinReply {
	seat, err := h.eng.Join(msg.Req)
	if err != nil {
		return JoinReply{Err: err}
	}
	snap, err := h.eng.Snapshot(seat.RoomID)
	if err != nil {
		return JoinReply{Err: err}
	}
	if msg.Outbox != nil {
		if prev, ok := h.seats[seat.PlayerID]; ok && prev != msg.ClientID {
			h.log.Info("client replaced", zap.String("player", seat.PlayerID), zap.String("old", prev))
			h.drop(prev)
		}
		h.subscribe(msg.ClientID, &client{roomID: seat.RoomID, playerID: seat.PlayerID, outbox: msg.Outbox})
	}
	return JoinReply{Seat: seat, Room: snap}
}

func (h *Hub) leave(msg Leave) {
	owner, seated := h.seats[msg.PlayerID]
	if msg.ClientID != "" {
		h.drop(msg.ClientID)
	}
	if msg.Reason == engine.LeaveDropped && seated && owner != msg.ClientID {
		return
	}
	if err := h.eng.Leave(msg.RoomID, msg.PlayerID, msg.Reason); err != nil && !errors.Is(err, errs.ErrNotFound) {
		h.log.Warn("leave failed", zap.String("room", msg.RoomID), zap.String("player", msg.PlayerID), zap.Error(err))
	}
}

func (h *Hub) act(msg Action) error {
	switch msg.Kind {
	case ActStart:
		return h.eng.StartManually(msg.RoomID, msg.PlayerID)
	case ActSubmit:
		return h.eng.Submit(msg.RoomID, msg.PlayerID, msg.Payload)
	case ActVote:
		_, err := h.eng.CastVote(msg.RoomID, msg.PlayerID, msg.Choice)
		return err
	case ActFinaleVote:
		_, err := h.eng.CastFinaleVote(msg.RoomID, msg.PlayerID, msg.Choice)
		return err
	default:
		return errs.State("unknown action %q", msg.Kind)
	}
}

func (h *Hub) subscribe(id string, c *client) {
	h.clients[id] = c
	subs := h.rooms[c.roomID]
	if subs == nil {
		subs = make(map[string]struct{})
		h.rooms[c.roomID] = subs
	}
	subs[id] = struct{}{}
	h.seats[c.playerID] = id
}

// drop closes a client's outbox and forgets it.
func (h *Hub) drop(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	close(c.outbox)
	delete(h.clients, id)
	if subs := h.rooms[c.roomID]; subs != nil {
		delete(subs, id)
		if len(subs) == 0 {
			delete(h.rooms, c.roomID)
		}
	}
	if h.seats[c.playerID] == id {
		delete(h.seats, c.playerID)
	}
}

// Publish fans ev out to the room's clients. It only runs on the loop.
func (h *Hub) Publish(ev engine.Event) {
	for id := range h.rooms[ev.RoomID] {
		c := h.clients[id]
		select {
		case c.outbox <- ev:
			// ok
		default:
			// Client is slow/full - drop them.
			h.log.Warn("dropping slow client", zap.String("room", ev.RoomID), zap.String("player", c.playerID))
			h.drop(id)
		}
	}
	if ev.Type == engine.EvtRoomClosed {
		for id := range h.rooms[ev.RoomID] {
			h.drop(id)
		}
	}
}

func (h *Hub) shutdown() {
	h.eng.CloseAll("shutdown")
	for id := range h.clients {
		h.drop(id)
	}
	h.cancel()
	h.log.Info("hub stopped")
}
