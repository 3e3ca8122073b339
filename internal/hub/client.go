package hub

import (
	"context"

	"github.com/DoyleJ11/sketch-arena-backend/internal/engine"
	"github.com/DoyleJ11/sketch-arena-backend/pkg/types"
)

// request posts a message built around a fresh reply channel and waits for
// the answer, the caller's context or the hub to stop.
func request[T any](ctx context.Context, h *Hub, build func(chan T) Msg) (T, error) {
	var zero T
	reply := make(chan T, 1)
	select {
	case h.inbox <- build(reply):
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.done:
		return zero, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.done:
		return zero, ErrClosed
	}
}

// Join seats and subscribes the caller. If ctx ends after the hub took the
// request, a seat it hands out later is given back.
func (h *Hub) Join(ctx context.Context, req engine.JoinRequest, clientID string, outbox chan engine.Event) (JoinReply, error) {
	reply := make(chan JoinReply, 1)
	select {
	case h.inbox <- Join{Req: req, ClientID: clientID, Outbox: outbox, Reply: reply}:
	case <-ctx.Done():
		return JoinReply{}, ctx.Err()
	case <-h.done:
		return JoinReply{}, ErrClosed
	}
	select {
	case rep := <-reply:
		return rep, rep.Err
	case <-ctx.Done():
		go h.abandonJoin(reply, clientID)
		return JoinReply{}, ctx.Err()
	case <-h.done:
		return JoinReply{}, ErrClosed
	}
}

func (h *Hub) abandonJoin(reply <-chan JoinReply, clientID string) {
	var rep JoinReply
	select {
	case rep = <-reply:
	case <-h.done:
		return
	}
	if rep.Err != nil {
		return
	}
	leave := Leave{RoomID: rep.Seat.RoomID, PlayerID: rep.Seat.PlayerID, ClientID: clientID, Reason: engine.LeaveDropped}
	select {
	case h.inbox <- leave:
	case <-h.done:
	}
}

// Leave does not wait for the loop to process the message.
func (h *Hub) Leave(ctx context.Context, msg Leave) error {
	select {
	case h.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrClosed
	}
}

func (h *Hub) Do(ctx context.Context, a Action) error {
	rep, err := request(ctx, h, func(c chan error) Msg {
		a.Reply = c
		return a
	})
	if err != nil {
		return err
	}
	return rep
}

func (h *Hub) CreateRoom(ctx context.Context, modeID string) (types.CreateRoomResponse, error) {
	rep, err := request(ctx, h, func(c chan CreateReply) Msg { return CreateRoom{ModeID: modeID, Reply: c} })
	if err != nil {
		return types.CreateRoomResponse{}, err
	}
	return rep.Room, rep.Err
}

func (h *Hub) Snapshot(ctx context.Context, code string) (types.RoomSnapshot, error) {
	rep, err := request(ctx, h, func(c chan SnapshotReply) Msg { return GetSnapshot{Code: code, Reply: c} })
	if err != nil {
		return types.RoomSnapshot{}, err
	}
	return rep.Room, rep.Err
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	return request(ctx, h, func(c chan Stats) Msg { return GetStats{Reply: c} })
}

// Shutdown stops the loop and waits for it, or for ctx.
func (h *Hub) Shutdown(ctx context.Context) error {
	select {
	case h.inbox <- Shutdown{}:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
