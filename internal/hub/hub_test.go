package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/sketch-arena-backend/internal/engine"
	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
	"github.com/DoyleJ11/sketch-arena-backend/internal/rules"
	"github.com/DoyleJ11/sketch-arena-backend/internal/sched"
)

const within = time.Second

func newTestHub(t *testing.T) (*Hub, *sched.ManualClock) {
	t.Helper()
	log := zaptest.NewLogger(t)
	reg := mode.NewRegistry(log)
	for _, c := range mode.Builtin() {
		require.NoError(t, reg.Register(c))
	}
	reg.Seal()

	clock := sched.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	h := New(context.Background(), log, rules.NewResolver(reg), room.NewStore(), clock)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), within)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	return h, clock
}

// waitFor reads events until one of type typ arrives so tests never hang.
func waitFor(t *testing.T, ch <-chan engine.Event, typ engine.EventType) engine.Event {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("outbox closed while waiting for %s", typ)
			}
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
			return engine.Event{}
		}
	}
}

func waitClosed(t *testing.T, ch <-chan engine.Event) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("outbox was not closed")
		}
	}
}

func join(t *testing.T, h *Hub, req engine.JoinRequest, clientID string, outbox chan engine.Event) JoinReply {
	t.Helper()
	rep, err := h.Join(context.Background(), req, clientID, outbox)
	require.NoError(t, err)
	return rep
}

func TestHub_JoinBroadcastsAndTimersFire(t *testing.T) {
	h, clock := newTestHub(t)
	a := make(chan engine.Event, 32)
	b := make(chan engine.Event, 32)

	first := join(t, h, engine.JoinRequest{ModeID: "duel"}, "a", a)
	if first.Room.Phase != "lobby" || len(first.Room.Players) != 1 {
		t.Fatalf("unexpected welcome snapshot: %+v", first.Room)
	}
	second := join(t, h, engine.JoinRequest{ModeID: "duel"}, "b", b)
	if second.Seat.RoomID != first.Seat.RoomID {
		t.Fatalf("expected both players in one room")
	}

	joined := waitFor(t, a, engine.EvtPlayerJoined)
	if joined.PlayerID != second.Seat.PlayerID {
		t.Fatalf("a saw join of %s, want %s", joined.PlayerID, second.Seat.PlayerID)
	}
	waitFor(t, a, engine.EvtLobbyTimerStarted)

	clock.Advance(5 * time.Second)
	ev := waitFor(t, b, engine.EvtPhaseChanged)
	if ev.Phase != mode.PhaseCountdown {
		t.Fatalf("phase = %s, want countdown", ev.Phase)
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h, _ := newTestHub(t)
	slow := make(chan engine.Event)
	join(t, h, engine.JoinRequest{ModeID: "classic"}, "slow", slow)
	join(t, h, engine.JoinRequest{ModeID: "classic"}, "fast", make(chan engine.Event, 32))

	waitClosed(t, slow)
	st, err := h.Stats(context.Background())
	require.NoError(t, err)
	if st.Clients != 1 {
		t.Fatalf("clients = %d, want 1", st.Clients)
	}
}

func TestHub_ReconnectReplacesOldClient(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()
	old := make(chan engine.Event, 32)
	fresh := make(chan engine.Event, 32)

	first := join(t, h, engine.JoinRequest{ModeID: "classic", SessionID: "s1"}, "old", old)
	again := join(t, h, engine.JoinRequest{ModeID: "classic", SessionID: "s1"}, "new", fresh)
	if again.Seat.PlayerID != first.Seat.PlayerID {
		t.Fatalf("session resumed as %s, want %s", again.Seat.PlayerID, first.Seat.PlayerID)
	}
	waitClosed(t, old)

	// the old socket noticing its own close must not free the seat
	require.NoError(t, h.Leave(ctx, Leave{
		RoomID: first.Seat.RoomID, PlayerID: first.Seat.PlayerID, ClientID: "old", Reason: engine.LeaveDropped,
	}))
	snap, err := h.Snapshot(ctx, first.Room.Code)
	require.NoError(t, err)
	if len(snap.Players) != 1 || !snap.Players[0].Connected {
		t.Fatalf("expected the player to stay seated: %+v", snap.Players)
	}
}

func TestHub_ExplicitLeave(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()
	a := make(chan engine.Event, 32)
	b := make(chan engine.Event, 32)
	first := join(t, h, engine.JoinRequest{ModeID: "classic"}, "a", a)
	join(t, h, engine.JoinRequest{ModeID: "classic"}, "b", b)

	require.NoError(t, h.Leave(ctx, Leave{
		RoomID: first.Seat.RoomID, PlayerID: first.Seat.PlayerID, ClientID: "a", Reason: engine.LeaveExplicit,
	}))
	waitClosed(t, a)
	left := waitFor(t, b, engine.EvtPlayerLeft)
	if left.PlayerID != first.Seat.PlayerID {
		t.Fatalf("left = %s, want %s", left.PlayerID, first.Seat.PlayerID)
	}
	snap, err := h.Snapshot(ctx, first.Room.Code)
	require.NoError(t, err)
	if len(snap.Players) != 1 {
		t.Fatalf("players = %d, want 1", len(snap.Players))
	}
}

func TestHub_AbandonedJoinGivesSeatBack(t *testing.T) {
	h, _ := newTestHub(t)
	b := make(chan engine.Event, 32)
	first := join(t, h, engine.JoinRequest{ModeID: "classic"}, "b", b)

	// the caller has gone by the time the hub answers
	a := make(chan engine.Event, 32)
	reply := make(chan JoinReply, 1)
	h.Inbox() <- Join{Req: engine.JoinRequest{ModeID: "classic"}, ClientID: "a", Outbox: a, Reply: reply}
	go h.abandonJoin(reply, "a")

	joined := waitFor(t, b, engine.EvtPlayerJoined)
	left := waitFor(t, b, engine.EvtPlayerLeft)
	require.Equal(t, joined.PlayerID, left.PlayerID)
	waitClosed(t, a)

	snap, err := h.Snapshot(context.Background(), first.Room.Code)
	require.NoError(t, err)
	require.Len(t, snap.Players, 1)
}

func TestHub_CreateRoomAndSnapshot(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()

	created, err := h.CreateRoom(ctx, "relay")
	require.NoError(t, err)
	snap, err := h.Snapshot(ctx, created.Code)
	require.NoError(t, err)
	if snap.ID != created.RoomID || snap.Mode != "relay" || snap.Kind != string(room.KindPrivate) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if _, err := h.CreateRoom(ctx, "nope"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown mode: got %v", err)
	}
	if _, err := h.Snapshot(ctx, "ZZZZZZ"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown code: got %v", err)
	}
}

func TestHub_ActionErrorsComeBack(t *testing.T) {
	h, _ := newTestHub(t)
	rep := join(t, h, engine.JoinRequest{ModeID: "classic"}, "a", make(chan engine.Event, 32))

	err := h.Do(context.Background(), Action{RoomID: rep.Seat.RoomID, PlayerID: rep.Seat.PlayerID, Kind: ActSubmit, Payload: []byte("x")})
	if !errors.Is(err, errs.ErrState) {
		t.Fatalf("submit in lobby: got %v", err)
	}
	err = h.Do(context.Background(), Action{RoomID: rep.Seat.RoomID, PlayerID: rep.Seat.PlayerID, Kind: "dance"})
	if !errors.Is(err, errs.ErrState) {
		t.Fatalf("unknown action: got %v", err)
	}
}

func TestHub_ShutdownClosesRooms(t *testing.T) {
	h, _ := newTestHub(t)
	a := make(chan engine.Event, 32)
	join(t, h, engine.JoinRequest{ModeID: "classic"}, "a", a)

	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))

	closed := waitFor(t, a, engine.EvtRoomClosed)
	if closed.Reason != "shutdown" {
		t.Fatalf("reason = %q", closed.Reason)
	}
	waitClosed(t, a)

	if _, err := h.Join(context.Background(), engine.JoinRequest{}, "late", nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("join after shutdown: got %v", err)
	}
}
