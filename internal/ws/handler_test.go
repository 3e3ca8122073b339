package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/sketch-arena-backend/internal/engine"
	"github.com/DoyleJ11/sketch-arena-backend/internal/hub"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
	"github.com/DoyleJ11/sketch-arena-backend/internal/rules"
	"github.com/DoyleJ11/sketch-arena-backend/internal/sched"
	"github.com/DoyleJ11/sketch-arena-backend/internal/voting"
	"github.com/DoyleJ11/sketch-arena-backend/pkg/types"
)

func TestToMessage(t *testing.T) {
	deadline := time.UnixMilli(1_700_000_000_000)
	round := engine.Event{
		Type:     engine.EvtVotingRoundReady,
		RoomID:   "r1",
		Phase:    mode.PhaseVoting,
		Round:    2,
		Duration: 20 * time.Second,
		Deadline: deadline,
		Assignments: []voting.Assignment{
			{VoterID: "a", Left: "b", Right: "c"},
			{VoterID: "b", Left: "a", Right: "c"},
		},
	}

	m, ok := toMessage(round, "b")
	require.True(t, ok)
	assert.Equal(t, &types.Pairing{Left: "a", Right: "c"}, m.Assignment)
	assert.Equal(t, int64(20000), m.DurationMS)
	assert.Equal(t, deadline.UnixMilli(), m.DeadlineMS)

	m, ok = toMessage(round, "spectator")
	require.True(t, ok)
	assert.Nil(t, m.Assignment)

	ack := engine.Event{
		Type:     engine.EvtVoteAcknowledged,
		PlayerID: "a",
		Change:   &voting.Change{WinnerID: "b", LoserID: "c", Delta: 16},
	}
	_, ok = toMessage(ack, "b")
	assert.False(t, ok, "acks are private to the voter")
	m, ok = toMessage(ack, "a")
	require.True(t, ok)
	assert.Equal(t, &types.RatingChange{Winner: "b", Loser: "c", Delta: 16}, m.Change)
}

type testServer struct {
	srv   *httptest.Server
	clock *sched.ManualClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zaptest.NewLogger(t)
	reg := mode.NewRegistry(log)
	for _, c := range mode.Builtin() {
		require.NoError(t, reg.Register(c))
	}
	reg.Seal()

	clock := sched.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	h := hub.New(context.Background(), log, rules.NewResolver(reg), room.NewStore(), clock)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	srv := httptest.NewServer(Handler(h, log, Options{}))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, clock: clock}
}

func (ts *testServer) dial(t *testing.T, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/?" + query
	conn, resp, err := websocket.Dial(ctx, url, nil)
	if conn != nil {
		t.Cleanup(func() { conn.CloseNow() })
	}
	return conn, resp, err
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var m types.ServerMessage
		require.NoError(t, wsjson.Read(ctx, conn, &m), "waiting for %s", typ)
		if m.Type == typ {
			return m
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(msg)))
}

func TestHandler_SoloGame(t *testing.T) {
	ts := newTestServer(t)
	conn, _, err := ts.dial(t, "mode=solo&name=Ada")
	require.NoError(t, err)

	welcome := readUntil(t, conn, types.MsgWelcome)
	require.NotNil(t, welcome.Seat)
	require.NotNil(t, welcome.Room)
	assert.NotEmpty(t, welcome.Seat.SessionID)
	assert.Equal(t, "countdown", welcome.Room.Phase)
	assert.Equal(t, "Ada", welcome.Room.Players[0].Name)

	send(t, conn, `{"type":"ping"}`)
	readUntil(t, conn, types.MsgPong)

	ts.clock.Advance(3 * time.Second)
	changed := readUntil(t, conn, string(engine.EvtPhaseChanged))
	assert.Equal(t, "drawing", changed.Phase)
	assert.Zero(t, changed.DeadlineMS, "solo drawing has no clock")

	send(t, conn, `{"type":"submit","payload":{"strokes":[[0,0,1,1]]}}`)
	results := readUntil(t, conn, string(engine.EvtResultsReady))
	require.Len(t, results.Ranking, 1)
	assert.Equal(t, welcome.Seat.PlayerID, results.Ranking[0].PlayerID)
}

func TestHandler_Rejections(t *testing.T) {
	ts := newTestServer(t)
	conn, _, err := ts.dial(t, "mode=classic")
	require.NoError(t, err)
	readUntil(t, conn, types.MsgWelcome)

	send(t, conn, `{not json`)
	m := readUntil(t, conn, types.MsgError)
	assert.Equal(t, "bad_request", m.Code)

	send(t, conn, `{"type":"vote","choice":"x"}`)
	m = readUntil(t, conn, types.MsgError)
	assert.Equal(t, "state", m.Code)

	send(t, conn, `{"type":"dance"}`)
	m = readUntil(t, conn, types.MsgError)
	assert.Equal(t, "bad_request", m.Code)
}

func TestHandler_UnknownRoom(t *testing.T) {
	ts := newTestServer(t)
	_, resp, err := ts.dial(t, "code=ZZZZZZ")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
