package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/sketch-arena-backend/internal/engine"
	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/hub"
	"github.com/DoyleJ11/sketch-arena-backend/pkg/types"
)

var (
	errBadJSON     = errors.New("bad json")
	errUnknownType = errors.New("unknown type")
	errRateLimited = errors.New("too many messages")
)

type Options struct {
	// Rate and Burst bound client messages per connection.
	Rate           rate.Limit
	Burst          int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	OriginPatterns []string
	OutboxSize     int
}

func (o Options) withDefaults() Options {
	if o.Rate == 0 {
		o.Rate = 5
	}
	if o.Burst == 0 {
		o.Burst = 10
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.OutboxSize == 0 {
		o.OutboxSize = 64
	}
	return o
}

// Handler seats the caller named by the code, mode, session and name query
// parameters, then upgrades and streams room events. private=1 opens a new
// private room with the caller as host.
func Handler(h *hub.Hub, log *zap.Logger, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := engine.JoinRequest{
			Code:      q.Get("code"),
			ModeID:    q.Get("mode"),
			SessionID: q.Get("session"),
			Name:      q.Get("name"),
			Private:   q.Get("private") == "1",
		}

		clientID := uuid.NewString()
		out := make(chan engine.Event, opts.OutboxSize)
		rep, err := h.Join(r.Context(), req, clientID, out)
		if err != nil {
			http.Error(w, err.Error(), errs.HTTPStatus(err))
			return
		}
		seat := rep.Seat
		log := log.With(zap.String("room", seat.RoomID), zap.String("player", seat.PlayerID), zap.String("client", clientID))

		leave := hub.Leave{RoomID: seat.RoomID, PlayerID: seat.PlayerID, ClientID: clientID, Reason: engine.LeaveDropped}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), opts.WriteTimeout)
			defer cancel()
			if err := h.Leave(ctx, leave); err != nil && !errors.Is(err, hub.ErrClosed) {
				log.Warn("leave not delivered", zap.Error(err))
			}
		}()

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
		if err != nil {
			log.Debug("upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		welcome := types.ServerMessage{
			Type:     types.MsgWelcome,
			RoomID:   seat.RoomID,
			PlayerID: seat.PlayerID,
			Seat: &types.Seat{
				RoomID:      seat.RoomID,
				PlayerID:    seat.PlayerID,
				SessionID:   seat.SessionID,
				Spectator:   seat.Spectator,
				Reconnected: seat.Reconnected,
			},
			Room: &rep.Room,
		}
		if err := write(ctx, conn, opts.WriteTimeout, welcome); err != nil {
			return
		}
		log.Debug("client connected", zap.Bool("spectator", seat.Spectator))

		// Writer goroutine
		go func() {
			defer cancel()
			for ev := range out {
				msg, ok := toMessage(ev, seat.PlayerID)
				if !ok {
					continue
				}
				if err := write(ctx, conn, opts.WriteTimeout, msg); err != nil {
					return
				}
			}
			// The hub closed our outbox: room gone, replaced, or too slow.
			conn.Close(websocket.StatusGoingAway, "closed by server")
		}()

		// Reader loop
		limiter := rate.NewLimiter(opts.Rate, opts.Burst)
		c := &session{hub: h, conn: conn, seat: seat, opts: opts, log: log}
		for {
			readCtx, readCancel := context.WithTimeout(ctx, opts.ReadTimeout)
			_, data, err := conn.Read(readCtx)
			readCancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read ended", zap.Error(err))
				}
				return
			}
			if !limiter.Allow() {
				c.reply(ctx, errorMessage(errRateLimited, "rate_limited"))
				continue
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				c.reply(ctx, errorMessage(errBadJSON, "bad_request"))
				continue
			}
			if cm.Type == types.MsgLeave {
				leave.Reason = engine.LeaveExplicit
				return
			}
			c.dispatch(ctx, cm)
		}
	}
}

type session struct {
	hub  *hub.Hub
	conn *websocket.Conn
	seat engine.JoinResult
	opts Options
	log  *zap.Logger
}

func (s *session) dispatch(ctx context.Context, cm types.ClientMessage) {
	a := hub.Action{RoomID: s.seat.RoomID, PlayerID: s.seat.PlayerID, Choice: cm.Choice}
	switch cm.Type {
	case types.MsgPing:
		s.reply(ctx, types.ServerMessage{Type: types.MsgPong})
		return
	case types.MsgStart:
		a.Kind = hub.ActStart
	case types.MsgSubmit:
		a.Kind = hub.ActSubmit
		a.Payload = cm.Payload
	case types.MsgVote:
		a.Kind = hub.ActVote
	case types.MsgFinaleVote:
		a.Kind = hub.ActFinaleVote
	default:
		s.reply(ctx, errorMessage(errUnknownType, "bad_request"))
		return
	}

	if err := s.hub.Do(ctx, a); err != nil {
		s.log.Debug("action rejected", zap.String("type", cm.Type), zap.Error(err))
		s.reply(ctx, errorMessage(err, string(errs.KindOf(err))))
	}
}

func (s *session) reply(ctx context.Context, msg types.ServerMessage) {
	if err := write(ctx, s.conn, s.opts.WriteTimeout, msg); err != nil {
		s.log.Debug("write failed", zap.Error(err))
	}
}

func write(ctx context.Context, conn *websocket.Conn, timeout time.Duration, msg types.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
