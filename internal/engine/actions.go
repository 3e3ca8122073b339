package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/phase"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
	"github.com/DoyleJ11/sketch-arena-backend/internal/rules"
	"github.com/DoyleJ11/sketch-arena-backend/internal/sched"
	"github.com/DoyleJ11/sketch-arena-backend/internal/voting"
)

// JoinRequest names a room by Code, or a mode for matchmaking. An empty
// ModeID means the default mode. Private opens a fresh private room of
// ModeID with the caller as host.
type JoinRequest struct {
	Code      string
	ModeID    string
	SessionID string
	Name      string
	Private   bool
}

type JoinResult struct {
	RoomID      string
	PlayerID    string
	SessionID   string
	Spectator   bool
	Reconnected bool
}

type LeaveReason string

const (
	// LeaveExplicit always frees the seat.
	LeaveExplicit LeaveReason = "left"
	// LeaveDropped keeps the seat for the mode's grace window mid-game.
	LeaveDropped LeaveReason = "dropped"
)

func (e *Engine) Join(req JoinRequest) (JoinResult, error) {
	if res, ok, err := e.resume(req); ok || err != nil {
		return res, err
	}

	var (
		r       *room.Room
		created bool
		err     error
	)
	switch {
	case req.Private:
		r, err = e.CreatePrivateRoom(req.ModeID)
		created = true
	case req.Code != "":
		r, err = e.rooms.FindByCode(req.Code)
	default:
		r, created, err = e.findOrCreatePublic(req.ModeID)
	}
	if err != nil {
		return JoinResult{}, err
	}
	kit, err := e.rules.ForRoom(r)
	if err != nil {
		return JoinResult{}, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = e.rooms.NewID()
	}
	p := room.NewPlayer(e.rooms.NewID(), sessionID, req.Name, e.now())

	spectator, err := kit.Lobby.CanJoin(r, p)
	if err != nil {
		if created {
			e.destroy(r, "join rejected")
		}
		return JoinResult{}, err
	}
	e.admit(r, kit, p, spectator)

	return JoinResult{RoomID: r.ID, PlayerID: p.ID, SessionID: sessionID, Spectator: spectator}, nil
}

// resume reattaches a known session. ok=false means the caller should
// proceed with a fresh join.
func (e *Engine) resume(req JoinRequest) (JoinResult, bool, error) {
	if req.SessionID == "" {
		return JoinResult{}, false, nil
	}
	seat, ok := e.rooms.Session(req.SessionID)
	if !ok {
		return JoinResult{}, false, nil
	}
	r, err := e.rooms.Find(seat.RoomID)
	if err != nil {
		e.rooms.UnbindSession(req.SessionID)
		return JoinResult{}, false, nil
	}
	if req.Code != "" && !strings.EqualFold(strings.TrimSpace(req.Code), r.Code) {
		return JoinResult{}, false, nil
	}

	res := JoinResult{RoomID: r.ID, PlayerID: seat.PlayerID, SessionID: req.SessionID}
	if r.IsSpectator(seat.PlayerID) {
		res.Spectator = true
		return res, true, nil
	}
	p, ok := r.Player(seat.PlayerID)
	if !ok {
		e.rooms.UnbindSession(req.SessionID)
		return JoinResult{}, false, nil
	}
	if p.Connected() {
		return res, true, nil
	}

	kit, err := e.rules.ForRoom(r)
	if err != nil {
		return JoinResult{}, false, err
	}
	if !p.WithinGrace(e.now(), kit.Mode.ReconnectGrace) {
		// The grace event has not been delivered yet; treat it as fired.
		e.removePlayer(r, kit, p.ID, "reconnect window expired")
		return JoinResult{}, false, nil
	}

	p.Reconnect()
	e.sched.Cancel(sched.Key{RoomID: r.ID, Kind: sched.KindGrace, PlayerID: p.ID})
	e.publish(Event{Type: EvtPlayerReconnected, RoomID: r.ID, PlayerID: p.ID, Phase: r.Phase})
	e.roomLog(r).Info("player reconnected", zap.String("player", p.ID))
	res.Reconnected = true
	return res, true, nil
}

func (e *Engine) admit(r *room.Room, kit rules.Kit, p *room.Player, spectator bool) {
	if spectator {
		r.AddSpectator(p)
	} else {
		r.AddPlayer(p)
	}
	e.rooms.BindSession(p.SessionID, room.Seat{RoomID: r.ID, PlayerID: p.ID})
	e.sched.Cancel(idleKey(r.ID))

	ev := Event{Type: EvtPlayerJoined, RoomID: r.ID, PlayerID: p.ID, Phase: r.Phase}
	if spectator {
		ev.Reason = "spectator"
	}
	e.publish(ev)
	e.roomLog(r).Info("player joined",
		zap.String("player", p.ID),
		zap.Bool("spectator", spectator),
		zap.Int("players", r.PlayerCount()),
	)

	if spectator {
		return
	}
	if r.HostID == "" && !p.Bot {
		e.setHost(r, p.ID)
	}
	if kit.Lobby.OnPlayerJoin(r, p) {
		e.evaluateStart(r, kit)
	}
}

func (e *Engine) findOrCreatePublic(modeID string) (*room.Room, bool, error) {
	r, err := e.FindOrCreatePublicRoom(modeID)
	if err != nil {
		return nil, false, err
	}
	return r, r.PlayerCount() == 0 && len(r.Spectators) == 0, nil
}

// FindOrCreatePublicRoom returns the oldest public lobby of the mode with a
// free seat, creating one when none exists.
func (e *Engine) FindOrCreatePublicRoom(modeID string) (*room.Room, error) {
	cfg, err := e.modeOrDefault(modeID)
	if err != nil {
		return nil, err
	}
	kit, err := e.rules.Kit(cfg.ID, room.KindPublic)
	if err != nil {
		return nil, err
	}
	for _, r := range e.rooms.Rooms() {
		if r.Kind != room.KindPublic || r.ModeID != cfg.ID || r.Phase != mode.PhaseLobby {
			continue
		}
		if r.PlayerCount() < kit.Lobby.MaxPlayers(r) {
			return r, nil
		}
	}
	r, err := e.rooms.Create(room.KindPublic, cfg.ID, e.now())
	if err != nil {
		return nil, err
	}
	e.roomLog(r).Info("room created", zap.String("kind", string(r.Kind)))
	return r, nil
}

// CreatePrivateRoom opens a fresh private room. The first player to join
// becomes host; a room nobody joins expires after the idle timeout.
func (e *Engine) CreatePrivateRoom(modeID string) (*room.Room, error) {
	cfg, err := e.modeOrDefault(modeID)
	if err != nil {
		return nil, err
	}
	r, err := e.rooms.Create(room.KindPrivate, cfg.ID, e.now())
	if err != nil {
		return nil, err
	}
	e.sched.Schedule(idleKey(r.ID), 0, mode.PhaseLobby, e.idleTimeout)
	e.roomLog(r).Info("room created", zap.String("kind", string(r.Kind)), zap.String("code", r.Code))
	return r, nil
}

func (e *Engine) modeOrDefault(modeID string) (*mode.Config, error) {
	modes := e.rules.Modes()
	if modeID == "" {
		if cfg := modes.Default(); cfg != nil {
			return cfg, nil
		}
		return nil, errs.NotFound("no default mode")
	}
	return modes.Get(modeID)
}

func (e *Engine) Leave(roomID, playerID string, reason LeaveReason) error {
	r, kit, err := e.lookup(roomID)
	if err != nil {
		return err
	}
	if r.IsSpectator(playerID) {
		sp := r.Spectators[playerID]
		r.Remove(playerID)
		e.rooms.UnbindSession(sp.SessionID)
		e.publish(Event{Type: EvtPlayerLeft, RoomID: r.ID, PlayerID: playerID, Phase: r.Phase, Reason: "spectator"})
		if kit.Lobby.ShouldCleanup(r) {
			e.destroy(r, "empty")
		}
		return nil
	}
	p, ok := r.Player(playerID)
	if !ok {
		return errs.NotFound("player %q in room %q", playerID, roomID)
	}

	grace := kit.Mode.ReconnectGrace
	if reason == LeaveDropped && r.Phase != mode.PhaseLobby && grace > 0 && !p.Bot {
		if !p.Connected() {
			return nil
		}
		p.Disconnect(e.now())
		e.sched.Schedule(sched.Key{RoomID: r.ID, Kind: sched.KindGrace, PlayerID: p.ID}, r.Gen, r.Phase, grace)
		kit.Voting.DropVoter(e.ballots[r.ID], p.ID)
		e.publish(Event{Type: EvtPlayerDisconnected, RoomID: r.ID, PlayerID: p.ID, Phase: r.Phase, Duration: grace})
		e.roomLog(r).Info("player disconnected", zap.String("player", p.ID), zap.Duration("grace", grace))
		e.settle(r, kit)
		return nil
	}

	e.removePlayer(r, kit, playerID, string(reason))
	return nil
}

// removePlayer frees a seat and reports whether the room was destroyed.
func (e *Engine) removePlayer(r *room.Room, kit rules.Kit, playerID, reason string) bool {
	p, ok := r.Player(playerID)
	if !ok {
		return false
	}
	e.sched.CancelPlayer(r.ID, playerID)
	kit.Voting.DropVoter(e.ballots[r.ID], playerID)
	r.Remove(playerID)
	e.rooms.UnbindSession(p.SessionID)
	if d, ok := kit.Phase.(phase.PlayerDropper); ok {
		d.DropPlayer(r, playerID)
	}
	e.publish(Event{Type: EvtPlayerLeft, RoomID: r.ID, PlayerID: playerID, Phase: r.Phase, Reason: reason})
	e.roomLog(r).Info("player left", zap.String("player", playerID), zap.String("reason", reason))

	if r.HostID == playerID {
		e.setHost(r, nextHost(r))
	}
	if r.Phase != mode.PhaseLobby && r.HumanCount() == 0 {
		r.Interrupted = true
	}
	if kit.Lobby.OnPlayerLeave(r, playerID) {
		e.cancelLobbyTimer(r, "not enough players")
	}
	if kit.Lobby.ShouldCleanup(r) {
		e.destroy(r, "empty")
		return true
	}
	e.settle(r, kit)
	return false
}

func nextHost(r *room.Room) string {
	for _, p := range r.Members() {
		if !p.Bot {
			return p.ID
		}
	}
	return ""
}

func (e *Engine) setHost(r *room.Room, playerID string) {
	if r.HostID == playerID {
		return
	}
	r.HostID = playerID
	if playerID != "" {
		e.publish(Event{Type: EvtHostChanged, RoomID: r.ID, PlayerID: playerID, Phase: r.Phase})
	}
}

func (e *Engine) StartManually(roomID, playerID string) error {
	r, kit, err := e.lookup(roomID)
	if err != nil {
		return err
	}
	if err := kit.Lobby.CanStartManually(r, playerID); err != nil {
		return err
	}
	e.roomLog(r).Info("manual start", zap.String("host", playerID))
	e.startGame(r, kit)
	return nil
}

func (e *Engine) Submit(roomID, playerID string, payload []byte) error {
	r, kit, err := e.lookup(roomID)
	if err != nil {
		return err
	}
	if err := kit.Phase.CanSubmit(r, playerID); err != nil {
		return err
	}
	r.Submissions = append(r.Submissions, room.Submission{
		PlayerID:    playerID,
		Payload:     append([]byte(nil), payload...),
		Round:       r.Round,
		SubmittedAt: e.now(),
	})
	e.publish(Event{Type: EvtSubmissionReceived, RoomID: r.ID, PlayerID: playerID, Phase: r.Phase, Round: r.Round})
	e.settle(r, kit)
	return nil
}

func (e *Engine) CastVote(roomID, voterID, choiceID string) (voting.Result, error) {
	r, kit, err := e.lookup(roomID)
	if err != nil {
		return voting.Result{}, err
	}
	if r.Phase != mode.PhaseVoting {
		return voting.Result{}, errs.State("voting is not open")
	}
	if !r.IsMember(voterID) {
		return voting.Result{}, errs.State("only players can vote")
	}
	st := e.ballots[r.ID]
	res, err := kit.Voting.ProcessVote(r, st, voterID, choiceID)
	if err != nil || !res.Success {
		return res, err
	}

	r.Votes = append(r.Votes, room.Vote{VoterID: voterID, ChoiceID: choiceID, Round: st.Round, CastAt: e.now()})
	change := res.Change
	e.publish(Event{Type: EvtVoteAcknowledged, RoomID: r.ID, PlayerID: voterID, Phase: r.Phase, Round: st.Round, Change: &change})
	e.settle(r, kit)
	return res, nil
}

func (e *Engine) CastFinaleVote(roomID, voterID, choiceID string) (bool, error) {
	r, kit, err := e.lookup(roomID)
	if err != nil {
		return false, err
	}
	if r.Phase != mode.PhaseFinale {
		return false, errs.State("the finale is not open")
	}
	if !r.IsMember(voterID) {
		return false, errs.State("only players can vote")
	}
	counted, err := kit.Voting.ProcessFinaleVote(r, e.ballots[r.ID], voterID, choiceID)
	if err != nil || !counted {
		return counted, err
	}

	r.Votes = append(r.Votes, room.Vote{VoterID: voterID, ChoiceID: choiceID, Finale: true, CastAt: e.now()})
	e.publish(Event{Type: EvtVoteAcknowledged, RoomID: r.ID, PlayerID: voterID, Phase: r.Phase, Reason: "finale"})
	e.settle(r, kit)
	return true, nil
}

func (e *Engine) lookup(roomID string) (*room.Room, rules.Kit, error) {
	r, err := e.rooms.Find(roomID)
	if err != nil {
		return nil, rules.Kit{}, err
	}
	kit, err := e.rules.ForRoom(r)
	if err != nil {
		return nil, rules.Kit{}, fmt.Errorf("room %s: %w", r.ID, err)
	}
	return r, kit, nil
}

func idleKey(roomID string) sched.Key {
	return sched.Key{RoomID: roomID, Kind: sched.KindGrace}
}
