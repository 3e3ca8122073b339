package engine

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
	"github.com/DoyleJ11/sketch-arena-backend/internal/rules"
	"github.com/DoyleJ11/sketch-arena-backend/internal/sched"
	"github.com/DoyleJ11/sketch-arena-backend/internal/voting"
)

func phaseKey(roomID string) sched.Key { return sched.Key{RoomID: roomID, Kind: sched.KindPhase} }
func lobbyKey(roomID string) sched.Key { return sched.Key{RoomID: roomID, Kind: sched.KindLobby} }

// evaluateStart asks the lobby policy whether the room should start now or
// arm its countdown.
func (e *Engine) evaluateStart(r *room.Room, kit rules.Kit) {
	if r.Phase != mode.PhaseLobby {
		return
	}
	if kit.Lobby.ShouldStartImmediately(r) {
		e.cancelLobbyTimer(r, "starting")
		e.startGame(r, kit)
		return
	}
	if d := kit.Lobby.ShouldStartTimer(r); d.Start {
		e.armLobbyTimer(r, d.Duration)
	}
}

func (e *Engine) armLobbyTimer(r *room.Room, d time.Duration) {
	gen := r.NextLobbyGen()
	deadline := e.sched.Schedule(lobbyKey(r.ID), gen, mode.PhaseLobby, d)
	r.LobbyTimer = &room.Timer{Gen: gen, Phase: mode.PhaseLobby, Duration: d, Deadline: deadline}
	e.publish(Event{Type: EvtLobbyTimerStarted, RoomID: r.ID, Phase: r.Phase, Duration: d, Deadline: deadline})
	e.roomLog(r).Debug("lobby timer started", zap.Duration("in", d))
}

func (e *Engine) cancelLobbyTimer(r *room.Room, reason string) {
	if r.LobbyTimer == nil {
		return
	}
	e.sched.Cancel(lobbyKey(r.ID))
	r.LobbyTimer = nil
	e.publish(Event{Type: EvtLobbyTimerCanceled, RoomID: r.ID, Phase: r.Phase, Reason: reason})
	e.roomLog(r).Debug("lobby timer cancelled", zap.String("reason", reason))
}

func (e *Engine) startGame(r *room.Room, kit rules.Kit) {
	if e.starting[r.ID] {
		e.roomLog(r).Warn("game ended as it started, waiting in lobby")
		return
	}
	e.starting[r.ID] = true
	defer delete(e.starting, r.ID)

	if n := kit.Lobby.BotsNeeded(r); n > 0 {
		e.addBots(r, kit, n)
	}
	e.roomLog(r).Info("game starting", zap.Int("players", r.PlayerCount()))
	e.transition(r, kit, kit.Phase.Advance(r))
	e.settle(r, kit)
}

// transition moves r into next and runs that phase's entry work.
func (e *Engine) transition(r *room.Room, kit rules.Kit, next mode.Phase) {
	if next == mode.PhaseLobby {
		e.returnToLobby(r, kit)
		return
	}
	if !kit.Phase.CanTransitionTo(r, next) {
		e.roomLog(r).Error("undeclared phase, returning to lobby", zap.String("phase", string(next)))
		e.returnToLobby(r, kit)
		return
	}

	var ranking []voting.Placement
	switch next {
	case mode.PhaseResults, mode.PhaseElimination, mode.PhaseWinner:
		ranking = kit.Voting.Ranking(r.RoundSubmissions(), e.ballots[r.ID])
	}
	if kit.Phase.IsSubmissionPhase(next) {
		delete(e.ballots, r.ID)
	}

	prev := r.Phase
	r.Phase = next
	r.Gen++
	kit.Phase.Enter(r, next, playerIDs(ranking))
	e.armPhaseTimer(r, kit)
	e.publish(e.phaseEvent(r))
	e.roomLog(r).Info("phase changed",
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
		zap.Uint64("gen", r.Gen),
	)

	switch next {
	case mode.PhaseDrawing, mode.PhaseGuessing:
		e.scheduleBots(r, kit)
	case mode.PhaseVoting:
		e.ballots[r.ID] = kit.Voting.Initialize(r.RoundSubmissions())
		e.prepareVotingRound(r, kit, 1)
	case mode.PhaseFinale:
		e.openFinale(r, kit)
	case mode.PhaseResults:
		e.publish(Event{Type: EvtResultsReady, RoomID: r.ID, Phase: r.Phase, Round: r.Round, Ranking: ranking})
	case mode.PhaseElimination:
		ev := Event{Type: EvtPlayerEliminated, RoomID: r.ID, Phase: r.Phase, Round: r.Round, Ranking: ranking}
		if st, ok := r.Sub.(*room.RoyaleState); ok {
			ev.Eliminated = append([]string(nil), st.LastEliminated...)
		}
		e.publish(ev)
	case mode.PhaseWinner:
		ev := Event{Type: EvtResultsReady, RoomID: r.ID, Phase: r.Phase, Round: r.Round, Ranking: ranking}
		if st, ok := r.Sub.(*room.RoyaleState); ok {
			ev.Winner = st.Winner
		}
		e.publish(ev)
	}
}

func (e *Engine) phaseEvent(r *room.Room) Event {
	ev := Event{Type: EvtPhaseChanged, RoomID: r.ID, Phase: r.Phase, Round: r.Round}
	if t := r.PhaseTimer; t != nil {
		ev.Duration = t.Duration
		ev.Deadline = t.Deadline
	}
	return ev
}

// armPhaseTimer (re)issues the phase clock for r's current generation.
func (e *Engine) armPhaseTimer(r *room.Room, kit rules.Kit) {
	d, ok := kit.Phase.TimerDuration(r.Phase)
	if !ok {
		e.sched.Cancel(phaseKey(r.ID))
		r.PhaseTimer = nil
		return
	}
	deadline := e.sched.Schedule(phaseKey(r.ID), r.Gen, r.Phase, d)
	r.PhaseTimer = &room.Timer{Gen: r.Gen, Phase: r.Phase, Duration: d, Deadline: deadline}
}

func (e *Engine) prepareVotingRound(r *room.Room, kit rules.Kit, round int) {
	st := e.ballots[r.ID]
	if st == nil {
		return
	}
	if round > 1 {
		r.Gen++
		e.armPhaseTimer(r, kit)
	}
	assignments := kit.Voting.PrepareRound(r, st, round)
	ev := Event{Type: EvtVotingRoundReady, RoomID: r.ID, Phase: r.Phase, Round: round, Assignments: assignments}
	if t := r.PhaseTimer; t != nil {
		ev.Duration, ev.Deadline = t.Duration, t.Deadline
	}
	e.publish(ev)
	e.roomLog(r).Debug("voting round ready",
		zap.Int("round", round),
		zap.Int("of", st.TotalRounds),
		zap.Int("assignments", len(assignments)),
	)
	for _, a := range assignments {
		e.scheduleBot(r, a.VoterID)
	}
}

func (e *Engine) openFinale(r *room.Room, kit rules.Kit) {
	st := e.ballots[r.ID]
	if st == nil {
		return
	}
	finalists := kit.Voting.SelectFinalists(st, kit.Phase.FinalistCount(len(st.Images())))
	e.publish(Event{Type: EvtFinaleReady, RoomID: r.ID, Phase: r.Phase, Finalists: finalists})
	for _, p := range r.Members() {
		e.scheduleBot(r, p.ID)
	}
}

// settle ends phases whose completion predicate already holds. It loops
// because a new phase may be complete on entry.
func (e *Engine) settle(r *room.Room, kit rules.Kit) {
	for r.Phase != mode.PhaseLobby && e.phaseComplete(r, kit) {
		e.endPhase(r, kit)
	}
}

func (e *Engine) phaseComplete(r *room.Room, kit rules.Kit) bool {
	switch {
	case kit.Phase.IsSubmissionPhase(r.Phase):
		return kit.Phase.SubmissionsClosed(r)
	case r.Phase == mode.PhaseVoting:
		return kit.Voting.RoundComplete(e.ballots[r.ID])
	case r.Phase == mode.PhaseFinale:
		return e.finaleComplete(r)
	default:
		return false
	}
}

func (e *Engine) finaleComplete(r *room.Room) bool {
	st := e.ballots[r.ID]
	if st == nil {
		return true
	}
	for _, id := range voting.Voters(r) {
		if !st.FinaleVoters[id] {
			return false
		}
	}
	return true
}

// endPhase closes the current phase: another voting round when one is due,
// otherwise the phase manager's branch.
func (e *Engine) endPhase(r *room.Room, kit rules.Kit) {
	if r.Phase == mode.PhaseVoting {
		if st := e.ballots[r.ID]; st != nil && st.Round < st.TotalRounds {
			e.prepareVotingRound(r, kit, st.Round+1)
			return
		}
	}
	e.transition(r, kit, kit.Phase.Advance(r))
}

// returnToLobby clears the finished game, drops bots and lapsed players and
// seats waiting spectators.
func (e *Engine) returnToLobby(r *room.Room, kit rules.Kit) {
	delete(e.ballots, r.ID)
	e.sched.Cancel(phaseKey(r.ID))
	r.ResetForLobby()
	e.publish(e.phaseEvent(r))
	e.roomLog(r).Info("phase changed", zap.String("to", string(r.Phase)), zap.Uint64("gen", r.Gen))

	for _, p := range r.Members() {
		if p.Bot || !p.Connected() {
			if e.removePlayer(r, kit, p.ID, "game over") {
				return
			}
		}
	}

	waiting := make([]*room.Player, 0, len(r.Spectators))
	for _, sp := range r.Spectators {
		waiting = append(waiting, sp)
	}
	sort.Slice(waiting, func(i, j int) bool {
		if !waiting[i].JoinedAt.Equal(waiting[j].JoinedAt) {
			return waiting[i].JoinedAt.Before(waiting[j].JoinedAt)
		}
		return waiting[i].ID < waiting[j].ID
	})
	for _, sp := range waiting {
		if spectator, err := kit.Lobby.CanJoin(r, sp); err != nil || spectator {
			break
		}
		r.AddPlayer(sp)
		e.publish(Event{Type: EvtPlayerJoined, RoomID: r.ID, PlayerID: sp.ID, Phase: r.Phase, Reason: "promoted"})
		if r.HostID == "" {
			e.setHost(r, sp.ID)
		}
	}

	if kit.Lobby.ShouldCleanup(r) {
		e.destroy(r, "empty")
		return
	}
	e.evaluateStart(r, kit)
}

// HandleTimer applies a fired scheduled event. Events issued for an older
// generation or phase are ignored.
func (e *Engine) HandleTimer(ev sched.Event) {
	r, kit, err := e.lookup(ev.Key.RoomID)
	if err != nil {
		return
	}
	log := e.roomLog(r).With(zap.String("timer", string(ev.Key.Kind)), zap.Uint64("gen", ev.Gen))

	switch ev.Key.Kind {
	case sched.KindLobby:
		if r.Phase != mode.PhaseLobby || r.LobbyTimer == nil || r.LobbyTimer.Gen != ev.Gen {
			log.Debug("stale lobby timer")
			return
		}
		r.LobbyTimer = nil
		e.startGame(r, kit)

	case sched.KindPhase:
		if ev.Gen != r.Gen || ev.Phase != r.Phase {
			log.Debug("stale phase timer", zap.Uint64("current", r.Gen))
			return
		}
		r.PhaseTimer = nil
		e.endPhase(r, kit)
		e.settle(r, kit)

	case sched.KindBot:
		if ev.Gen != r.Gen || ev.Phase != r.Phase {
			return
		}
		e.botAct(r, kit, ev.Key.PlayerID)

	case sched.KindGrace:
		if ev.Key.PlayerID == "" {
			if r.HumanCount() == 0 && len(r.Spectators) == 0 && r.Phase == mode.PhaseLobby {
				e.destroy(r, "idle")
			}
			return
		}
		p, ok := r.Player(ev.Key.PlayerID)
		if !ok || p.WithinGrace(e.now(), kit.Mode.ReconnectGrace) {
			return
		}
		e.removePlayer(r, kit, p.ID, "reconnect window expired")
	}
}

func (e *Engine) destroy(r *room.Room, reason string) {
	e.sched.CancelRoom(r.ID)
	delete(e.ballots, r.ID)
	e.rooms.Destroy(r.ID)
	e.publish(Event{Type: EvtRoomClosed, RoomID: r.ID, Phase: r.Phase, Reason: reason})
	e.roomLog(r).Info("room closed", zap.String("reason", reason))
}

func playerIDs(ps []voting.Placement) []string {
	if len(ps) == 0 {
		return nil
	}
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.PlayerID
	}
	return ids
}

// CloseAll destroys every room.
func (e *Engine) CloseAll(reason string) {
	for _, r := range e.rooms.Rooms() {
		e.destroy(r, reason)
	}
}
