package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
	"github.com/DoyleJ11/sketch-arena-backend/internal/rules"
	"github.com/DoyleJ11/sketch-arena-backend/internal/sched"
)

func (e *Engine) addBots(r *room.Room, kit rules.Kit, n int) {
	for i := 0; i < n; i++ {
		p := room.NewPlayer(e.rooms.NewID(), "", fmt.Sprintf("Bot %d", r.PlayerCount()+1), e.now())
		p.Bot = true
		r.AddPlayer(p)
		e.publish(Event{Type: EvtPlayerJoined, RoomID: r.ID, PlayerID: p.ID, Phase: r.Phase, Reason: "bot"})
	}
	e.roomLog(r).Info("bots added", zap.Int("count", n), zap.Int("threshold", kit.Lobby.AutoStartThreshold(r)))
}

func (e *Engine) scheduleBots(r *room.Room, kit rules.Kit) {
	for _, id := range kit.Phase.Submitters(r) {
		e.scheduleBot(r, id)
	}
}

// scheduleBot queues id's next move for the current generation. Humans are
// ignored.
func (e *Engine) scheduleBot(r *room.Room, id string) {
	p, ok := r.Player(id)
	if !ok || !p.Bot {
		return
	}
	e.sched.Schedule(sched.Key{RoomID: r.ID, Kind: sched.KindBot, PlayerID: id}, r.Gen, r.Phase, e.botDelay)
}

// botAct plays one move for a bot. Bots always pick the left image and the
// best-seeded finalist that is not their own.
func (e *Engine) botAct(r *room.Room, kit rules.Kit, id string) {
	p, ok := r.Player(id)
	if !ok || !p.Bot {
		return
	}

	var err error
	switch {
	case kit.Phase.IsSubmissionPhase(r.Phase):
		err = e.Submit(r.ID, id, e.content.Content(r, id))
	case r.Phase == mode.PhaseVoting:
		st := e.ballots[r.ID]
		if st == nil {
			return
		}
		if a, ok := st.Assignments[id]; ok {
			_, err = e.CastVote(r.ID, id, a.Left)
		}
	case r.Phase == mode.PhaseFinale:
		st := e.ballots[r.ID]
		if st == nil {
			return
		}
		for _, f := range st.Finalists {
			if f != id {
				_, err = e.CastFinaleVote(r.ID, id, f)
				break
			}
		}
	}
	if err != nil {
		e.roomLog(r).Debug("bot move rejected", zap.String("bot", id), zap.Error(err))
	}
}
