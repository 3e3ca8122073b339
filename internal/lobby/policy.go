// Package lobby decides who may enter a room and when a waiting room starts.
//
// A Policy never schedules anything itself. The engine asks it questions
// after each membership change and acts on the answers.
package lobby

import (
	"time"

	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
)

type TimerDecision struct {
	Start    bool
	Duration time.Duration
}

type Policy interface {
	// CanJoin admits p as a player, as a spectator, or not at all.
	CanJoin(r *room.Room, p *room.Player) (spectator bool, err error)
	ShouldAutoStart(r *room.Room) bool
	AutoStartThreshold(r *room.Room) int
	// ShouldStartTimer is idempotent: it never says Start while a lobby
	// timer is outstanding.
	ShouldStartTimer(r *room.Room) TimerDecision
	// ShouldStartImmediately skips the lobby countdown.
	ShouldStartImmediately(r *room.Room) bool
	CanStartManually(r *room.Room, playerID string) error

	MinPlayers(r *room.Room) int
	MaxPlayers(r *room.Room) int
	LobbyTimeout(r *room.Room) time.Duration

	// OnPlayerJoin reports whether the join calls for re-running the start
	// decision.
	OnPlayerJoin(r *room.Room, p *room.Player) bool
	// OnPlayerLeave reports whether the outstanding lobby timer must be
	// cancelled. Call it after the player has been removed.
	OnPlayerLeave(r *room.Room, playerID string) bool

	ShouldCleanup(r *room.Room) bool
	// BotsNeeded is how many synthetic players the room wants before it starts.
	BotsNeeded(r *room.Room) int
}

// For selects the variant serving cfg for rooms of the given kind.
func For(cfg *mode.Config, kind room.Kind) Policy {
	b := base{cfg: cfg}
	if kind == room.KindPrivate {
		return Private{b}
	}
	switch cfg.Lobby.Type {
	case mode.LobbyInstant:
		return FixedSize{b}
	case mode.LobbyAutoStart:
		if cfg.Lobby.FillWithBots {
			return CapacityFilled{b}
		}
		return Standard{b}
	default:
		return Private{b}
	}
}

// base carries the behaviour shared by every variant.
type base struct {
	cfg *mode.Config
}

func (b base) MinPlayers(r *room.Room) int {
	if r.Kind == room.KindPrivate {
		return b.cfg.PrivateMin()
	}
	return b.cfg.MinPlayers
}

func (b base) MaxPlayers(r *room.Room) int {
	if r.Kind == room.KindPrivate {
		return b.cfg.PrivateMax()
	}
	return b.cfg.MaxPlayers
}

func (b base) LobbyTimeout(*room.Room) time.Duration { return b.cfg.Lobby.Countdown }

func (b base) CanJoin(r *room.Room, p *room.Player) (bool, error) {
	if r.IsMember(p.ID) {
		return false, nil
	}
	full := r.PlayerCount() >= b.MaxPlayers(r)
	if r.Phase == mode.PhaseLobby {
		if full {
			return false, errs.Capacity("room is full")
		}
		return false, nil
	}
	if b.cfg.Lobby.AllowLateJoin && !full {
		return false, nil
	}
	if b.cfg.Lobby.AllowSpectators {
		return true, nil
	}
	if full {
		return false, errs.Capacity("room is full")
	}
	return false, errs.State("game already in progress")
}

// ShouldCleanup holds once no human is seated or watching and the room is
// either waiting or its game was abandoned.
func (b base) ShouldCleanup(r *room.Room) bool {
	if r.HumanCount() > 0 || len(r.Spectators) > 0 {
		return false
	}
	return r.Phase == mode.PhaseLobby || r.Interrupted
}

func (base) BotsNeeded(*room.Room) int { return 0 }

func (base) CanStartManually(*room.Room, string) error {
	return errs.State("public rooms start automatically")
}

// waiting reports whether a start decision may be taken at all.
func waiting(r *room.Room) bool {
	return r.Phase == mode.PhaseLobby && r.LobbyTimer == nil
}
