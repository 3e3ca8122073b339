package lobby

import (
	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
)

// Standard serves public rooms: countdown at the threshold, instant start at
// the maximum.
type Standard struct{ base }

func (Standard) ShouldAutoStart(*room.Room) bool { return true }

func (s Standard) AutoStartThreshold(r *room.Room) int {
	return min(s.cfg.AutoStartThreshold(), s.MaxPlayers(r))
}

func (s Standard) ShouldStartTimer(r *room.Room) TimerDecision {
	if !waiting(r) || r.PlayerCount() < s.AutoStartThreshold(r) {
		return TimerDecision{}
	}
	return TimerDecision{Start: true, Duration: s.LobbyTimeout(r)}
}

func (s Standard) ShouldStartImmediately(r *room.Room) bool {
	return r.Phase == mode.PhaseLobby && r.PlayerCount() >= s.MaxPlayers(r)
}

func (Standard) OnPlayerJoin(r *room.Room, _ *room.Player) bool {
	return r.Phase == mode.PhaseLobby
}

func (s Standard) OnPlayerLeave(r *room.Room, _ string) bool {
	return r.Phase == mode.PhaseLobby && r.LobbyTimer != nil && r.PlayerCount() < s.AutoStartThreshold(r)
}

// Private rooms start when the host says so. No timers run.
type Private struct{ base }

func (Private) ShouldAutoStart(*room.Room) bool { return false }

func (p Private) AutoStartThreshold(r *room.Room) int { return p.MinPlayers(r) }

func (Private) ShouldStartTimer(*room.Room) TimerDecision { return TimerDecision{} }

func (Private) ShouldStartImmediately(*room.Room) bool { return false }

func (p Private) CanStartManually(r *room.Room, playerID string) error {
	if r.Phase != mode.PhaseLobby {
		return errs.State("room is not in the lobby")
	}
	if r.HostID != playerID {
		return errs.State("only the host can start the game")
	}
	if need := p.MinPlayers(r); r.PlayerCount() < need {
		return errs.Capacity("need at least %d players to start", need)
	}
	return nil
}

func (Private) OnPlayerJoin(*room.Room, *room.Player) bool { return false }

func (Private) OnPlayerLeave(*room.Room, string) bool { return false }

// FixedSize needs exactly MaxPlayers occupants. The countdown begins the
// moment the room fills and is cancelled if anyone leaves before it fires.
type FixedSize struct{ base }

func (FixedSize) ShouldAutoStart(*room.Room) bool { return true }

func (f FixedSize) AutoStartThreshold(r *room.Room) int { return f.MaxPlayers(r) }

func (f FixedSize) ShouldStartTimer(r *room.Room) TimerDecision {
	if !waiting(r) || r.PlayerCount() != f.MaxPlayers(r) || f.LobbyTimeout(r) == 0 {
		return TimerDecision{}
	}
	return TimerDecision{Start: true, Duration: f.LobbyTimeout(r)}
}

func (f FixedSize) ShouldStartImmediately(r *room.Room) bool {
	return r.Phase == mode.PhaseLobby && r.PlayerCount() == f.MaxPlayers(r) && f.LobbyTimeout(r) == 0
}

func (f FixedSize) OnPlayerJoin(r *room.Room, _ *room.Player) bool {
	return r.Phase == mode.PhaseLobby && r.PlayerCount() == f.MaxPlayers(r)
}

func (f FixedSize) OnPlayerLeave(r *room.Room, _ string) bool {
	return r.Phase == mode.PhaseLobby && r.LobbyTimer != nil && r.PlayerCount() < f.MaxPlayers(r)
}

// CapacityFilled starts its countdown as soon as the mode minimum is present
// and tops the room up with bots to the threshold when the countdown ends.
type CapacityFilled struct{ base }

func (CapacityFilled) ShouldAutoStart(*room.Room) bool { return true }

func (c CapacityFilled) AutoStartThreshold(r *room.Room) int {
	return min(c.cfg.AutoStartThreshold(), c.MaxPlayers(r))
}

func (c CapacityFilled) ShouldStartTimer(r *room.Room) TimerDecision {
	if !waiting(r) || r.HumanCount() == 0 || r.PlayerCount() < c.MinPlayers(r) {
		return TimerDecision{}
	}
	return TimerDecision{Start: true, Duration: c.LobbyTimeout(r)}
}

func (c CapacityFilled) ShouldStartImmediately(r *room.Room) bool {
	return r.Phase == mode.PhaseLobby && r.PlayerCount() >= c.MaxPlayers(r)
}

func (CapacityFilled) OnPlayerJoin(r *room.Room, _ *room.Player) bool {
	return r.Phase == mode.PhaseLobby
}

func (CapacityFilled) OnPlayerLeave(r *room.Room, _ string) bool {
	return r.Phase == mode.PhaseLobby && r.LobbyTimer != nil && r.HumanCount() == 0
}

func (c CapacityFilled) BotsNeeded(r *room.Room) int {
	if r.Phase != mode.PhaseLobby {
		return 0
	}
	return max(0, c.AutoStartThreshold(r)-r.PlayerCount())
}
