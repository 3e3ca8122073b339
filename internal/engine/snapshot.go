package engine

import (
	"sort"

	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
	"github.com/DoyleJ11/sketch-arena-backend/pkg/types"
)

func (e *Engine) Snapshot(roomID string) (types.RoomSnapshot, error) {
	r, err := e.rooms.Find(roomID)
	if err != nil {
		return types.RoomSnapshot{}, err
	}
	return snapshot(r), nil
}

func (e *Engine) SnapshotByCode(code string) (types.RoomSnapshot, error) {
	r, err := e.rooms.FindByCode(code)
	if err != nil {
		return types.RoomSnapshot{}, err
	}
	return snapshot(r), nil
}

func snapshot(r *room.Room) types.RoomSnapshot {
	s := types.RoomSnapshot{
		ID:         r.ID,
		Code:       r.Code,
		Kind:       string(r.Kind),
		Mode:       r.ModeID,
		Phase:      string(r.Phase),
		Round:      r.Round,
		Players:    []types.PlayerView{},
		Spectators: []types.PlayerView{},
		Submitted:  []string{},
	}
	if t := r.PhaseTimer; t != nil {
		s.PhaseDeadlineMS = t.Deadline.UnixMilli()
	}
	if t := r.LobbyTimer; t != nil {
		s.LobbyDeadlineMS = t.Deadline.UnixMilli()
	}
	for _, p := range r.Members() {
		s.Players = append(s.Players, view(p, r.HostID))
	}
	for _, p := range r.Spectators {
		s.Spectators = append(s.Spectators, view(p, r.HostID))
	}
	sort.Slice(s.Spectators, func(i, j int) bool { return s.Spectators[i].ID < s.Spectators[j].ID })
	for _, sub := range r.RoundSubmissions() {
		s.Submitted = append(s.Submitted, sub.PlayerID)
	}
	return s
}

func view(p *room.Player, hostID string) types.PlayerView {
	return types.PlayerView{
		ID:        p.ID,
		Name:      p.Name,
		Connected: p.Connected(),
		Bot:       p.Bot,
		Host:      p.ID == hostID,
	}
}
