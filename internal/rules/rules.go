// Package rules resolves a room's mode and kind to the strategies that drive it.
package rules

import (
	"github.com/DoyleJ11/sketch-arena-backend/internal/lobby"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/phase"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
	"github.com/DoyleJ11/sketch-arena-backend/internal/voting"
)

// Kit is everything the engine needs to run one room.
type Kit struct {
	Mode   *mode.Config
	Lobby  lobby.Policy
	Phase  phase.Manager
	Voting voting.Engine
}

type kitKey struct {
	mode string
	kind room.Kind
}

// Resolver caches one Kit per (mode, kind). Strategies are stateless so a
// cached Kit is shared by every room it serves. Not safe for concurrent use.
type Resolver struct {
	modes *mode.Registry
	kits  map[kitKey]Kit
}

func NewResolver(modes *mode.Registry) *Resolver {
	return &Resolver{modes: modes, kits: make(map[kitKey]Kit)}
}

func (r *Resolver) Modes() *mode.Registry { return r.modes }

func (r *Resolver) Kit(modeID string, kind room.Kind) (Kit, error) {
	k := kitKey{mode: modeID, kind: kind}
	if kit, ok := r.kits[k]; ok {
		return kit, nil
	}
	cfg, err := r.modes.Get(modeID)
	if err != nil {
		return Kit{}, err
	}
	kit := Kit{
		Mode:   cfg,
		Lobby:  lobby.For(cfg, kind),
		Phase:  phase.For(cfg),
		Voting: voting.For(cfg),
	}
	r.kits[k] = kit
	return kit, nil
}

// ForRoom is Kit keyed by the room's own mode and kind.
func (r *Resolver) ForRoom(rm *room.Room) (Kit, error) {
	return r.Kit(rm.ModeID, rm.Kind)
}
