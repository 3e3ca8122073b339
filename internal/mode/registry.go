package mode

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
)

// Registry holds one Config per variant. It is filled once at startup and
// sealed; after that it is read-only and safe to share.
type Registry struct {
	configs   map[string]*Config
	order     []string
	defaultID string
	sealed    bool
	log       *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		configs: make(map[string]*Config),
		log:     log.Named("modes"),
	}
}

// Register validates cfg and stores a defaulted copy. The first registered
// mode becomes the default until SetDefault says otherwise.
func (r *Registry) Register(cfg Config) error {
	if r.sealed {
		return errs.Config("registry is sealed; cannot register %q", cfg.ID)
	}
	if _, exists := r.configs[cfg.ID]; exists {
		return errs.Config("mode %q already registered", cfg.ID)
	}
	c := cfg.withDefaults()
	if err := c.Validate(); err != nil {
		return errs.WrapConfig(cfg.ID, err)
	}

	r.configs[c.ID] = &c
	r.order = append(r.order, c.ID)
	if r.defaultID == "" {
		r.defaultID = c.ID
	}
	r.log.Info("mode registered",
		zap.String("mode", c.ID),
		zap.Int("min_players", c.MinPlayers),
		zap.Int("max_players", c.MaxPlayers),
		zap.Any("phases", c.Phases),
		zap.String("lobby", string(c.Lobby.Type)),
		zap.String("voting", string(c.Voting.Type)),
	)
	return nil
}

func (r *Registry) Get(id string) (*Config, error) {
	c, ok := r.configs[id]
	if !ok {
		return nil, errs.NotFound("mode %q", id)
	}
	return c, nil
}

// Default returns nil only when nothing was registered.
func (r *Registry) Default() *Config {
	return r.configs[r.defaultID]
}

func (r *Registry) SetDefault(id string) error {
	if _, ok := r.configs[id]; !ok {
		return errs.NotFound("mode %q", id)
	}
	r.defaultID = id
	return nil
}

// IDs lists modes in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Seal() { r.sealed = true }
