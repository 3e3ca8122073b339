package mode

import (
	"slices"
	"time"

	"go.uber.org/multierr"

	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
)

type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseCountdown   Phase = "countdown"
	PhaseDrawing     Phase = "drawing"
	PhaseGuessing    Phase = "guessing"
	PhaseReveal      Phase = "reveal"
	PhaseVoting      Phase = "voting"
	PhaseFinale      Phase = "finale"
	PhaseElimination Phase = "elimination"
	PhaseResults     Phase = "results"
	PhaseWinner      Phase = "winner"
)

// EndsOnItsOwn reports whether p can finish without a clock: the lobby
// waits on its policy, submission and judging phases on their participants.
func (p Phase) EndsOnItsOwn() bool {
	switch p {
	case PhaseLobby, PhaseDrawing, PhaseGuessing, PhaseVoting, PhaseFinale:
		return true
	}
	return false
}

type LobbyType string

const (
	LobbyInstant   LobbyType = "instant"
	LobbyAutoStart LobbyType = "auto-start"
	LobbyNone      LobbyType = "none"
)

type VotingType string

const (
	VotingNone VotingType = "none"
	VotingElo  VotingType = "elo"
)

const (
	DefaultStartRating     = 1000.0
	DefaultKFactor         = 32.0
	DefaultFinalistPercent = 0.10
	DefaultMinFinalists    = 3
	DefaultMaxFinalists    = 10
	DefaultFairnessBound   = 1.0
)

type LobbyConfig struct {
	Type               LobbyType
	AutoStartThreshold int
	// Countdown is how long the lobby timer runs once the start condition holds.
	Countdown       time.Duration
	AllowLateJoin   bool
	AllowSpectators bool
	FillWithBots    bool
}

type VotingConfig struct {
	Type        VotingType
	StartRating float64
	KFactor     float64
	// Rounds overrides the default round formula. FixedRounds is its
	// file-friendly form and is only consulted when Rounds is nil.
	Rounds          func(n int) int
	FixedRounds     int
	Finale          bool
	FinalistPercent float64
	MinFinalists    int
	MaxFinalists    int
	FairnessBound   float64
}

// Config is the immutable description of one game variant.
type Config struct {
	ID                string
	MinPlayers        int
	MaxPlayers        int
	PrivateMinPlayers int
	PrivateMaxPlayers int

	Phases []Phase
	// Timers maps a phase to its duration. A missing key falls back to the
	// phase manager's constant; a nil value means the phase has no clock,
	// which only phases that EndsOnItsOwn may use.
	Timers map[Phase]*time.Duration

	Lobby  LobbyConfig
	Voting VotingConfig

	ReconnectGrace time.Duration

	// Content holds canvas and content rules. The core never reads it.
	Content map[string]any
}

// Timer returns a pointer usable as a Timers value.
func Timer(d time.Duration) *time.Duration { return &d }

func (c *Config) HasPhase(p Phase) bool {
	return slices.Contains(c.Phases, p)
}

// PhaseTimer reports the configured entry for p: (d, true, true) for a
// clock, (0, false, true) for an explicit "no clock", and found=false when
// the mode does not mention p.
func (c *Config) PhaseTimer(p Phase) (d time.Duration, clocked bool, found bool) {
	v, ok := c.Timers[p]
	if !ok {
		return 0, false, false
	}
	if v == nil {
		return 0, false, true
	}
	return *v, true, true
}

func (c *Config) AutoStartThreshold() int {
	if c.Lobby.AutoStartThreshold > 0 {
		return c.Lobby.AutoStartThreshold
	}
	return c.MinPlayers
}

func (c *Config) PrivateMin() int {
	if c.PrivateMinPlayers > 0 {
		return c.PrivateMinPlayers
	}
	return c.MinPlayers
}

func (c *Config) PrivateMax() int {
	if c.PrivateMaxPlayers > 0 {
		return c.PrivateMaxPlayers
	}
	return c.MaxPlayers
}

// withDefaults fills zero voting parameters.
func (c Config) withDefaults() Config {
	v := &c.Voting
	if v.Type == "" {
		v.Type = VotingNone
	}
	if v.StartRating == 0 {
		v.StartRating = DefaultStartRating
	}
	if v.KFactor == 0 {
		v.KFactor = DefaultKFactor
	}
	if v.FinalistPercent == 0 {
		v.FinalistPercent = DefaultFinalistPercent
	}
	if v.MinFinalists == 0 {
		v.MinFinalists = DefaultMinFinalists
	}
	if v.MaxFinalists == 0 {
		v.MaxFinalists = DefaultMaxFinalists
	}
	if v.FairnessBound == 0 {
		v.FairnessBound = DefaultFairnessBound
	}
	if v.Rounds == nil && v.FixedRounds > 0 {
		fixed := v.FixedRounds
		v.Rounds = func(int) int { return fixed }
	}
	if c.Lobby.Type == "" {
		c.Lobby.Type = LobbyAutoStart
	}
	c.Phases = slices.Clone(c.Phases)
	return c
}

// Validate reports every rule the config breaks.
func (c *Config) Validate() error {
	var err error
	if c.ID == "" {
		err = multierr.Append(err, errs.Config("id is empty"))
	}
	if len(c.Phases) == 0 {
		err = multierr.Append(err, errs.Config("phase list is empty"))
	} else if !c.HasPhase(PhaseLobby) {
		err = multierr.Append(err, errs.Config("phase list must include %q", PhaseLobby))
	} else if !slices.ContainsFunc(c.Phases, func(p Phase) bool { return p != PhaseLobby }) {
		err = multierr.Append(err, errs.Config("phase list has nothing to play besides %q", PhaseLobby))
	}
	seen := make(map[Phase]bool, len(c.Phases))
	for _, p := range c.Phases {
		if seen[p] {
			err = multierr.Append(err, errs.Config("phase %q declared twice", p))
		}
		seen[p] = true
	}
	for p, d := range c.Timers {
		switch {
		case !seen[p]:
			err = multierr.Append(err, errs.Config("timer for undeclared phase %q", p))
		case d == nil && !p.EndsOnItsOwn():
			err = multierr.Append(err, errs.Config("phase %q cannot run without a timer", p))
		}
	}
	if c.MinPlayers < 1 {
		err = multierr.Append(err, errs.Config("min players %d < 1", c.MinPlayers))
	}
	if c.MaxPlayers < c.MinPlayers {
		err = multierr.Append(err, errs.Config("max players %d < min players %d", c.MaxPlayers, c.MinPlayers))
	}
	if c.PrivateMaxPlayers > 0 && c.PrivateMaxPlayers < c.PrivateMin() {
		err = multierr.Append(err, errs.Config("private max %d < private min %d", c.PrivateMaxPlayers, c.PrivateMin()))
	}

	switch c.Lobby.Type {
	case LobbyAutoStart:
		if t := c.AutoStartThreshold(); t < c.MinPlayers || t > c.MaxPlayers {
			err = multierr.Append(err, errs.Config("auto-start threshold %d outside [%d, %d]", t, c.MinPlayers, c.MaxPlayers))
		}
	case LobbyInstant:
		if c.MinPlayers != c.MaxPlayers {
			err = multierr.Append(err, errs.Config("instant lobby needs a fixed size, got [%d, %d]", c.MinPlayers, c.MaxPlayers))
		}
	case LobbyNone:
	default:
		err = multierr.Append(err, errs.Config("unknown lobby type %q", c.Lobby.Type))
	}

	switch c.Voting.Type {
	case VotingNone:
	case VotingElo:
		if c.Voting.KFactor <= 0 {
			err = multierr.Append(err, errs.Config("k-factor must be positive"))
		}
		if c.Voting.MaxFinalists < c.Voting.MinFinalists {
			err = multierr.Append(err, errs.Config("max finalists %d < min finalists %d", c.Voting.MaxFinalists, c.Voting.MinFinalists))
		}
	default:
		err = multierr.Append(err, errs.Config("unknown voting type %q", c.Voting.Type))
	}
	return err
}
