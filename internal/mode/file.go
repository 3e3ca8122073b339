package mode

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes "90s" style strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

type fileModes struct {
	Modes []fileMode `yaml:"modes"`
}

type fileMode struct {
	ID                string              `yaml:"id"`
	MinPlayers        int                 `yaml:"min_players"`
	MaxPlayers        int                 `yaml:"max_players"`
	PrivateMinPlayers int                 `yaml:"private_min_players"`
	PrivateMaxPlayers int                 `yaml:"private_max_players"`
	Phases            []Phase             `yaml:"phases"`
	Timers            map[Phase]*Duration `yaml:"timers"`
	ReconnectGrace    Duration            `yaml:"reconnect_grace"`
	Content           map[string]any      `yaml:"content"`
	Lobby             struct {
		Type               LobbyType `yaml:"type"`
		AutoStartThreshold int       `yaml:"auto_start_threshold"`
		Countdown          Duration  `yaml:"countdown"`
		AllowLateJoin      bool      `yaml:"allow_late_join"`
		AllowSpectators    bool      `yaml:"allow_spectators"`
		FillWithBots       bool      `yaml:"fill_with_bots"`
	} `yaml:"lobby"`
	Voting struct {
		Type            VotingType `yaml:"type"`
		StartRating     float64    `yaml:"start_rating"`
		KFactor         float64    `yaml:"k_factor"`
		Rounds          int        `yaml:"rounds"`
		Finale          bool       `yaml:"finale"`
		FinalistPercent float64    `yaml:"finalist_percent"`
		MinFinalists    int        `yaml:"min_finalists"`
		MaxFinalists    int        `yaml:"max_finalists"`
		FairnessBound   float64    `yaml:"fairness_bound"`
	} `yaml:"voting"`
}

// Decode parses a modes document. A timer written as null means the phase
// has no clock.
func Decode(data []byte) ([]Config, error) {
	var doc fileModes
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode modes: %w", err)
	}

	out := make([]Config, 0, len(doc.Modes))
	for _, m := range doc.Modes {
		c := Config{
			ID:                m.ID,
			MinPlayers:        m.MinPlayers,
			MaxPlayers:        m.MaxPlayers,
			PrivateMinPlayers: m.PrivateMinPlayers,
			PrivateMaxPlayers: m.PrivateMaxPlayers,
			Phases:            m.Phases,
			ReconnectGrace:    time.Duration(m.ReconnectGrace),
			Content:           m.Content,
			Lobby: LobbyConfig{
				Type:               m.Lobby.Type,
				AutoStartThreshold: m.Lobby.AutoStartThreshold,
				Countdown:          time.Duration(m.Lobby.Countdown),
				AllowLateJoin:      m.Lobby.AllowLateJoin,
				AllowSpectators:    m.Lobby.AllowSpectators,
				FillWithBots:       m.Lobby.FillWithBots,
			},
			Voting: VotingConfig{
				Type:            m.Voting.Type,
				StartRating:     m.Voting.StartRating,
				KFactor:         m.Voting.KFactor,
				FixedRounds:     m.Voting.Rounds,
				Finale:          m.Voting.Finale,
				FinalistPercent: m.Voting.FinalistPercent,
				MinFinalists:    m.Voting.MinFinalists,
				MaxFinalists:    m.Voting.MaxFinalists,
				FairnessBound:   m.Voting.FairnessBound,
			},
		}
		if m.Timers != nil {
			c.Timers = make(map[Phase]*time.Duration, len(m.Timers))
			for p, d := range m.Timers {
				if d == nil {
					c.Timers[p] = nil
					continue
				}
				c.Timers[p] = Timer(time.Duration(*d))
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func LoadFile(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
