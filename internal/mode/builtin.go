package mode

import "time"

// Builtin returns the variants every server registers at boot.
func Builtin() []Config {
	return []Config{
		{
			ID:                "classic",
			MinPlayers:        3,
			MaxPlayers:        12,
			PrivateMinPlayers: 2,
			Phases:            []Phase{PhaseLobby, PhaseCountdown, PhaseDrawing, PhaseVoting, PhaseFinale, PhaseResults},
			Timers: map[Phase]*time.Duration{
				PhaseLobby:     nil,
				PhaseCountdown: Timer(5 * time.Second),
				PhaseDrawing:   Timer(90 * time.Second),
				PhaseVoting:    Timer(20 * time.Second),
				PhaseFinale:    Timer(25 * time.Second),
				PhaseResults:   Timer(15 * time.Second),
			},
			Lobby: LobbyConfig{
				Type:               LobbyAutoStart,
				AutoStartThreshold: 5,
				Countdown:          20 * time.Second,
				AllowSpectators:    true,
			},
			Voting:         VotingConfig{Type: VotingElo, Finale: true},
			ReconnectGrace: 60 * time.Second,
			Content:        map[string]any{"canvas": map[string]any{"width": 35, "height": 20}},
		},
		{
			ID:         "blitz",
			MinPlayers: 1,
			MaxPlayers: 8,
			Phases:     []Phase{PhaseLobby, PhaseCountdown, PhaseDrawing, PhaseVoting, PhaseResults},
			Timers: map[Phase]*time.Duration{
				PhaseCountdown: Timer(3 * time.Second),
				PhaseDrawing:   Timer(45 * time.Second),
				PhaseVoting:    Timer(12 * time.Second),
				PhaseResults:   Timer(10 * time.Second),
			},
			Lobby: LobbyConfig{
				Type:               LobbyAutoStart,
				AutoStartThreshold: 4,
				Countdown:          10 * time.Second,
				FillWithBots:       true,
			},
			Voting:         VotingConfig{Type: VotingElo},
			ReconnectGrace: 30 * time.Second,
		},
		{
			ID:         "duel",
			MinPlayers: 2,
			MaxPlayers: 2,
			Phases:     []Phase{PhaseLobby, PhaseCountdown, PhaseDrawing, PhaseResults},
			Timers: map[Phase]*time.Duration{
				PhaseCountdown: Timer(3 * time.Second),
				PhaseDrawing:   Timer(60 * time.Second),
				PhaseResults:   Timer(10 * time.Second),
			},
			Lobby:          LobbyConfig{Type: LobbyInstant, Countdown: 5 * time.Second},
			ReconnectGrace: 30 * time.Second,
		},
		{
			ID:         "solo",
			MinPlayers: 1,
			MaxPlayers: 1,
			Phases:     []Phase{PhaseLobby, PhaseCountdown, PhaseDrawing, PhaseResults},
			Timers: map[Phase]*time.Duration{
				PhaseCountdown: Timer(3 * time.Second),
				PhaseDrawing:   nil,
			},
			Lobby: LobbyConfig{Type: LobbyInstant},
		},
		{
			ID:         "relay",
			MinPlayers: 3,
			MaxPlayers: 10,
			Phases:     []Phase{PhaseLobby, PhaseCountdown, PhaseGuessing, PhaseReveal, PhaseResults},
			Timers: map[Phase]*time.Duration{
				PhaseGuessing: Timer(60 * time.Second),
				PhaseReveal:   Timer(8 * time.Second),
			},
			Lobby: LobbyConfig{
				Type:               LobbyAutoStart,
				AutoStartThreshold: 3,
				Countdown:          15 * time.Second,
				AllowLateJoin:      true,
			},
			ReconnectGrace: 45 * time.Second,
		},
		{
			ID:         "royale",
			MinPlayers: 3,
			MaxPlayers: 16,
			Phases:     []Phase{PhaseLobby, PhaseCountdown, PhaseDrawing, PhaseVoting, PhaseElimination, PhaseWinner},
			Timers: map[Phase]*time.Duration{
				PhaseDrawing: Timer(60 * time.Second),
				PhaseVoting:  Timer(15 * time.Second),
			},
			Lobby: LobbyConfig{
				Type:               LobbyAutoStart,
				AutoStartThreshold: 4,
				Countdown:          20 * time.Second,
				AllowSpectators:    true,
			},
			Voting:         VotingConfig{Type: VotingElo, FixedRounds: 2},
			ReconnectGrace: 30 * time.Second,
		},
	}
}
