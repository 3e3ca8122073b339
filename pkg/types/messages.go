package types

import "encoding/json"

// Client -> Server message types.
const (
	MsgStart      = "start"
	MsgSubmit     = "submit"
	MsgVote       = "vote"
	MsgFinaleVote = "finale_vote"
	MsgLeave      = "leave"
	MsgPing       = "ping"
)

// Server -> Client message types that are not room events.
const (
	MsgWelcome = "welcome"
	MsgError   = "error"
	MsgPong    = "pong"
)

type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Choice  string          `json:"choice,omitempty"`
}

// ServerMessage carries room events. Only the fields relevant to Type are set.
type ServerMessage struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
	Phase    string `json:"phase,omitempty"`
	Round    int    `json:"round,omitempty"`
	// DeadlineMS is a unix millisecond timestamp; zero means no clock.
	DeadlineMS int64 `json:"deadline_ms,omitempty"`
	DurationMS int64 `json:"duration_ms,omitempty"`

	Assignment *Pairing      `json:"assignment,omitempty"`
	Finalists  []string      `json:"finalists,omitempty"`
	Ranking    []RankEntry   `json:"ranking,omitempty"`
	Change     *RatingChange `json:"change,omitempty"`
	Eliminated []string      `json:"eliminated,omitempty"`
	Winner     string        `json:"winner,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Seat       *Seat         `json:"seat,omitempty"`
	Room       *RoomSnapshot `json:"room,omitempty"`
	Error      string        `json:"error,omitempty"`
	Code       string        `json:"code,omitempty"`
}

type Seat struct {
	RoomID      string `json:"room_id"`
	PlayerID    string `json:"player_id"`
	SessionID   string `json:"session_id"`
	Spectator   bool   `json:"spectator"`
	Reconnected bool   `json:"reconnected"`
}

type Pairing struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type RankEntry struct {
	PlayerID    string  `json:"player_id"`
	Place       int     `json:"place"`
	Rating      float64 `json:"rating"`
	FinaleVotes int     `json:"finale_votes,omitempty"`
}

type RatingChange struct {
	Winner string  `json:"winner"`
	Loser  string  `json:"loser"`
	Delta  float64 `json:"delta"`
}
