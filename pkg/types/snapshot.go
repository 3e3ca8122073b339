package types

type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Bot       bool   `json:"bot,omitempty"`
	Host      bool   `json:"host,omitempty"`
}

// RoomSnapshot is the full visible state of a room, sent on connect and
// served over HTTP.
type RoomSnapshot struct {
	ID              string       `json:"id"`
	Code            string       `json:"code"`
	Kind            string       `json:"kind"`
	Mode            string       `json:"mode"`
	Phase           string       `json:"phase"`
	Round           int          `json:"round"`
	PhaseDeadlineMS int64        `json:"phase_deadline_ms,omitempty"`
	LobbyDeadlineMS int64        `json:"lobby_deadline_ms,omitempty"`
	Players         []PlayerView `json:"players"`
	Spectators      []PlayerView `json:"spectators"`
	// Submitted lists players who have submitted this round.
	Submitted []string `json:"submitted"`
}

type ModeInfo struct {
	ID         string   `json:"id"`
	MinPlayers int      `json:"min_players"`
	MaxPlayers int      `json:"max_players"`
	Phases     []string `json:"phases"`
	Lobby      string   `json:"lobby"`
	Voting     string   `json:"voting"`
	Default    bool     `json:"default,omitempty"`
}

type CreateRoomRequest struct {
	Mode string `json:"mode"`
}

type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
	Code   string `json:"code"`
	Mode   string `json:"mode"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
