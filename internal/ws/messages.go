package ws

import (
	"github.com/DoyleJ11/sketch-arena-backend/internal/engine"
	"github.com/DoyleJ11/sketch-arena-backend/pkg/types"
)

// toMessage renders ev for the player behind one connection. Vote
// acknowledgements go only to the voter, and a voting round carries only the
// recipient's own pairing.
func toMessage(ev engine.Event, playerID string) (types.ServerMessage, bool) {
	if ev.Type == engine.EvtVoteAcknowledged && ev.PlayerID != playerID {
		return types.ServerMessage{}, false
	}

	m := types.ServerMessage{
		Type:       string(ev.Type),
		RoomID:     ev.RoomID,
		PlayerID:   ev.PlayerID,
		Phase:      string(ev.Phase),
		Round:      ev.Round,
		DurationMS: ev.Duration.Milliseconds(),
		Finalists:  ev.Finalists,
		Eliminated: ev.Eliminated,
		Winner:     ev.Winner,
		Reason:     ev.Reason,
	}
	if !ev.Deadline.IsZero() {
		m.DeadlineMS = ev.Deadline.UnixMilli()
	}
	for _, a := range ev.Assignments {
		if a.VoterID == playerID {
			m.Assignment = &types.Pairing{Left: a.Left, Right: a.Right}
			break
		}
	}
	for _, p := range ev.Ranking {
		m.Ranking = append(m.Ranking, types.RankEntry{
			PlayerID:    p.PlayerID,
			Place:       p.Place,
			Rating:      p.Rating,
			FinaleVotes: p.FinaleVotes,
		})
	}
	if c := ev.Change; c != nil {
		m.Change = &types.RatingChange{Winner: c.WinnerID, Loser: c.LoserID, Delta: c.Delta}
	}
	return m, true
}

func errorMessage(err error, code string) types.ServerMessage {
	return types.ServerMessage{Type: types.MsgError, Error: err.Error(), Code: code}
}
