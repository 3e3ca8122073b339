package room

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

const maxNameRunes = 24

type Player struct {
	ID             string
	SessionID      string
	Name           string
	Status         Status
	DisconnectedAt time.Time
	JoinedAt       time.Time
	Bot            bool
}

func NewPlayer(id, sessionID, name string, now time.Time) *Player {
	return &Player{
		ID:        id,
		SessionID: sessionID,
		Name:      NormalizeName(name),
		Status:    StatusConnected,
		JoinedAt:  now,
	}
}

func (p *Player) Connected() bool { return p.Status == StatusConnected }

func (p *Player) Disconnect(now time.Time) {
	p.Status = StatusDisconnected
	p.DisconnectedAt = now
}

func (p *Player) Reconnect() {
	p.Status = StatusConnected
	p.DisconnectedAt = time.Time{}
}

// WithinGrace reports whether a disconnected player may still reclaim the
// slot. The window is half-open: at exactly DisconnectedAt+grace it is gone.
func (p *Player) WithinGrace(now time.Time, grace time.Duration) bool {
	if p.Connected() {
		return true
	}
	return now.Sub(p.DisconnectedAt) < grace
}

// NormalizeName composes the display name to NFC, drops control characters,
// collapses whitespace and truncates it.
func NormalizeName(name string) string {
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")

	if runes := []rune(name); len(runes) > maxNameRunes {
		name = strings.TrimSpace(string(runes[:maxNameRunes]))
	}
	if name == "" {
		return "Player"
	}
	return name
}
