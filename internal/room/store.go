package room

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
)

const maxCodeAttempts = 16

// Seat locates a session's player.
type Seat struct {
	RoomID   string
	PlayerID string
}

// Store owns every live room. Like Room it is driven from one goroutine.
type Store struct {
	rooms    map[string]*Room
	byCode   map[string]string
	order    []string
	sessions map[string]Seat

	newID   func() string
	newCode func() (string, error)
}

type StoreOption func(*Store)

// WithIDs replaces uuid generation, mostly for tests.
func WithIDs(f func() string) StoreOption {
	return func(s *Store) { s.newID = f }
}

func WithCodes(f func() (string, error)) StoreOption {
	return func(s *Store) { s.newCode = f }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		rooms:    make(map[string]*Room),
		byCode:   make(map[string]string),
		sessions: make(map[string]Seat),
		newID:    uuid.NewString,
		newCode:  GenerateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID hands out an identifier from the store's generator.
func (s *Store) NewID() string { return s.newID() }

func (s *Store) Create(kind Kind, modeID string, now time.Time) (*Room, error) {
	var code string
	for attempt := 0; ; attempt++ {
		if attempt == maxCodeAttempts {
			return nil, fmt.Errorf("generate join code: %d collisions", maxCodeAttempts)
		}
		c, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate join code: %w", err)
		}
		if _, taken := s.byCode[c]; !taken {
			code = c
			break
		}
	}

	r := New(s.newID(), code, kind, modeID, now)
	s.rooms[r.ID] = r
	s.byCode[code] = r.ID
	s.order = append(s.order, r.ID)
	return r, nil
}

func (s *Store) Find(id string) (*Room, error) {
	r, ok := s.rooms[id]
	if !ok {
		return nil, errs.NotFound("room %q", id)
	}
	return r, nil
}

// FindByCode is case-insensitive.
func (s *Store) FindByCode(code string) (*Room, error) {
	id, ok := s.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, errs.NotFound("room code %q", code)
	}
	return s.rooms[id], nil
}

// Destroy drops the room and every session bound to it.
func (s *Store) Destroy(id string) {
	r, ok := s.rooms[id]
	if !ok {
		return
	}
	delete(s.rooms, id)
	delete(s.byCode, r.Code)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	for sid, seat := range s.sessions {
		if seat.RoomID == id {
			delete(s.sessions, sid)
		}
	}
}

// Rooms returns live rooms in creation order.
func (s *Store) Rooms() []*Room {
	out := make([]*Room, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rooms[id])
	}
	return out
}

func (s *Store) Len() int { return len(s.rooms) }

func (s *Store) BindSession(sessionID string, seat Seat) {
	if sessionID == "" {
		return
	}
	s.sessions[sessionID] = seat
}

func (s *Store) Session(sessionID string) (Seat, bool) {
	seat, ok := s.sessions[sessionID]
	return seat, ok
}

func (s *Store) UnbindSession(sessionID string) {
	delete(s.sessions, sessionID)
}
