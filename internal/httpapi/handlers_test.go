package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/sketch-arena-backend/internal/hub"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
	"github.com/DoyleJ11/sketch-arena-backend/internal/rules"
	"github.com/DoyleJ11/sketch-arena-backend/internal/sched"
	"github.com/DoyleJ11/sketch-arena-backend/pkg/types"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	log := zaptest.NewLogger(t)
	reg := mode.NewRegistry(log)
	for _, c := range mode.Builtin() {
		require.NoError(t, reg.Register(c))
	}
	require.NoError(t, reg.SetDefault("blitz"))
	reg.Seal()

	clock := sched.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	h := hub.New(context.Background(), log, rules.NewResolver(reg), room.NewStore(), clock)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	return SetupRoutes(Deps{Hub: h, Modes: reg, Log: log})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetRoom(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/rooms", `{"mode":"royale"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created types.CreateRoomResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "royale", created.Mode)
	assert.Len(t, created.Code, 6)

	rec = do(t, router, http.MethodGet, "/rooms/"+strings.ToLower(created.Code), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap types.RoomSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, created.RoomID, snap.ID)
	assert.Equal(t, "lobby", snap.Phase)
	assert.Empty(t, snap.Players)
}

func TestCreateRoom_DefaultMode(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodPost, "/rooms", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created types.CreateRoomResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "blitz", created.Mode)
}

func TestErrors(t *testing.T) {
	router := newRouter(t)
	tests := []struct {
		name, method, path, body string
		status                   int
		kind                     string
	}{
		{"unknown mode", http.MethodPost, "/rooms", `{"mode":"nope"}`, http.StatusNotFound, "not_found"},
		{"bad body", http.MethodPost, "/rooms", `{`, http.StatusBadRequest, "config"},
		{"unknown room", http.MethodGet, "/rooms/ZZZZZZ", "", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			var body types.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.kind, body.Kind)
		})
	}
}

func TestListModes(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodGet, "/modes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var modes []types.ModeInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&modes))
	require.Len(t, modes, len(mode.Builtin()))
	assert.Equal(t, "classic", modes[0].ID)
	for _, m := range modes {
		assert.Equal(t, m.ID == "blitz", m.Default, m.ID)
		assert.Equal(t, "lobby", m.Phases[0])
	}
}

func TestHealthz(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
