package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/hub"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/pkg/types"
)

// CreateRoom opens a private room. The body is optional; an empty mode
// picks the default.
func CreateRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, errs.Config("bad request body: %v", err))
			return
		}

		created, err := h.CreateRoom(r.Context(), req.Mode)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := h.Snapshot(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// ListModes serves the sealed registry, which is safe to read concurrently.
func ListModes(reg *mode.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		def := reg.Default()
		out := make([]types.ModeInfo, 0, len(reg.IDs()))
		for _, id := range reg.IDs() {
			cfg, err := reg.Get(id)
			if err != nil {
				continue
			}
			info := types.ModeInfo{
				ID:         cfg.ID,
				MinPlayers: cfg.MinPlayers,
				MaxPlayers: cfg.MaxPlayers,
				Lobby:      string(cfg.Lobby.Type),
				Voting:     string(cfg.Voting.Type),
				Default:    def != nil && def.ID == cfg.ID,
			}
			for _, p := range cfg.Phases {
				info.Phases = append(info.Phases, string(p))
			}
			out = append(out, info)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := errs.HTTPStatus(err)
	if errors.Is(err, hub.ErrClosed) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, types.ErrorResponse{Error: err.Error(), Kind: string(errs.KindOf(err))})
}
