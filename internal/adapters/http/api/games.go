package api

import (
	"net/http"

	"github.com/okian/pokepack/internal/domain/types"
)

// GamesHandler handles the mini-game endpoints.
type GamesHandler struct {
	deps Dependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps Dependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

// HandleMemoryFinish handles POST /api/games/memory/finish requests.
func (h *GamesHandler) HandleMemoryFinish(w http.ResponseWriter, r *http.Request) {
	const op = "api.memory_finish"
	var req types.MemoryFinishRequest
	if err := decodeJSON(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	res, err := h.deps.FinishMemory(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSpin handles POST /api/games/spin requests.
func (h *GamesHandler) HandleSpin(w http.ResponseWriter, r *http.Request) {
	const op = "api.spin"
	var req types.UsernameRequest
	if err := decodeJSON(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	res, err := h.deps.Spin(r.Context(), req.Username)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSilhouetteStart handles POST /api/games/silhouette/start requests.
func (h *GamesHandler) HandleSilhouetteStart(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.StartSilhouette(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSilhouetteGuess handles POST /api/games/silhouette/guess requests.
func (h *GamesHandler) HandleSilhouetteGuess(w http.ResponseWriter, r *http.Request) {
	const op = "api.silhouette_guess"
	var req types.SilhouetteGuessRequest
	if err := decodeJSON(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	res, err := h.deps.GuessSilhouette(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleTypingFinish handles POST /api/games/typing/finish requests.
func (h *GamesHandler) HandleTypingFinish(w http.ResponseWriter, r *http.Request) {
	const op = "api.typing_finish"
	var req types.TypingFinishRequest
	if err := decodeJSON(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	res, err := h.deps.FinishTyping(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
