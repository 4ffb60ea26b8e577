package api

import (
	"net/http"

	"github.com/okian/pokepack/internal/domain/types"
)

// UsersHandler handles registration, user and collection requests.
type UsersHandler struct {
	deps Dependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps Dependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// HandleRegister handles POST /api/users/register requests.
func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register"
	var req types.RegisterRequest
	if err := decodeJSON(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	u, err := h.deps.Register(r.Context(), req.Username)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleGetUser handles GET /api/users/{username} requests.
func (h *UsersHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.deps.User(r.Context(), r.PathValue("username"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleGetCollection handles GET /api/collections/{username} requests.
func (h *UsersHandler) HandleGetCollection(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Collection(r.Context(), r.PathValue("username"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
