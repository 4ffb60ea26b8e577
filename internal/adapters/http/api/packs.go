package api

import (
	"net/http"

	"github.com/okian/pokepack/internal/domain/types"
)

// PacksHandler handles the pack list and pack openings.
type PacksHandler struct {
	deps Dependencies
}

// NewPacksHandler creates a new packs handler.
func NewPacksHandler(deps Dependencies) *PacksHandler {
	return &PacksHandler{deps: deps}
}

// HandleList handles GET /api/packs requests. ?q= filters by name or id.
func (h *PacksHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Packs(r.Context(), r.URL.Query().Get("q")))
}

// HandleOpen handles POST /api/packs/open requests.
func (h *PacksHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	const op = "api.open_pack"
	var req types.OpenPackRequest
	if err := decodeJSON(op, r, &req); err != nil {
		respondError(w, err)
		return
	}
	res, err := h.deps.OpenPack(r.Context(), req.Username, req.SetID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
