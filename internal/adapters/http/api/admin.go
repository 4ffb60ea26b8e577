package api

import (
	"net/http"

	"github.com/okian/pokepack/internal/domain/ledger"
	"github.com/okian/pokepack/internal/domain/types"
)

// AdminHandler handles the token-guarded admin endpoints.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// authorize checks the admin token and decodes the body into v. A header
// token is checked before the body is read; without one the token field of
// the decoded body is used, and a body that cannot be decoded is refused as
// unauthenticated.
func (h *AdminHandler) authorize(op string, r *http.Request, v any, bodyToken *string) error {
	if t := r.Header.Get(AdminTokenHeader); t != "" {
		if err := h.deps.CheckAdmin(t); err != nil {
			return err
		}
		return decodeJSON(op, r, v)
	}
	if err := decodeJSON(op, r, v); err != nil {
		return h.deps.CheckAdmin("")
	}
	return h.deps.CheckAdmin(*bodyToken)
}

// HandleSetCoins handles POST /api/admin/set-coins requests.
func (h *AdminHandler) HandleSetCoins(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_coins"
	var req types.SetCoinsRequest
	if err := h.authorize(op, r, &req, &req.Token); err != nil {
		respondError(w, err)
		return
	}
	if req.Amount == nil {
		respondError(w, WrapKind(op, ledger.ErrInvalidAmount, nil))
		return
	}
	u, err := h.deps.SetCoins(r.Context(), req.Username, *req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleWarmSetCache handles POST /api/admin/warm-set-cache requests.
func (h *AdminHandler) HandleWarmSetCache(w http.ResponseWriter, r *http.Request) {
	const op = "api.warm_set_cache"
	var req types.WarmRequest
	if err := h.authorize(op, r, &req, &req.Token); err != nil {
		respondError(w, err)
		return
	}
	res, err := h.deps.WarmSetCache(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleFetchAllCards handles POST /api/admin/fetch-all-cards requests. The
// download runs in the background.
func (h *AdminHandler) HandleFetchAllCards(w http.ResponseWriter, r *http.Request) {
	const op = "api.fetch_all_cards"
	var req types.AdminRequest
	if err := h.authorize(op, r, &req, &req.Token); err != nil {
		respondError(w, err)
		return
	}
	id, err := h.deps.FetchAllCards(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.AcceptedResponse{
		Message: "Fetching all cards in the background",
		JobID:   id,
	})
}

// HandleTestPacks handles GET /api/admin/test-packs requests.
func (h *AdminHandler) HandleTestPacks(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.CheckAdmin(adminToken(r, "")); err != nil {
		respondError(w, err)
		return
	}
	probes, err := h.deps.TestPacks(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.PackProbeResponse{Results: probes})
}

// HandleRehydrateImages handles POST /api/admin/rehydrate-images requests.
func (h *AdminHandler) HandleRehydrateImages(w http.ResponseWriter, r *http.Request) {
	const op = "api.rehydrate_images"
	var req types.RehydrateRequest
	if err := h.authorize(op, r, &req, &req.Token); err != nil {
		respondError(w, err)
		return
	}
	res, err := h.deps.RehydrateImages(r.Context(), req.Username)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
