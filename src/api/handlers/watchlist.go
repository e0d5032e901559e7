package handlers

import (
	"net/http"

	"portfolio/src/models"
	"portfolio/src/schemas"
	"portfolio/src/services"
)

// WatchlistHandler serves the per-account symbol watchlist.
type WatchlistHandler struct {
	accounting *services.AccountingService
}

func NewWatchlistHandler(accounting *services.AccountingService) *WatchlistHandler {
	return &WatchlistHandler{accounting: accounting}
}

func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items, err := h.accounting.ListWatchlist(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, items)
}

func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req schemas.WatchRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.accounting.AddWatch(r.Context(), id, req.Symbol, models.AssetType(req.AssetType)); err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusCreated, nil)
}

func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req schemas.WatchRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.accounting.RemoveWatch(r.Context(), id, req.Symbol, models.AssetType(req.AssetType)); err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}
