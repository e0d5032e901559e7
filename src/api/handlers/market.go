package handlers

import (
	"errors"
	"net/http"

	"portfolio/src/clients/marketdata"
	"portfolio/src/models"
	"portfolio/src/utils"

	"github.com/go-chi/chi/v5"
)

// MarketHandler serves price lookup, symbol search and news endpoints.
type MarketHandler struct {
	marketData *marketdata.MarketDataService
}

func NewMarketHandler(marketData *marketdata.MarketDataService) *MarketHandler {
	return &MarketHandler{marketData: marketData}
}

func (h *MarketHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	assetType := r.URL.Query().Get("assetType")
	if assetType == "" {
		assetType = string(models.AssetStock)
	}
	if !models.ValidAssetType(assetType) {
		utils.WriteError(w, utils.BadRequest("unknown asset type"))
		return
	}

	quote, err := h.marketData.GetQuote(r.Context(), symbol, models.AssetType(assetType))
	if err != nil {
		h.writeMarketError(w, err)
		return
	}
	respond(w, http.StatusOK, quote)
}

func (h *MarketHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		utils.WriteError(w, utils.BadRequest("query parameter q required"))
		return
	}

	matches, err := h.marketData.SearchSymbol(r.Context(), query)
	if err != nil {
		h.writeMarketError(w, err)
		return
	}
	respond(w, http.StatusOK, matches)
}

func (h *MarketHandler) News(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		query = "markets"
	}

	articles, err := h.marketData.MarketNews(r.Context(), query)
	if err != nil {
		h.writeMarketError(w, err)
		return
	}
	if articles == nil {
		articles = []marketdata.NewsArticle{}
	}
	respond(w, http.StatusOK, articles)
}

func (h *MarketHandler) writeMarketError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, marketdata.ErrSymbolNotFound):
		utils.WriteError(w, utils.NotFound(err.Error()))
	case errors.Is(err, marketdata.ErrUnavailable):
		utils.WriteError(w, utils.BadGateway(err.Error()))
	default:
		utils.WriteError(w, err)
	}
}
