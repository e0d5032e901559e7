package handlers

import (
	"fmt"
	"net/http"

	"portfolio/src/models"
	"portfolio/src/schemas"
	"portfolio/src/services"

	"github.com/go-chi/chi/v5"
)

// TradesHandler serves trading and portfolio read endpoints.
type TradesHandler struct {
	accounting *services.AccountingService
}

func NewTradesHandler(accounting *services.AccountingService) *TradesHandler {
	return &TradesHandler{accounting: accounting}
}

func (h *TradesHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req schemas.TradeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.accounting.ExecuteTrade(r.Context(), id, services.TradeOrder{
		Symbol:        req.Symbol,
		AssetType:     models.AssetType(req.AssetType),
		Side:          models.Side(req.Side),
		Quantity:      req.Quantity,
		Price:         req.Price,
		QuoteCurrency: req.QuoteCurrency,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusCreated, result)
}

func (h *TradesHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	balances, err := h.accounting.ListBalances(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, balances)
}

func (h *TradesHandler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	holdings, err := h.accounting.ListHoldings(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, holdings)
}

func (h *TradesHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	transactions, err := h.accounting.ListTransactions(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, transactions)
}

func (h *TradesHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	ctx := r.Context()

	balances, err := h.accounting.ListBalances(ctx, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	holdings, err := h.accounting.ListHoldings(ctx, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	transactions, err := h.accounting.ListTransactions(ctx, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, schemas.PortfolioResponse{
		Balances:     balances,
		Holdings:     holdings,
		Transactions: transactions,
	})
}

func (h *TradesHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	name, data, err := h.accounting.PortfolioCSV(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *TradesHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	currency := chi.URLParam(r, "currency")

	amount, err := h.accounting.GetBalance(r.Context(), id, currency)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"currency": currency,
		"amount":   amount,
	})
}
