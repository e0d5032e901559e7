package handlers

import (
	"net/http"

	"portfolio/src/models"
	"portfolio/src/schemas"
	"portfolio/src/services"
)

// AccountsHandler serves account lifecycle endpoints.
type AccountsHandler struct {
	accounting *services.AccountingService
}

func NewAccountsHandler(accounting *services.AccountingService) *AccountsHandler {
	return &AccountsHandler{accounting: accounting}
}

func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req schemas.CreateAccountRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	account, err := h.accounting.CreateAccount(r.Context(), req.Username, req.PreferredCurrency, models.Role(req.Role))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusCreated, schemas.NewAccountResponse(account))
}

func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	account, err := h.accounting.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, schemas.NewAccountResponse(account))
}

func (h *AccountsHandler) UpdateCurrency(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req schemas.UpdateCurrencyRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.accounting.SetPreferredCurrency(r.Context(), id, req.Currency); err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (h *AccountsHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req schemas.UpdateRoleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.accounting.SetRole(r.Context(), id, models.Role(req.Role)); err != nil {
		writeServiceError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}
