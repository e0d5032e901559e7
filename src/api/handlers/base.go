package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"portfolio/src/repositories"
	"portfolio/src/services"
	"portfolio/src/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// respond writes v as a JSON response with the given status.
func respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decodeAndValidate parses the JSON body into v and runs struct validation.
func decodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return utils.BadRequest("invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		return utils.BadRequest(err.Error())
	}
	return nil
}

// accountID extracts and parses the {accountID} route parameter.
func accountID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		return uuid.Nil, utils.BadRequest("invalid account id")
	}
	return id, nil
}

// writeServiceError maps the engine's error taxonomy onto HTTP statuses.
// Validation failures are the client's fault, solvency rejections are
// unprocessable, upstream and storage failures are gateway-side.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidOrder):
		utils.WriteError(w, utils.BadRequest(err.Error()))
	case errors.Is(err, services.ErrTradeNotPermitted):
		utils.WriteError(w, utils.Forbidden(err.Error()))
	case errors.Is(err, repositories.ErrAccountNotFound):
		utils.WriteError(w, utils.NotFound(err.Error()))
	case errors.Is(err, repositories.ErrDuplicateUsername):
		utils.WriteError(w, utils.UnprocessableEntity(err.Error()))
	case errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrInsufficientHoldings):
		utils.WriteError(w, utils.UnprocessableEntity(err.Error()))
	case errors.Is(err, services.ErrPriceUnavailable):
		utils.WriteError(w, utils.BadGateway(err.Error()))
	case errors.Is(err, services.ErrStorageUnavailable):
		utils.WriteError(w, utils.ServiceUnavailable(err.Error()))
	default:
		utils.WriteError(w, err)
	}
}
