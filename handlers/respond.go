package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ferreirogomes/imobi/models"

	"github.com/go-playground/validator/v10"
)

// validate é a instância compartilhada de validação dos corpos de
// requisição.
var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError traduz a classe do erro para o status HTTP e devolve o
// corpo padronizado. Falhas parciais carregam as parcelas concluídas,
// para que o chamador saiba o que já foi liquidado.
func respondError(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error()}

	var partial *models.PartialFailureError
	if errors.As(err, &partial) {
		body["completed"] = partial.Completed
	}
	var payErr *models.PaymentError
	if errors.As(err, &payErr) {
		body["kind"] = payErr.Kind
	}

	respondJSON(w, statusFor(err), body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientBalance), errors.Is(err, models.ErrInvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeAndValidate lê o corpo JSON e aplica as tags de validação do
// struct de requisição.
func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}
