package shipments_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/services/ingest"
	"github.com/BearBump/ShipLedger/internal/services/shipments"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type errorEnvelope struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"requestId,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{
		Error:     errorBody{Code: code, Message: message, Details: details},
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// fail переводит ошибку сервиса в HTTP-ответ.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shipments.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "Envío no encontrado", nil)
	case errors.Is(err, shipments.ErrDuplicateKey):
		writeError(w, r, http.StatusConflict, "duplicate_key", "Ya existe un envío con ese pedido y guía", nil)
	case errors.Is(err, shipments.ErrInvalidStatus):
		writeError(w, r, http.StatusBadRequest, "invalid_status", err.Error(), nil)
	case errors.Is(err, shipments.ErrMissingKey):
		writeError(w, r, http.StatusBadRequest, "missing_key", err.Error(), nil)
	case errors.Is(err, shipments.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	case errors.Is(err, carriers.ErrUnknownCarrier):
		writeError(w, r, http.StatusBadRequest, "unknown_carrier", err.Error(), nil)
	case errors.Is(err, ingest.ErrEmptyFile), errors.Is(err, ingest.ErrBadFile):
		writeError(w, r, http.StatusBadRequest, "invalid_file", err.Error(), nil)
	default:
		a.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "internal", "Error interno del servidor", nil)
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", "Cuerpo JSON inválido", err.Error())
		return false
	}
	return true
}

// decode читает JSON-тело в структуру и проверяет её тегами validate.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !readJSON(w, r, dst) {
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			writeError(w, r, http.StatusBadRequest, "validation_error", strings.Join(msgs, "; "), nil)
			return false
		}
		writeError(w, r, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return false
	}
	return true
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s items", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_id", "ID inválido", nil)
		return 0, false
	}
	return id, true
}

// carrierHint - ?carrier=; пусто = искать во всех таблицах.
func carrierHint(w http.ResponseWriter, r *http.Request, raw string) (*carriers.Variant, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	v, err := carriers.Lookup(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown_carrier", err.Error(), nil)
		return nil, false
	}
	return v, true
}
