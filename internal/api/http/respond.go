package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Quantity string `json:"quantity,omitempty"`
	Status   string `json:"status,omitempty"`
}

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindPermission:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindStateConflict:
		return http.StatusConflict
	case domain.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case domain.KindExternalDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error onto an HTTP status and error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.Error("Unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "internal server error"})
		return
	}

	status := statusForKind(de.Kind)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "reason", de.Reason, "error", err)
	}
	body := ErrorResponse{Error: de.Reason, Message: de.Message, Status: de.Status}
	if de.Quantity != nil {
		body.Quantity = de.Quantity.StringFixed(2)
	}
	writeJSON(w, status, body)
}

// decodeBody reads an optional JSON body into dst and validates it.
func decodeBody(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	return validateStruct(dst)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return domain.NewValidationError("invalid_body", "malformed JSON body: %v", err)
	}
	return nil
}

func validateStruct(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError("invalid_body", "%v", err)
	}
	first := verrs[0]
	return domain.NewValidationError("invalid_body", "field %s failed on '%s'", first.Field(), first.Tag())
}

// pathID parses a positive int32 route variable.
func pathID(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("invalid_id", "%s must be a positive integer, got %q", name, raw)
	}
	return int32(id), nil
}

func queryInt32(r *http.Request, name string, fallback int32) (int32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, domain.NewValidationError("invalid_query", "%s: %v", name, err)
	}
	return int32(v), nil
}
