package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shaiso/binet/internal/repo"
)

// ErrorCode — машинный код ошибки в ответе.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeInvalidState  ErrorCode = "INVALID_STATE"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — код и текст ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — тело ответа с одним объектом.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — тело ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// Error — ошибка обработчика, которая уже знает свой HTTP статус.
type Error struct {
	Status  int
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func badRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

// notFoundAs переводит repo.ErrNotFound в 404 с текстом msg.
func notFoundAs(err error, msg string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return &Error{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: msg}
	}
	return err
}

// toError приводит произвольную ошибку к ответу. Всё, что не *Error и не
// известная ошибка журнала, становится 500 без подробностей.
func toError(err error) (*Error, bool) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr, true
	case errors.Is(err, repo.ErrNotFound):
		return &Error{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: "not found"}, true
	case errors.Is(err, repo.ErrInvalidState):
		return &Error{Status: http.StatusUnprocessableEntity, Code: ErrCodeInvalidState, Message: err.Error()}, true
	default:
		return &Error{Status: http.StatusInternalServerError, Code: ErrCodeInternalError, Message: "internal server error"}, false
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, e *Error) {
	writeJSON(w, e.Status, ErrorResponse{Error: ErrorDetail{Code: e.Code, Message: e.Message}})
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, DataResponse{Data: data})
}

func writeList[T any](w http.ResponseWriter, items []T) {
	writeJSON(w, http.StatusOK, ListResponse{Data: items, Total: len(items)})
}

// handlerFunc — обработчик, который возвращает ошибку вместо того, чтобы
// писать её сам.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h *Handler) serve(fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		e, known := toError(err)
		if !known {
			h.logger.Error("internal error", "path", r.URL.Path, "error", err)
		}
		writeError(w, e)
	})
}
