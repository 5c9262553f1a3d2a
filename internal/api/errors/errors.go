// Пакет errors — ответы с ошибками в едином формате обоих сервисов.
// Формат: {"code": "...", "message": "...", "timestamp": "...", "details": {...}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // конфликт имени со stdlib, импортируется как apierrors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Коды ошибок, определённые в OpenAPI контракте.
const (
	CodeStoreNotFound           = "STORE_NOT_FOUND"
	CodeStoreAlreadyExists      = "STORE_ALREADY_EXISTS"
	CodeStoreVersionConflict    = "STORE_VERSION_CONFLICT"
	CodeRetailFileNotFound      = "RETAIL_FILE_NOT_FOUND"
	CodeDuplicateFile           = "DUPLICATE_FILE"
	CodeValidationFailed        = "VALIDATION_FAILED"
	CodeMissingParameter        = "MISSING_PARAMETER"
	CodeTypeMismatch            = "TYPE_MISMATCH"
	CodeStoreServiceUnavailable = "STORE_SERVICE_UNAVAILABLE"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodeInternalError           = "INTERNAL_ERROR"
)

// now подменяется в тестах.
var now = time.Now

// ErrorBody — тело ответа ошибки.
type ErrorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

// WriteError записывает ответ ошибки без деталей.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	WriteErrorDetails(w, statusCode, code, message, nil)
}

// WriteErrorDetails записывает ответ ошибки с детализацией по полям.
func WriteErrorDetails(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorBody{
		Code:      code,
		Message:   message,
		Timestamp: now().UTC().Format(time.RFC3339),
		Details:   details,
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationFailed — 400 нарушены ограничения тела запроса.
func ValidationFailed(w http.ResponseWriter, details map[string]string) {
	WriteErrorDetails(w, http.StatusBadRequest, CodeValidationFailed, "Validation failed", details)
}

// MissingParameter — 400 отсутствует обязательный параметр.
func MissingParameter(w http.ResponseWriter, name string) {
	WriteError(w, http.StatusBadRequest, CodeMissingParameter,
		fmt.Sprintf("Required parameter '%s' is missing", name))
}

// TypeMismatch — 400 параметр не приводится к нужному типу.
func TypeMismatch(w http.ResponseWriter, name string) {
	WriteError(w, http.StatusBadRequest, CodeTypeMismatch,
		fmt.Sprintf("Invalid value for parameter '%s'", name))
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// BadGateway — 502 store-service недоступен.
func BadGateway(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeStoreServiceUnavailable, message)
}

// InternalError — 500 внутренняя ошибка. Причина в ответ не попадает.
func InternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, "An unexpected error occurred")
}

// --- Ошибки привязки параметров запроса ---

// RequiredParamError — обязательный параметр отсутствует.
type RequiredParamError struct {
	ParamName string
}

func (e *RequiredParamError) Error() string {
	return fmt.Sprintf("Query argument %s is required, but not found", e.ParamName)
}

// InvalidParamFormatError — параметр не удалось разобрать.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ParamErrorHandler — обработчик ошибок привязки параметров для роутеров API.
func ParamErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	switch e := err.(type) {
	case *RequiredParamError:
		MissingParameter(w, e.ParamName)
	case *InvalidParamFormatError:
		TypeMismatch(w, e.ParamName)
	default:
		WriteError(w, http.StatusBadRequest, CodeTypeMismatch, err.Error())
	}
}
