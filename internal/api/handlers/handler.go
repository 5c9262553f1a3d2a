// Пакет handlers — HTTP-обработчики store-service и retail-file-service.
// Реализуют storeapi.ServerInterface и fileapi.ServerInterface,
// делегируя запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apierrors "github.com/AvivSela/product-watch-il/internal/api/errors"
	"github.com/AvivSela/product-watch-il/internal/service"
)

// maxBodyBytes — ограничение размера тела запроса.
const maxBodyBytes = 1 << 20

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса в dst.
// При ошибке пишет 400 VALIDATION_FAILED и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return true
	}

	details := map[string]string{"body": "malformed JSON"}

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		details["body"] = "request body is required"
	case errors.As(err, &typeErr) && typeErr.Field != "":
		details = map[string]string{typeErr.Field: fmt.Sprintf("must be of type %s", typeErr.Type)}
	}

	apierrors.ValidationFailed(w, details)
	return false
}

// writeValidationError пишет 400, если err — ошибка валидации.
func writeValidationError(w http.ResponseWriter, err error) bool {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		apierrors.ValidationFailed(w, verr.Details)
		return true
	}
	return false
}

// pageParam возвращает значение необязательного параметра пагинации.
func pageParam(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
