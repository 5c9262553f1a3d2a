package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIHandler отдаёт OpenAPI документ сервиса в JSON.
type OpenAPIHandler struct {
	doc []byte
}

// NewOpenAPIHandler загружает документ через load (storeapi.GetSwagger,
// fileapi.GetSwagger) и сериализует его один раз.
func NewOpenAPIHandler(load func() (*openapi3.T, error)) (*OpenAPIHandler, error) {
	swagger, err := load()
	if err != nil {
		return nil, err
	}
	doc, err := json.Marshal(swagger)
	if err != nil {
		return nil, fmt.Errorf("сериализация OpenAPI документа: %w", err)
	}
	return &OpenAPIHandler{doc: doc}, nil
}

// GetOpenAPI — GET /openapi.json.
func (h *OpenAPIHandler) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.doc)
}
