// stores.go — обработчики store-service (/api/v1/stores).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apierrors "github.com/AvivSela/product-watch-il/internal/api/errors"
	"github.com/AvivSela/product-watch-il/internal/api/storeapi"
	"github.com/AvivSela/product-watch-il/internal/domain/model"
	"github.com/AvivSela/product-watch-il/internal/service"
)

// unknownCaller — created_by, если заголовок X-Service-Name не передан.
const unknownCaller = "unknown"

// StoreService — операции реестра магазинов, используемые обработчиками.
type StoreService interface {
	Create(ctx context.Context, in service.CreateStoreInput) (*model.Store, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Store, error)
	GetByNaturalKey(ctx context.Context, chainID string, storeNumber int) (*model.Store, error)
	Update(ctx context.Context, id uuid.UUID, in service.UpdateStoreInput) (*model.Store, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filters service.StoreListFilters, page, size int) (*service.StorePage, error)
}

// StoreHandler — обработчик API store-service.
// Реализует storeapi.ServerInterface.
type StoreHandler struct {
	stores  StoreService
	health  *HealthHandler
	openapi *OpenAPIHandler
	logger  *slog.Logger
}

// NewStoreHandler создаёт обработчик API store-service.
func NewStoreHandler(
	stores StoreService,
	health *HealthHandler,
	openapi *OpenAPIHandler,
	logger *slog.Logger,
) *StoreHandler {
	return &StoreHandler{
		stores:  stores,
		health:  health,
		openapi: openapi,
		logger:  logger.With(slog.String("component", "store_handler")),
	}
}

// Проверка на этапе компиляции
var _ storeapi.ServerInterface = (*StoreHandler)(nil)

// CreateStore — POST /api/v1/stores.
// created_by берётся из X-Service-Name, по умолчанию "unknown".
func (h *StoreHandler) CreateStore(w http.ResponseWriter, r *http.Request, params storeapi.CreateStoreParams) {
	var in service.CreateStoreInput
	if !decodeJSON(w, r, &in) {
		return
	}

	in.CreatedBy = unknownCaller
	if params.XServiceName != nil && strings.TrimSpace(*params.XServiceName) != "" {
		in.CreatedBy = *params.XServiceName
	}

	store, err := h.stores.Create(r.Context(), in)
	if err != nil {
		h.writeStoreError(w, err, "создания магазина")
		return
	}

	writeJSON(w, http.StatusCreated, toAPIStore(store))
}

// GetStore — GET /api/v1/stores/{id}.
func (h *StoreHandler) GetStore(w http.ResponseWriter, r *http.Request, id storeapi.StoreId) {
	store, err := h.stores.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.WriteError(w, http.StatusNotFound, apierrors.CodeStoreNotFound,
				fmt.Sprintf("Store not found with id: %s", id))
			return
		}
		h.writeStoreError(w, err, "получения магазина")
		return
	}

	writeJSON(w, http.StatusOK, toAPIStore(store))
}

// GetStoreByNaturalKey — GET /api/v1/stores/by-natural-key.
func (h *StoreHandler) GetStoreByNaturalKey(w http.ResponseWriter, r *http.Request, params storeapi.GetStoreByNaturalKeyParams) {
	store, err := h.stores.GetByNaturalKey(r.Context(), params.ChainId, params.StoreNumber)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.WriteError(w, http.StatusNotFound, apierrors.CodeStoreNotFound,
				fmt.Sprintf("Store not found with chain_id %s and store_number %d", params.ChainId, params.StoreNumber))
			return
		}
		h.writeStoreError(w, err, "получения магазина по естественному ключу")
		return
	}

	writeJSON(w, http.StatusOK, toAPIStore(store))
}

// ListStores — GET /api/v1/stores.
func (h *StoreHandler) ListStores(w http.ResponseWriter, r *http.Request, params storeapi.ListStoresParams) {
	filters := service.StoreListFilters{
		ChainID:    params.ChainId,
		StoreType:  params.StoreType,
		SubChainID: params.SubChainId,
	}

	page, err := h.stores.List(r.Context(), filters,
		pageParam(params.Page, 1), pageParam(params.Size, service.DefaultStorePageSize))
	if err != nil {
		h.writeStoreError(w, err, "получения списка магазинов")
		return
	}

	resp := storeapi.StoreListResponse{
		Data: make([]storeapi.Store, 0, len(page.Items)),
		Pagination: storeapi.StorePagination{
			Page:       page.Page,
			Size:       page.Size,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	}
	for _, s := range page.Items {
		resp.Data = append(resp.Data, toAPIStore(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStore — PUT /api/v1/stores/{id}.
func (h *StoreHandler) UpdateStore(w http.ResponseWriter, r *http.Request, id storeapi.StoreId) {
	var in service.UpdateStoreInput
	if !decodeJSON(w, r, &in) {
		return
	}

	store, err := h.stores.Update(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.WriteError(w, http.StatusNotFound, apierrors.CodeStoreNotFound,
				fmt.Sprintf("Store not found with id: %s", id))
			return
		}
		h.writeStoreError(w, err, "обновления магазина")
		return
	}

	writeJSON(w, http.StatusOK, toAPIStore(store))
}

// DeleteStore — DELETE /api/v1/stores/{id}.
func (h *StoreHandler) DeleteStore(w http.ResponseWriter, r *http.Request, id storeapi.StoreId) {
	deleted, err := h.stores.Delete(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "удаления магазина")
		return
	}
	if !deleted {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.CodeStoreNotFound,
			fmt.Sprintf("Store not found with id: %s", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Health, metrics, OpenAPI ---

// HealthLive — liveness probe.
func (h *StoreHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *StoreHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *StoreHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// GetOpenAPI — OpenAPI документ.
func (h *StoreHandler) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	h.openapi.GetOpenAPI(w, r)
}

// writeStoreError преобразует ошибку сервиса в HTTP-ответ.
// op — описание операции для лога.
func (h *StoreHandler) writeStoreError(w http.ResponseWriter, err error, op string) {
	if writeValidationError(w, err) {
		return
	}

	switch {
	case errors.Is(err, service.ErrConflict):
		apierrors.WriteError(w, http.StatusConflict, apierrors.CodeStoreAlreadyExists,
			"Store with the same chain_id and store_number already exists")
	case errors.Is(err, service.ErrStaleVersion):
		apierrors.WriteError(w, http.StatusConflict, apierrors.CodeStoreVersionConflict,
			"Store was modified concurrently, retry the update")
	case errors.Is(err, service.ErrNotFound):
		apierrors.WriteError(w, http.StatusNotFound, apierrors.CodeStoreNotFound, "Store not found")
	default:
		h.logger.Error("Ошибка "+op, slog.String("error", err.Error()))
		apierrors.InternalError(w)
	}
}

// toAPIStore конвертирует доменную модель в API-тип.
func toAPIStore(s *model.Store) storeapi.Store {
	return storeapi.Store{
		Id:             s.ID,
		ChainId:        s.ChainID,
		StoreNumber:    s.StoreNumber,
		StoreType:      s.StoreType,
		StoreName:      s.StoreName,
		SubChainId:     s.SubChainID,
		CreatedBy:      s.CreatedBy,
		LastModifiedBy: s.LastModifiedBy,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
