package storeapi

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Scopes операций store-service.
const (
	ScopeStoresRead  = "stores:read"
	ScopeStoresWrite = "stores:write"
)

// StoreId — UUID магазина в пути запроса.
type StoreId = openapi_types.UUID //nolint:revive // имя из OpenAPI контракта

// Store — магазин в ответах API.
type Store struct {
	Id             openapi_types.UUID `json:"id"` //nolint:revive // имя из OpenAPI контракта
	ChainId        string             `json:"chain_id"`
	StoreNumber    int                `json:"store_number"`
	StoreType      string             `json:"store_type"`
	StoreName      string             `json:"store_name"`
	SubChainId     int                `json:"sub_chain_id"`
	CreatedBy      string             `json:"created_by,omitempty"`
	LastModifiedBy string             `json:"last_modified_by,omitempty"`
	Version        int64              `json:"version"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// StorePagination — параметры страницы списка магазинов.
type StorePagination struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// StoreListResponse — ответ GET /api/v1/stores.
type StoreListResponse struct {
	Data       []Store         `json:"data"`
	Pagination StorePagination `json:"pagination"`
}

// ListStoresParams — параметры GET /api/v1/stores.
type ListStoresParams struct {
	ChainId    *string `form:"chain_id,omitempty" json:"chain_id,omitempty"`
	StoreType  *string `form:"store_type,omitempty" json:"store_type,omitempty"`
	SubChainId *int    `form:"sub_chain_id,omitempty" json:"sub_chain_id,omitempty"`
	Page       *int    `form:"page,omitempty" json:"page,omitempty"`
	Size       *int    `form:"size,omitempty" json:"size,omitempty"`
}

// GetStoreByNaturalKeyParams — параметры GET /api/v1/stores/by-natural-key.
type GetStoreByNaturalKeyParams struct {
	ChainId     string `form:"chain_id" json:"chain_id"`
	StoreNumber int    `form:"store_number" json:"store_number"`
}

// CreateStoreParams — параметры POST /api/v1/stores.
type CreateStoreParams struct {
	// XServiceName — вызывающий сервис, попадает в created_by
	XServiceName *string `json:"X-Service-Name,omitempty"`
}
