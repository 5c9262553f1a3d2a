package fileapi

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Scopes операций retail-file-service.
const (
	ScopeFilesRead  = "files:read"
	ScopeFilesWrite = "files:write"
)

// RetailFileId — UUID файла в пути запроса.
type RetailFileId = openapi_types.UUID //nolint:revive // имя из OpenAPI контракта

// RetailFile — файл в ответах API.
type RetailFile struct {
	Id         openapi_types.UUID `json:"id"` //nolint:revive // имя из OpenAPI контракта
	FileName   string             `json:"file_name"`
	FileUrl    string             `json:"file_url"`
	FileSize   *int64             `json:"file_size,omitempty"`
	UploadDate time.Time          `json:"upload_date"`
	Status     string             `json:"status"`
	Checksum   string             `json:"checksum,omitempty"`
	StoreId    openapi_types.UUID `json:"store_id"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// RetailFilePagination — параметры страницы списка файлов.
type RetailFilePagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// RetailFileListResponse — ответ GET /api/v1/retail-files.
type RetailFileListResponse struct {
	Data       []RetailFile         `json:"data"`
	Pagination RetailFilePagination `json:"pagination"`
}

// DuplicateCheckResponse — ответ GET /api/v1/retail-files/duplicates/check.
type DuplicateCheckResponse struct {
	DuplicateByChecksum bool `json:"duplicateByChecksum"`
	IsDuplicate         bool `json:"isDuplicate"`
}

// ListRetailFilesParams — параметры GET /api/v1/retail-files.
type ListRetailFilesParams struct {
	Status  *string             `form:"status,omitempty" json:"status,omitempty"`
	StoreId *openapi_types.UUID `form:"store_id,omitempty" json:"store_id,omitempty"`
	Page    *int                `form:"page,omitempty" json:"page,omitempty"`
	Limit   *int                `form:"limit,omitempty" json:"limit,omitempty"`
}

// UpdateRetailFileStatusParams — параметры PATCH /api/v1/retail-files/{id}/status.
type UpdateRetailFileStatusParams struct {
	Status string `form:"status" json:"status"`
}

// CheckDuplicateParams — параметры GET /api/v1/retail-files/duplicates/check.
type CheckDuplicateParams struct {
	Checksum *string `form:"checksum,omitempty" json:"checksum,omitempty"`
}
