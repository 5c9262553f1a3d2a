// retail_files.go — обработчики retail-file-service (/api/v1/retail-files).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apierrors "github.com/AvivSela/product-watch-il/internal/api/errors"
	"github.com/AvivSela/product-watch-il/internal/api/fileapi"
	"github.com/AvivSela/product-watch-il/internal/domain/model"
	"github.com/AvivSela/product-watch-il/internal/service"
)

// RetailFileService — операции реестра файлов, используемые обработчиками.
type RetailFileService interface {
	Create(ctx context.Context, in service.CreateRetailFileInput) (*model.RetailFile, error)
	Get(ctx context.Context, id uuid.UUID) (*model.RetailFile, error)
	Update(ctx context.Context, id uuid.UUID, in service.UpdateRetailFileInput) (*model.RetailFile, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.FileStatus) (*model.RetailFile, error)
	MarkAsProcessed(ctx context.Context, id uuid.UUID) (*model.RetailFile, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	IsDuplicateByChecksum(ctx context.Context, checksum string) (bool, error)
	List(ctx context.Context, filters service.RetailFileListFilters, page, limit int) (*service.RetailFilePage, error)
}

// RetailFileHandler — обработчик API retail-file-service.
// Реализует fileapi.ServerInterface.
type RetailFileHandler struct {
	files   RetailFileService
	health  *HealthHandler
	openapi *OpenAPIHandler
	logger  *slog.Logger
}

// NewRetailFileHandler создаёт обработчик API retail-file-service.
func NewRetailFileHandler(
	files RetailFileService,
	health *HealthHandler,
	openapi *OpenAPIHandler,
	logger *slog.Logger,
) *RetailFileHandler {
	return &RetailFileHandler{
		files:   files,
		health:  health,
		openapi: openapi,
		logger:  logger.With(slog.String("component", "retail_file_handler")),
	}
}

// Проверка на этапе компиляции
var _ fileapi.ServerInterface = (*RetailFileHandler)(nil)

// CreateRetailFile — POST /api/v1/retail-files.
func (h *RetailFileHandler) CreateRetailFile(w http.ResponseWriter, r *http.Request) {
	var in service.CreateRetailFileInput
	if !decodeJSON(w, r, &in) {
		return
	}

	f, err := h.files.Create(r.Context(), in)
	if err != nil {
		h.writeFileError(w, err, uuid.Nil, "регистрации файла")
		return
	}

	writeJSON(w, http.StatusCreated, toAPIRetailFile(f))
}

// GetRetailFile — GET /api/v1/retail-files/{id}.
func (h *RetailFileHandler) GetRetailFile(w http.ResponseWriter, r *http.Request, id fileapi.RetailFileId) {
	f, err := h.files.Get(r.Context(), id)
	if err != nil {
		h.writeFileError(w, err, id, "получения файла")
		return
	}

	writeJSON(w, http.StatusOK, toAPIRetailFile(f))
}

// ListRetailFiles — GET /api/v1/retail-files.
func (h *RetailFileHandler) ListRetailFiles(w http.ResponseWriter, r *http.Request, params fileapi.ListRetailFilesParams) {
	var filters service.RetailFileListFilters
	if params.Status != nil {
		status, err := model.ParseFileStatus(*params.Status)
		if err != nil {
			apierrors.ValidationFailed(w, map[string]string{
				"status": fmt.Sprintf("invalid status %q", *params.Status),
			})
			return
		}
		filters.Status = &status
	}
	if params.StoreId != nil {
		storeID := *params.StoreId
		filters.StoreID = &storeID
	}

	page, err := h.files.List(r.Context(), filters,
		pageParam(params.Page, 1), pageParam(params.Limit, service.DefaultFileLimit))
	if err != nil {
		h.writeFileError(w, err, uuid.Nil, "получения списка файлов")
		return
	}

	resp := fileapi.RetailFileListResponse{
		Data: make([]fileapi.RetailFile, 0, len(page.Items)),
		Pagination: fileapi.RetailFilePagination{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.Pages,
		},
	}
	for _, f := range page.Items {
		resp.Data = append(resp.Data, toAPIRetailFile(f))
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateRetailFile — PUT /api/v1/retail-files/{id}.
func (h *RetailFileHandler) UpdateRetailFile(w http.ResponseWriter, r *http.Request, id fileapi.RetailFileId) {
	var in service.UpdateRetailFileInput
	if !decodeJSON(w, r, &in) {
		return
	}

	f, err := h.files.Update(r.Context(), id, in)
	if err != nil {
		h.writeFileError(w, err, id, "обновления файла")
		return
	}

	writeJSON(w, http.StatusOK, toAPIRetailFile(f))
}

// UpdateRetailFileStatus — PATCH /api/v1/retail-files/{id}/status.
// Статус принимается без учёта регистра.
func (h *RetailFileHandler) UpdateRetailFileStatus(w http.ResponseWriter, r *http.Request, id fileapi.RetailFileId, params fileapi.UpdateRetailFileStatusParams) {
	status, err := model.ParseFileStatus(params.Status)
	if err != nil {
		apierrors.ValidationFailed(w, map[string]string{
			"status": fmt.Sprintf("invalid status %q", params.Status),
		})
		return
	}

	f, err := h.files.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.writeFileError(w, err, id, "смены статуса файла")
		return
	}

	writeJSON(w, http.StatusOK, toAPIRetailFile(f))
}

// MarkRetailFileProcessed — PATCH /api/v1/retail-files/{id}/process.
func (h *RetailFileHandler) MarkRetailFileProcessed(w http.ResponseWriter, r *http.Request, id fileapi.RetailFileId) {
	f, err := h.files.MarkAsProcessed(r.Context(), id)
	if err != nil {
		h.writeFileError(w, err, id, "завершения обработки файла")
		return
	}

	writeJSON(w, http.StatusOK, toAPIRetailFile(f))
}

// DeleteRetailFile — DELETE /api/v1/retail-files/{id}.
func (h *RetailFileHandler) DeleteRetailFile(w http.ResponseWriter, r *http.Request, id fileapi.RetailFileId) {
	deleted, err := h.files.Delete(r.Context(), id)
	if err != nil {
		h.writeFileError(w, err, id, "удаления файла")
		return
	}
	if !deleted {
		h.writeFileError(w, service.ErrNotFound, id, "удаления файла")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckDuplicate — GET /api/v1/retail-files/duplicates/check.
// Без checksum ответ всегда отрицательный.
func (h *RetailFileHandler) CheckDuplicate(w http.ResponseWriter, r *http.Request, params fileapi.CheckDuplicateParams) {
	dup := false
	if params.Checksum != nil {
		var err error
		dup, err = h.files.IsDuplicateByChecksum(r.Context(), *params.Checksum)
		if err != nil {
			h.writeFileError(w, err, uuid.Nil, "проверки дубликата")
			return
		}
	}

	writeJSON(w, http.StatusOK, fileapi.DuplicateCheckResponse{
		DuplicateByChecksum: dup,
		IsDuplicate:         dup,
	})
}

// --- Health, metrics, OpenAPI ---

// HealthLive — liveness probe.
func (h *RetailFileHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *RetailFileHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *RetailFileHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// GetOpenAPI — OpenAPI документ.
func (h *RetailFileHandler) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	h.openapi.GetOpenAPI(w, r)
}

// writeFileError преобразует ошибку сервиса в HTTP-ответ.
// id попадает в сообщение 404, uuid.Nil — без идентификатора.
func (h *RetailFileHandler) writeFileError(w http.ResponseWriter, err error, id uuid.UUID, op string) {
	if writeValidationError(w, err) {
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		msg := "Retail file not found"
		if id != uuid.Nil {
			msg = fmt.Sprintf("Retail file not found with id: %s", id)
		}
		apierrors.WriteError(w, http.StatusNotFound, apierrors.CodeRetailFileNotFound, msg)
	case errors.Is(err, service.ErrDuplicate):
		apierrors.WriteError(w, http.StatusConflict, apierrors.CodeDuplicateFile,
			"File with the same checksum is already registered")
	case errors.Is(err, service.ErrStoreUnavailable):
		h.logger.Error("store-service недоступен при "+op, slog.String("error", err.Error()))
		apierrors.BadGateway(w, "Store service is unavailable, could not resolve store")
	default:
		h.logger.Error("Ошибка "+op, slog.String("error", err.Error()))
		apierrors.InternalError(w)
	}
}

// toAPIRetailFile конвертирует доменную модель в API-тип.
func toAPIRetailFile(f *model.RetailFile) fileapi.RetailFile {
	return fileapi.RetailFile{
		Id:         f.ID,
		FileName:   f.FileName,
		FileUrl:    f.FileURL,
		FileSize:   f.FileSize,
		UploadDate: f.UploadDate,
		Status:     string(f.Status),
		Checksum:   f.Checksum,
		StoreId:    f.StoreID,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}
