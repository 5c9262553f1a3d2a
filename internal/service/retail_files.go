// retail_files.go — сервис реестра розничных файлов.
// Регистрация с проверкой дубликатов по контрольной сумме,
// разрешение магазина через store-service, смена статусов.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AvivSela/product-watch-il/internal/domain/model"
	"github.com/AvivSela/product-watch-il/internal/repository"
)

// Параметры пагинации списка файлов.
const (
	DefaultFileLimit = 20
	MaxFileLimit     = 100
)

// StoreResolver — получение ID магазина по естественному ключу
// (с созданием магазина при отсутствии).
type StoreResolver interface {
	GetOrCreateStoreID(ctx context.Context, chainID string, storeNumber int) (uuid.UUID, error)
}

// CreateRetailFileInput — данные для регистрации файла.
type CreateRetailFileInput struct {
	ChainID     string            `json:"chain_id" validate:"required,max=20"`
	StoreNumber *int              `json:"store_number" validate:"required,int4"`
	FileName    string            `json:"file_name" validate:"required,max=255,file_type"`
	FileURL     string            `json:"file_url" validate:"required,max=500,safe_url"`
	FileSize    *int64            `json:"file_size" validate:"omitnil,gte=0"`
	UploadDate  *time.Time        `json:"upload_date"`
	Status      *model.FileStatus `json:"status" validate:"omitnil,file_status"`
	Checksum    string            `json:"checksum" validate:"max=64"`
}

// UpdateRetailFileInput — частичное обновление файла.
// Строковые поля из одних пробелов считаются отсутствующими.
type UpdateRetailFileInput struct {
	FileName   *string           `json:"file_name" validate:"omitnil,max=255,file_type"`
	FileURL    *string           `json:"file_url" validate:"omitnil,max=500,safe_url"`
	FileSize   *int64            `json:"file_size" validate:"omitnil,gte=0"`
	UploadDate *time.Time        `json:"upload_date"`
	Status     *model.FileStatus `json:"status" validate:"omitnil,file_status"`
	Checksum   *string           `json:"checksum" validate:"omitnil,max=64"`
}

// patch преобразует входные данные в model.RetailFilePatch.
func (in UpdateRetailFileInput) patch() model.RetailFilePatch {
	return model.RetailFilePatch{
		FileName:   model.NonBlank(in.FileName),
		FileURL:    model.NonBlank(in.FileURL),
		FileSize:   model.FromPtr(in.FileSize),
		UploadDate: model.FromPtr(in.UploadDate),
		Status:     model.FromPtr(in.Status),
		Checksum:   model.NonBlank(in.Checksum),
	}
}

// withoutBlanks возвращает копию, в которой пустые строки заменены на nil,
// чтобы они не проходили валидацию как заданные значения.
func (in UpdateRetailFileInput) withoutBlanks() UpdateRetailFileInput {
	blank := func(p *string) *string {
		if p == nil || strings.TrimSpace(*p) == "" {
			return nil
		}
		return p
	}
	in.FileName = blank(in.FileName)
	in.FileURL = blank(in.FileURL)
	in.Checksum = blank(in.Checksum)
	return in
}

// RetailFileListFilters — фильтры списка файлов.
type RetailFileListFilters = repository.RetailFileListFilters

// RetailFilePage — страница списка файлов.
type RetailFilePage struct {
	Items []*model.RetailFile
	Page  int
	Limit int
	Total int
	Pages int
}

// RetailFileService — сервис реестра розничных файлов.
type RetailFileService struct {
	repo      repository.RetailFileRepository
	stores    StoreResolver
	validator *Validator
	metrics   Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewRetailFileService создаёт сервис реестра розничных файлов.
func NewRetailFileService(
	repo repository.RetailFileRepository,
	stores StoreResolver,
	validator *Validator,
	metrics Metrics,
	logger *slog.Logger,
) *RetailFileService {
	return &RetailFileService{
		repo:      repo,
		stores:    stores,
		validator: validator,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "retail_file_service")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create регистрирует файл.
// ErrValidation — некорректные данные; ErrStoreUnavailable — магазин
// не удалось разрешить; ErrDuplicate — контрольная сумма уже есть.
func (s *RetailFileService) Create(ctx context.Context, in CreateRetailFileInput) (*model.RetailFile, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	storeID, err := s.stores.GetOrCreateStoreID(ctx, in.ChainID, *in.StoreNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	checksum := strings.TrimSpace(in.Checksum)
	if checksum == "" {
		checksum = URLChecksum(in.FileURL)
	}

	dup, err := s.repo.ExistsByChecksum(ctx, checksum)
	if err != nil {
		return nil, fmt.Errorf("проверка дубликата: %w", err)
	}
	if dup {
		s.metrics.DuplicateFileDetected()
		s.logger.Warn("Отклонён дубликат файла",
			slog.String("checksum", checksum),
			slog.String("file_name", in.FileName),
		)
		return nil, fmt.Errorf("%w: checksum %s", ErrDuplicate, checksum)
	}

	f := &model.RetailFile{
		FileName:   in.FileName,
		FileURL:    in.FileURL,
		FileSize:   in.FileSize,
		UploadDate: s.now(),
		Status:     model.FileStatusPending,
		Checksum:   checksum,
		StoreID:    storeID,
	}
	if in.UploadDate != nil {
		f.UploadDate = *in.UploadDate
	}
	if in.Status != nil {
		f.Status = *in.Status
	}

	if err := s.repo.Create(ctx, f); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.metrics.DuplicateFileDetected()
			return nil, fmt.Errorf("%w: checksum %s", ErrDuplicate, checksum)
		}
		return nil, fmt.Errorf("регистрация файла: %w", err)
	}

	s.metrics.RetailFileCreated()
	s.logger.Info("Файл зарегистрирован",
		slog.String("file_id", f.ID.String()),
		slog.String("store_id", storeID.String()),
		slog.String("file_name", f.FileName),
	)

	return f, nil
}

// Get возвращает файл по ID.
func (s *RetailFileService) Get(ctx context.Context, id uuid.UUID) (*model.RetailFile, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение файла: %w", err)
	}
	return f, nil
}

// Update применяет частичное обновление метаданных файла.
func (s *RetailFileService) Update(ctx context.Context, id uuid.UUID, in UpdateRetailFileInput) (*model.RetailFile, error) {
	in = in.withoutBlanks()
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := in.patch().Apply(*current)
	if err := s.repo.Update(ctx, &updated); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrConflict):
			s.metrics.DuplicateFileDetected()
			return nil, fmt.Errorf("%w: checksum %s", ErrDuplicate, updated.Checksum)
		}
		return nil, fmt.Errorf("обновление файла: %w", err)
	}

	s.logger.Info("Файл обновлён", slog.String("file_id", id.String()))

	return &updated, nil
}

// UpdateStatus устанавливает статус файла. Переходы не ограничены.
func (s *RetailFileService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.FileStatus) (*model.RetailFile, error) {
	if !status.Valid() {
		return nil, newFieldError("status", fmt.Sprintf("invalid status %q", status))
	}

	f, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление статуса файла: %w", err)
	}

	s.logger.Info("Статус файла изменён",
		slog.String("file_id", id.String()),
		slog.String("status", string(status)),
	)

	return f, nil
}

// MarkAsProcessed переводит файл в статус COMPLETED.
func (s *RetailFileService) MarkAsProcessed(ctx context.Context, id uuid.UUID) (*model.RetailFile, error) {
	return s.UpdateStatus(ctx, id, model.FileStatusCompleted)
}

// Delete удаляет файл. Возвращает false, если файла не было.
func (s *RetailFileService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("удаление файла: %w", err)
	}
	if deleted {
		s.logger.Info("Файл удалён", slog.String("file_id", id.String()))
	}
	return deleted, nil
}

// IsDuplicateByChecksum сообщает, зарегистрирован ли файл с такой суммой.
// Пустая сумма — всегда false.
func (s *RetailFileService) IsDuplicateByChecksum(ctx context.Context, checksum string) (bool, error) {
	checksum = strings.TrimSpace(checksum)
	if checksum == "" {
		return false, nil
	}
	dup, err := s.repo.ExistsByChecksum(ctx, checksum)
	if err != nil {
		return false, fmt.Errorf("проверка дубликата: %w", err)
	}
	return dup, nil
}

// List возвращает страницу файлов, отсортированных по upload_date DESC.
// page < 1 → 1; limit вне [1, MaxFileLimit] → DefaultFileLimit.
func (s *RetailFileService) List(ctx context.Context, filters RetailFileListFilters, page, limit int) (*RetailFilePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxFileLimit {
		limit = DefaultFileLimit
	}

	items, err := s.repo.List(ctx, filters, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("получение списка файлов: %w", err)
	}

	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("подсчёт файлов: %w", err)
	}

	return &RetailFilePage{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: totalPages(total, limit),
	}, nil
}
