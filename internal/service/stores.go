// stores.go — сервис реестра магазинов.
// CRUD магазинов по естественному ключу (chain_id, store_number)
// с оптимистичной блокировкой по версии.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/AvivSela/product-watch-il/internal/domain/model"
	"github.com/AvivSela/product-watch-il/internal/repository"
)

// Параметры пагинации списка магазинов.
const (
	DefaultStorePageSize = 20
	MaxStorePageSize     = 100
)

// CreateStoreInput — данные для создания магазина.
type CreateStoreInput struct {
	ChainID     string `json:"chain_id" validate:"required,max=20"`
	StoreNumber *int   `json:"store_number" validate:"required,int4"`
	StoreType   string `json:"store_type" validate:"required,max=10"`
	StoreName   string `json:"store_name" validate:"required,max=100"`
	SubChainID  *int   `json:"sub_chain_id" validate:"required,gt=0,int4"`
	// CreatedBy — имя вызывающего сервиса (заголовок X-Service-Name)
	CreatedBy string `json:"created_by" validate:"max=100"`
}

// UpdateStoreInput — частичное обновление магазина. nil — поле не меняется.
type UpdateStoreInput struct {
	StoreType      *string `json:"store_type" validate:"omitnil,max=10"`
	StoreName      *string `json:"store_name" validate:"omitnil,max=100"`
	SubChainID     *int    `json:"sub_chain_id" validate:"omitnil,gt=0,int4"`
	LastModifiedBy *string `json:"last_modified_by" validate:"omitnil,max=100"`
}

// patch преобразует входные данные в model.StorePatch.
func (in UpdateStoreInput) patch() model.StorePatch {
	return model.StorePatch{
		StoreType:      model.FromPtr(in.StoreType),
		StoreName:      model.FromPtr(in.StoreName),
		SubChainID:     model.FromPtr(in.SubChainID),
		LastModifiedBy: model.FromPtr(in.LastModifiedBy),
	}
}

// StoreListFilters — фильтры списка магазинов.
type StoreListFilters = repository.StoreListFilters

// StorePage — страница списка магазинов.
type StorePage struct {
	Items      []*model.Store
	Page       int
	Size       int
	Total      int
	TotalPages int
}

// StoreService — сервис реестра магазинов.
type StoreService struct {
	repo      repository.StoreRepository
	validator *Validator
	metrics   Metrics
	logger    *slog.Logger
}

// NewStoreService создаёт сервис реестра магазинов.
func NewStoreService(
	repo repository.StoreRepository,
	validator *Validator,
	metrics Metrics,
	logger *slog.Logger,
) *StoreService {
	return &StoreService{
		repo:      repo,
		validator: validator,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "store_service")),
	}
}

// Create создаёт магазин. ErrConflict — естественный ключ уже занят.
func (s *StoreService) Create(ctx context.Context, in CreateStoreInput) (*model.Store, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByNaturalKey(ctx, in.ChainID, *in.StoreNumber)
	if err != nil {
		return nil, fmt.Errorf("проверка существования магазина: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: магазин %d сети %s", ErrConflict, *in.StoreNumber, in.ChainID)
	}

	store := &model.Store{
		StoreNumber:    *in.StoreNumber,
		ChainID:        in.ChainID,
		StoreType:      in.StoreType,
		StoreName:      in.StoreName,
		SubChainID:     *in.SubChainID,
		CreatedBy:      in.CreatedBy,
		LastModifiedBy: in.CreatedBy,
	}

	// Параллельный создатель мог успеть между проверкой и вставкой
	if err := s.repo.Create(ctx, store); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: магазин %d сети %s", ErrConflict, store.StoreNumber, store.ChainID)
		}
		return nil, fmt.Errorf("создание магазина: %w", err)
	}

	s.metrics.StoreCreated(store.ChainID)
	s.logger.Info("Магазин создан",
		slog.String("store_id", store.ID.String()),
		slog.String("chain_id", store.ChainID),
		slog.Int("store_number", store.StoreNumber),
		slog.String("created_by", store.CreatedBy),
	)

	return store, nil
}

// Get возвращает магазин по ID.
func (s *StoreService) Get(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	store, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение магазина: %w", err)
	}
	return store, nil
}

// GetByNaturalKey возвращает магазин по (chain_id, store_number).
func (s *StoreService) GetByNaturalKey(ctx context.Context, chainID string, storeNumber int) (*model.Store, error) {
	if !fitsInt4(int64(storeNumber)) {
		return nil, newFieldError("store_number", int4Message)
	}

	store, err := s.repo.GetByNaturalKey(ctx, chainID, storeNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение магазина по естественному ключу: %w", err)
	}
	return store, nil
}

// Update применяет частичное обновление.
// Естественный ключ не меняется, версия увеличивается на 1.
// ErrStaleVersion — запись изменена параллельно.
func (s *StoreService) Update(ctx context.Context, id uuid.UUID, in UpdateStoreInput) (*model.Store, error) {
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
		case errors.Is(err, repository.ErrStaleVersion):
			return nil, fmt.Errorf("%w: магазин %s", ErrStaleVersion, id)
		}
		return nil, fmt.Errorf("обновление магазина: %w", err)
	}

	s.metrics.StoreUpdated(updated.ChainID)
	s.logger.Info("Магазин обновлён",
		slog.String("store_id", id.String()),
		slog.Int64("version", updated.Version),
	)

	return &updated, nil
}

// Delete удаляет магазин. Возвращает false, если магазина не было.
func (s *StoreService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	// chain_id нужен для метрики, поэтому запись читается до удаления
	store, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("получение магазина для удаления: %w", err)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("удаление магазина: %w", err)
	}
	if !deleted {
		return false, nil
	}

	s.metrics.StoreDeleted(store.ChainID)
	s.logger.Info("Магазин удалён",
		slog.String("store_id", id.String()),
		slog.String("chain_id", store.ChainID),
	)

	return true, nil
}

// List возвращает страницу магазинов. page начинается с 1.
// page < 1 → 1; size вне [1, MaxStorePageSize] → ограничивается.
func (s *StoreService) List(ctx context.Context, filters StoreListFilters, page, size int) (*StorePage, error) {
	if filters.SubChainID != nil && !fitsInt4(int64(*filters.SubChainID)) {
		return nil, newFieldError("sub_chain_id", int4Message)
	}
	page, size = clampStorePaging(page, size)

	items, err := s.repo.List(ctx, filters, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("получение списка магазинов: %w", err)
	}

	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("подсчёт магазинов: %w", err)
	}

	return &StorePage{
		Items:      items,
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: totalPages(total, size),
	}, nil
}

func clampStorePaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if size > MaxStorePageSize {
		size = MaxStorePageSize
	}
	return page, size
}

// totalPages — количество страниц размера size для total записей.
func totalPages(total, size int) int {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
