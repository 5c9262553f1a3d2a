package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AvivSela/product-watch-il/internal/domain/model"
)

// storeColumns — список столбцов таблицы stores для SELECT-запросов.
const storeColumns = `id, store_number, chain_id, store_type, store_name, sub_chain_id,
	COALESCE(created_by, ''), COALESCE(last_modified_by, ''), version, created_at, updated_at`

// StoreRepository — интерфейс CRUD для таблицы stores.
type StoreRepository interface {
	// Create создаёт магазин. Заполняет ID, Version, CreatedAt, UpdatedAt.
	Create(ctx context.Context, s *model.Store) error
	// GetByID возвращает магазин по UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Store, error)
	// GetByNaturalKey возвращает магазин по (chain_id, store_number).
	GetByNaturalKey(ctx context.Context, chainID string, storeNumber int) (*model.Store, error)
	// ExistsByNaturalKey проверяет наличие магазина по естественному ключу.
	ExistsByNaturalKey(ctx context.Context, chainID string, storeNumber int) (bool, error)
	// Update сохраняет изменяемые поля при совпадении версии.
	// Увеличивает s.Version и обновляет s.UpdatedAt.
	Update(ctx context.Context, s *model.Store) error
	// Delete удаляет магазин. Возвращает false, если записи не было.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// List возвращает страницу магазинов, отсортированных по created_at DESC.
	List(ctx context.Context, filters StoreListFilters, limit, offset int) ([]*model.Store, error)
	// Count возвращает количество магазинов с фильтрацией.
	Count(ctx context.Context, filters StoreListFilters) (int, error)
}

// StoreListFilters — фильтры списка магазинов.
// nil — фильтр не применяется, заданные фильтры объединяются через AND.
type StoreListFilters struct {
	ChainID    *string
	StoreType  *string
	SubChainID *int
}

// storeRepo — реализация StoreRepository.
type storeRepo struct {
	db DBTX
}

// NewStoreRepository создаёт репозиторий магазинов.
func NewStoreRepository(db DBTX) StoreRepository {
	return &storeRepo{db: db}
}

func (r *storeRepo) Create(ctx context.Context, s *model.Store) error {
	query := `
		INSERT INTO stores (store_number, chain_id, store_type, store_name, sub_chain_id,
			created_by, last_modified_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, version, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		s.StoreNumber, s.ChainID, s.StoreType, s.StoreName, s.SubChainID,
		s.CreatedBy, s.LastModifiedBy,
	).Scan(&s.ID, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: магазин %d сети %s уже существует", ErrConflict, s.StoreNumber, s.ChainID)
		}
		return fmt.Errorf("ошибка создания магазина: %w", err)
	}
	return nil
}

func (r *storeRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	query := fmt.Sprintf(`SELECT %s FROM stores WHERE id = $1`, storeColumns)

	s, err := scanStore(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения магазина: %w", err)
	}
	return s, nil
}

func (r *storeRepo) GetByNaturalKey(ctx context.Context, chainID string, storeNumber int) (*model.Store, error) {
	query := fmt.Sprintf(`SELECT %s FROM stores WHERE chain_id = $1 AND store_number = $2`, storeColumns)

	s, err := scanStore(r.db.QueryRow(ctx, query, chainID, storeNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения магазина по естественному ключу: %w", err)
	}
	return s, nil
}

func (r *storeRepo) ExistsByNaturalKey(ctx context.Context, chainID string, storeNumber int) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM stores WHERE chain_id = $1 AND store_number = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, chainID, storeNumber).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки существования магазина: %w", err)
	}
	return exists, nil
}

func (r *storeRepo) Update(ctx context.Context, s *model.Store) error {
	query := `
		UPDATE stores
		SET store_type = $2, store_name = $3, sub_chain_id = $4, last_modified_by = $5,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $6
		RETURNING version, updated_at`

	err := r.db.QueryRow(ctx, query,
		s.ID, s.StoreType, s.StoreName, s.SubChainID, s.LastModifiedBy, s.Version,
	).Scan(&s.Version, &s.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("ошибка обновления магазина: %w", err)
	}

	// Строка не обновлена: либо записи нет, либо версия устарела
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stores WHERE id = $1)`, s.ID).Scan(&exists); err != nil {
		return fmt.Errorf("ошибка проверки существования магазина: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return fmt.Errorf("%w: магазин %s, версия %d", ErrStaleVersion, s.ID, s.Version)
}

func (r *storeRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("ошибка удаления магазина: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// buildStoreWhere строит WHERE-условие и аргументы для фильтрации магазинов.
func buildStoreWhere(filters StoreListFilters, startArg int) (string, []any) {
	b := newWhereBuilder(startArg)
	if filters.ChainID != nil {
		b.add("chain_id", *filters.ChainID)
	}
	if filters.StoreType != nil {
		b.add("store_type", *filters.StoreType)
	}
	if filters.SubChainID != nil {
		b.add("sub_chain_id", *filters.SubChainID)
	}
	return b.build()
}

func (r *storeRepo) List(ctx context.Context, filters StoreListFilters, limit, offset int) ([]*model.Store, error) {
	where, args := buildStoreWhere(filters, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM stores
		%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, storeColumns, where, argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка магазинов: %w", err)
	}
	defer rows.Close()

	var result []*model.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования магазина: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *storeRepo) Count(ctx context.Context, filters StoreListFilters) (int, error) {
	where, args := buildStoreWhere(filters, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM stores %s`, where)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта магазинов: %w", err)
	}
	return count, nil
}

// scanStore сканирует строку в model.Store (порядок — storeColumns).
func scanStore(row pgx.Row) (*model.Store, error) {
	s := &model.Store{}
	err := row.Scan(
		&s.ID, &s.StoreNumber, &s.ChainID, &s.StoreType, &s.StoreName, &s.SubChainID,
		&s.CreatedBy, &s.LastModifiedBy, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
