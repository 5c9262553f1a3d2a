package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AvivSela/product-watch-il/internal/domain/model"
)

// retailFileColumns — список столбцов таблицы retail_files для SELECT-запросов.
const retailFileColumns = `id, file_name, file_url, file_size, upload_date, status,
	COALESCE(checksum, ''), store_id, created_at, updated_at`

// RetailFileRepository — интерфейс CRUD для таблицы retail_files.
type RetailFileRepository interface {
	// Create сохраняет метаданные файла. Заполняет ID, CreatedAt, UpdatedAt.
	Create(ctx context.Context, f *model.RetailFile) error
	// GetByID возвращает файл по UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.RetailFile, error)
	// Update перезаписывает изменяемые поля и обновляет f.UpdatedAt.
	Update(ctx context.Context, f *model.RetailFile) error
	// UpdateStatus меняет статус и возвращает обновлённую запись.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.FileStatus) (*model.RetailFile, error)
	// Delete удаляет запись. Возвращает false, если записи не было.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// ExistsByChecksum проверяет наличие файла с указанной контрольной суммой.
	ExistsByChecksum(ctx context.Context, checksum string) (bool, error)
	// List возвращает страницу файлов, отсортированных по upload_date DESC.
	List(ctx context.Context, filters RetailFileListFilters, limit, offset int) ([]*model.RetailFile, error)
	// Count возвращает количество файлов с фильтрацией.
	Count(ctx context.Context, filters RetailFileListFilters) (int, error)
}

// RetailFileListFilters — фильтры списка файлов.
type RetailFileListFilters struct {
	Status  *model.FileStatus
	StoreID *uuid.UUID
}

type retailFileRepo struct {
	db DBTX
}

// NewRetailFileRepository создаёт репозиторий розничных файлов.
func NewRetailFileRepository(db DBTX) RetailFileRepository {
	return &retailFileRepo{db: db}
}

// nullableChecksum — пустая контрольная сумма хранится как NULL,
// чтобы не участвовать в уникальном индексе.
func nullableChecksum(checksum string) *string {
	if checksum == "" {
		return nil
	}
	return &checksum
}

func (r *retailFileRepo) Create(ctx context.Context, f *model.RetailFile) error {
	query := `
		INSERT INTO retail_files (file_name, file_url, file_size, upload_date, status, checksum, store_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		f.FileName, f.FileURL, f.FileSize, f.UploadDate, string(f.Status),
		nullableChecksum(f.Checksum), f.StoreID,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: файл с checksum %s уже существует", ErrConflict, f.Checksum)
		}
		return fmt.Errorf("ошибка создания записи файла: %w", err)
	}
	return nil
}

func (r *retailFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.RetailFile, error) {
	query := fmt.Sprintf(`SELECT %s FROM retail_files WHERE id = $1`, retailFileColumns)

	f, err := scanRetailFile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

func (r *retailFileRepo) Update(ctx context.Context, f *model.RetailFile) error {
	query := `
		UPDATE retail_files
		SET file_name = $2, file_url = $3, file_size = $4, upload_date = $5,
			status = $6, checksum = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		f.ID, f.FileName, f.FileURL, f.FileSize, f.UploadDate, string(f.Status),
		nullableChecksum(f.Checksum),
	).Scan(&f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: файл с checksum %s уже существует", ErrConflict, f.Checksum)
		}
		return fmt.Errorf("ошибка обновления файла: %w", err)
	}
	return nil
}

func (r *retailFileRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.FileStatus) (*model.RetailFile, error) {
	query := fmt.Sprintf(`
		UPDATE retail_files
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, retailFileColumns)

	f, err := scanRetailFile(r.db.QueryRow(ctx, query, id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления статуса файла: %w", err)
	}
	return f, nil
}

func (r *retailFileRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM retail_files WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("ошибка удаления файла: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *retailFileRepo) ExistsByChecksum(ctx context.Context, checksum string) (bool, error) {
	if checksum == "" {
		return false, nil
	}

	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM retail_files WHERE checksum = $1)`, checksum,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки дубликата: %w", err)
	}
	return exists, nil
}

// buildRetailFileWhere строит WHERE-условие и аргументы для фильтрации файлов.
func buildRetailFileWhere(filters RetailFileListFilters, startArg int) (string, []any) {
	b := newWhereBuilder(startArg)
	if filters.Status != nil {
		b.add("status", string(*filters.Status))
	}
	if filters.StoreID != nil {
		b.add("store_id", *filters.StoreID)
	}
	return b.build()
}

func (r *retailFileRepo) List(ctx context.Context, filters RetailFileListFilters, limit, offset int) ([]*model.RetailFile, error) {
	where, args := buildRetailFileWhere(filters, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM retail_files
		%s
		ORDER BY upload_date DESC, id
		LIMIT $%d OFFSET $%d`, retailFileColumns, where, argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.RetailFile
	for rows.Next() {
		f, err := scanRetailFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *retailFileRepo) Count(ctx context.Context, filters RetailFileListFilters) (int, error) {
	where, args := buildRetailFileWhere(filters, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM retail_files %s`, where)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}
	return count, nil
}

func scanRetailFile(row pgx.Row) (*model.RetailFile, error) {
	f := &model.RetailFile{}
	var status string
	err := row.Scan(
		&f.ID, &f.FileName, &f.FileURL, &f.FileSize, &f.UploadDate, &status,
		&f.Checksum, &f.StoreID, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Status = model.FileStatus(status)
	return f, nil
}
