// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrStaleVersion — запись изменена параллельно (версия не совпала).
	ErrStaleVersion = errors.New("запись изменена другим запросом")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return false
}

// whereBuilder собирает WHERE-условие с позиционными аргументами ($1, $2, ...).
type whereBuilder struct {
	conditions []string
	args       []any
	next       int
}

func newWhereBuilder(startArg int) *whereBuilder {
	return &whereBuilder{next: startArg}
}

// add добавляет условие вида "column = $N".
func (b *whereBuilder) add(column string, value any) {
	b.conditions = append(b.conditions, fmt.Sprintf("%s = $%d", column, b.next))
	b.args = append(b.args, value)
	b.next++
}

// build возвращает WHERE-выражение (пустое, если условий нет) и аргументы.
func (b *whereBuilder) build() (string, []any) {
	if len(b.conditions) == 0 {
		return "", b.args
	}
	return "WHERE " + strings.Join(b.conditions, " AND "), b.args
}
