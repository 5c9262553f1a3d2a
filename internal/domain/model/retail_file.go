package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStatus — статус обработки розничного файла.
// Переходы между статусами не ограничены.
type FileStatus string

const (
	FileStatusPending    FileStatus = "PENDING"
	FileStatusProcessing FileStatus = "PROCESSING"
	FileStatusCompleted  FileStatus = "COMPLETED"
	FileStatusFailed     FileStatus = "FAILED"
	FileStatusArchived   FileStatus = "ARCHIVED"
)

// FileStatuses — все допустимые статусы в порядке жизненного цикла.
var FileStatuses = []FileStatus{
	FileStatusPending,
	FileStatusProcessing,
	FileStatusCompleted,
	FileStatusFailed,
	FileStatusArchived,
}

// Valid сообщает, является ли статус допустимым.
func (s FileStatus) Valid() bool {
	for _, st := range FileStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// ParseFileStatus разбирает статус без учёта регистра.
func ParseFileStatus(raw string) (FileStatus, error) {
	s := FileStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("недопустимый статус %q, допустимые: PENDING, PROCESSING, COMPLETED, FAILED, ARCHIVED", raw)
	}
	return s, nil
}

// RetailFile — метаданные розничного файла.
// Хранится в таблице retail_files.
type RetailFile struct {
	// ID — UUID записи (генерируется БД)
	ID uuid.UUID
	// FileName — имя файла с расширением из белого списка
	FileName string
	// FileURL — http(s)-адрес файла
	FileURL string
	// FileSize — размер в байтах (опционально)
	FileSize *int64
	// UploadDate — время загрузки (по умолчанию — время создания)
	UploadDate time.Time
	// Status — статус обработки
	Status FileStatus
	// Checksum — SHA-256 (переданный клиентом или вычисленный по URL)
	Checksum string
	// StoreID — UUID магазина в store-service
	StoreID uuid.UUID
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// RetailFilePatch — частичное обновление метаданных файла.
type RetailFilePatch struct {
	FileName   Optional[string]
	FileURL    Optional[string]
	FileSize   Optional[int64]
	UploadDate Optional[time.Time]
	Status     Optional[FileStatus]
	Checksum   Optional[string]
}

// Apply возвращает копию f с применёнными заданными полями patch.
func (p RetailFilePatch) Apply(f RetailFile) RetailFile {
	if v, ok := p.FileName.Get(); ok {
		f.FileName = v
	}
	if v, ok := p.FileURL.Get(); ok {
		f.FileURL = v
	}
	if v, ok := p.FileSize.Get(); ok {
		size := v
		f.FileSize = &size
	}
	if v, ok := p.UploadDate.Get(); ok {
		f.UploadDate = v
	}
	if v, ok := p.Status.Get(); ok {
		f.Status = v
	}
	if v, ok := p.Checksum.Get(); ok {
		f.Checksum = v
	}
	return f
}
