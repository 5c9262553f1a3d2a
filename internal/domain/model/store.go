package model

import (
	"time"

	"github.com/google/uuid"
)

// Store — магазин сети.
// Хранится в таблице stores, естественный ключ — (ChainID, StoreNumber).
type Store struct {
	// ID — UUID магазина (генерируется БД)
	ID uuid.UUID
	// StoreNumber — номер магазина внутри сети
	StoreNumber int
	// ChainID — идентификатор сети (до 20 символов)
	ChainID string
	// StoreType — тип магазина (до 10 символов)
	StoreType string
	// StoreName — название магазина (до 100 символов)
	StoreName string
	// SubChainID — идентификатор подсети (> 0)
	SubChainID int
	// CreatedBy — сервис или пользователь, создавший запись
	CreatedBy string
	// LastModifiedBy — автор последнего изменения
	LastModifiedBy string
	// Version — счётчик оптимистичной блокировки, растёт при каждом обновлении
	Version int64
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// NaturalKey возвращает естественный ключ магазина.
func (s *Store) NaturalKey() StoreKey {
	return StoreKey{ChainID: s.ChainID, StoreNumber: s.StoreNumber}
}

// StoreKey — естественный ключ магазина.
type StoreKey struct {
	ChainID     string
	StoreNumber int
}

// StorePatch — частичное обновление магазина.
// Естественный ключ через patch не меняется.
type StorePatch struct {
	StoreType      Optional[string]
	StoreName      Optional[string]
	SubChainID     Optional[int]
	LastModifiedBy Optional[string]
}

// Apply возвращает копию s с применёнными заданными полями patch.
// Отсутствующие поля остаются без изменений.
func (p StorePatch) Apply(s Store) Store {
	if v, ok := p.StoreType.Get(); ok {
		s.StoreType = v
	}
	if v, ok := p.StoreName.Get(); ok {
		s.StoreName = v
	}
	if v, ok := p.SubChainID.Get(); ok {
		s.SubChainID = v
	}
	if v, ok := p.LastModifiedBy.Get(); ok {
		s.LastModifiedBy = v
	}
	return s
}
