// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — магазин с таким естественным ключом уже существует.
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrStaleVersion — магазин изменён параллельным запросом.
	ErrStaleVersion = errors.New("конфликт версий — ресурс изменён другим запросом")
	// ErrDuplicate — файл с такой контрольной суммой уже зарегистрирован.
	ErrDuplicate = errors.New("дубликат файла")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrStoreUnavailable — store-service недоступен или вернул неожиданный ответ.
	ErrStoreUnavailable = errors.New("store-service недоступен")
)
