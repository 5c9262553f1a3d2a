// Пакет model — доменные модели store-service и retail-file-service.
package model

import "strings"

// Optional — значение, которое может отсутствовать.
// Используется в patch-объектах: отсутствующее поле не меняет запись.
// Нулевое значение Optional — «отсутствует».
type Optional[T any] struct {
	value T
	set   bool
}

// Some возвращает заполненный Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// FromPtr возвращает Optional из указателя: nil — отсутствует.
func FromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return Optional[T]{}
	}
	return Some(*p)
}

// NonBlank возвращает Optional из строкового указателя.
// nil и строки из одних пробелов считаются отсутствующими.
func NonBlank(p *string) Optional[string] {
	if p == nil || strings.TrimSpace(*p) == "" {
		return Optional[string]{}
	}
	return Some(*p)
}

// Get возвращает значение и признак его наличия.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet сообщает, задано ли значение.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// OrElse возвращает значение или def, если значение отсутствует.
func (o Optional[T]) OrElse(def T) T {
	if o.set {
		return o.value
	}
	return def
}
