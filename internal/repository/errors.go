// Package repository содержит реализации хранилища: PostgreSQL и встроенную BoltDB.
package repository

import (
	"errors"

	"github.com/mmeshcher/billdesk/internal/model"
)

var (
	// ErrStorageUnavailable возвращается, если архив счетов не смог выполнить запись или чтение.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrBillNotFound возвращается, если счёт с указанным идентификатором отсутствует в архиве.
	ErrBillNotFound = errors.New("bill not found")
	// ErrItemExists возвращается при попытке добавить в меню позицию с уже существующим названием.
	ErrItemExists = errors.New("catalog item already exists")
	// ErrItemNotFound возвращается, если позиция меню не найдена.
	ErrItemNotFound = errors.New("catalog item not found")
	// ErrOperatorExists возвращается при попытке создать оператора с уже существующим логином.
	ErrOperatorExists = errors.New("operator already exists")
	// ErrOperatorNotFound возвращается, если оператор не найден.
	ErrOperatorNotFound = errors.New("operator not found")
)

// DefaultCatalog содержит стартовое меню, которым заполняется пустое хранилище.
var DefaultCatalog = []model.CatalogItem{
	{Name: "Aloo Paratha", Price: model.MustAmount("50.0")},
	{Name: "Chole Bhature", Price: model.MustAmount("70.0")},
	{Name: "Samosa", Price: model.MustAmount("20.0")},
}

// copyItems возвращает независимую копию позиций; пустой список остаётся непустым срезом.
func copyItems(items []model.LineItem) []model.LineItem {
	res := make([]model.LineItem, len(items))
	copy(res, items)
	return res
}
