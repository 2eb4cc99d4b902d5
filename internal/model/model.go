// Package model содержит доменные сущности сервиса выставления счетов.
package model

import "time"

// LineItem описывает одну позицию счёта.
//
// Сумма позиции (Total) передаётся клиентом и не пересчитывается из цены и количества.
type LineItem struct {
	Name     string `json:"name"`
	Price    Amount `json:"price"`
	Quantity int    `json:"quantity"`
	Total    Amount `json:"total"`
}

// BillRequest содержит данные для формирования счёта.
type BillRequest struct {
	ClientName string     `json:"client_name"`
	Items      []LineItem `json:"items"`
}

// BillRecord описывает сохранённый в архиве счёт. После записи не изменяется.
type BillRecord struct {
	ID         int64      `json:"id"`
	ClientName string     `json:"client_name"`
	Items      []LineItem `json:"items"`
	GrandTotal Amount     `json:"grand_total"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Bill содержит результат формирования счёта: архивную запись и готовый документ.
type Bill struct {
	Record   BillRecord
	Document []byte
	Pages    int
}

// CatalogItem описывает позицию меню с ценой.
type CatalogItem struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price Amount `json:"price"`
}

// Operator представляет зарегистрированного оператора кассы.
type Operator struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}
