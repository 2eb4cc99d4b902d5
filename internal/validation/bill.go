// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/billdesk/internal/model"
)

const (
	// MaxScale ограничивает число знаков после запятой в суммах.
	MaxScale = 4
	// MaxIntegerDigits ограничивает число цифр в целой части суммы.
	MaxIntegerDigits = 15
)

// ErrInvalidRequest возвращается (через errors.Is) для любого некорректного запроса на счёт.
var ErrInvalidRequest = errors.New("invalid bill request")

// Error описывает нарушение в конкретном поле запроса.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidRequest, e.Field, e.Reason)
}

// Is позволяет сопоставлять ошибку с ErrInvalidRequest.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidRequest
}

// ValidateBillRequest проверяет наличие и допустимость всех обязательных полей счёта.
// Пустой список позиций допустим, отсутствующий недопустим.
func ValidateBillRequest(req model.BillRequest) error {
	if req.Items == nil {
		return &Error{Field: "items", Reason: "is required"}
	}

	for i, it := range req.Items {
		if err := validateLineItem(it); err != nil {
			err.Field = fmt.Sprintf("items[%d].%s", i, err.Field)
			return err
		}
	}

	return nil
}

func validateLineItem(it model.LineItem) *Error {
	if strings.TrimSpace(it.Name) == "" {
		return &Error{Field: "name", Reason: "is required"}
	}
	if !it.Price.IsSet() {
		return &Error{Field: "price", Reason: "is required"}
	}
	if err := checkAmount("price", it.Price); err != nil {
		return err
	}
	if it.Quantity < 1 {
		return &Error{Field: "quantity", Reason: "must be at least 1"}
	}
	if !it.Total.IsSet() {
		return &Error{Field: "total", Reason: "is required"}
	}
	return checkAmount("total", it.Total)
}

func checkAmount(field string, a model.Amount) *Error {
	if a.IsNegative() {
		return &Error{Field: field, Reason: "must not be negative"}
	}
	if a.Scale() > MaxScale {
		return &Error{Field: field, Reason: fmt.Sprintf("must have at most %d decimal places", MaxScale)}
	}
	if a.IntegerDigits() > MaxIntegerDigits {
		return &Error{Field: field, Reason: fmt.Sprintf("must have at most %d integer digits", MaxIntegerDigits)}
	}
	return nil
}

// ValidateCatalogItem проверяет позицию меню перед сохранением.
func ValidateCatalogItem(name string, price model.Amount) error {
	if strings.TrimSpace(name) == "" {
		return &Error{Field: "name", Reason: "is required"}
	}
	if !price.IsSet() {
		return &Error{Field: "price", Reason: "is required"}
	}
	if err := checkAmount("price", price); err != nil {
		return err
	}
	return nil
}
