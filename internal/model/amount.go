package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount хранит денежную сумму как десятичное число вместе с исходной записью,
// переданной клиентом. Исходная запись используется при печати и сериализации,
// поэтому "20.0" остаётся "20.0".
type Amount struct {
	value decimal.Decimal
	text  string
}

// NewAmount создаёт сумму из десятичного значения.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{value: d, text: d.String()}
}

// plainDecimal допускает только запись вида "-12.50": без экспоненты, знака "+",
// ведущих нулей и точки без целой части. Такая запись всегда является JSON-числом.
var plainDecimal = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

// ErrAmountFormat возвращается для записи суммы, не являющейся простой десятичной дробью.
var ErrAmountFormat = errors.New("amount must be a plain decimal")

// ParseAmount разбирает сумму из строкового представления числа.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if !plainDecimal.MatchString(s) {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, ErrAmountFormat)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{value: d, text: s}, nil
}

// MustAmount аналогичен ParseAmount, но паникует при ошибке. Используется в тестах и константах.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// SumAmounts складывает суммы без потери точности. Число знаков после запятой
// у результата равно наибольшему среди слагаемых.
func SumAmounts(amounts []Amount) Amount {
	sum := decimal.Zero
	var scale int32
	for _, a := range amounts {
		sum = sum.Add(a.value)
		if s := a.Scale(); s > scale {
			scale = s
		}
	}
	return Amount{value: sum, text: sum.StringFixed(scale)}
}

// Decimal возвращает десятичное значение суммы.
func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

// IntegerDigits возвращает число цифр в целой части суммы.
func (a Amount) IntegerDigits() int {
	n := a.value.NumDigits() + int(a.value.Exponent())
	if n < 1 {
		return 1
	}
	return n
}

// Scale возвращает число знаков после запятой в записи суммы.
func (a Amount) Scale() int32 {
	if exp := a.value.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// IsNegative сообщает, меньше ли сумма нуля.
func (a Amount) IsNegative() bool {
	return a.value.IsNegative()
}

// Equal сравнивает суммы по значению и по записи.
func (a Amount) Equal(b Amount) bool {
	return a.value.Equal(b.value) && a.String() == b.String()
}

func (a Amount) String() string {
	if a.text != "" {
		return a.text
	}
	return a.value.String()
}

// MarshalJSON записывает сумму числом в исходной записи клиента.
func (a Amount) MarshalJSON() ([]byte, error) {
	s := a.String()
	if isJSONNumber(s) {
		return []byte(s), nil
	}
	return []byte(a.value.String()), nil
}

// UnmarshalJSON принимает сумму как JSON-число или как строку с числом.
func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return errors.New("amount is null")
	}

	if strings.HasPrefix(raw, `"`) {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("unquote amount: %w", err)
		}
		raw = s
	}

	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func isJSONNumber(s string) bool {
	if s == "" {
		return false
	}
	if c := s[0]; c != '-' && (c < '0' || c > '9') {
		return false
	}
	return json.Valid([]byte(s))
}

// IsSet сообщает, была ли сумма задана явно.
func (a Amount) IsSet() bool {
	return a.text != "" || !a.value.IsZero()
}
