// Package snapshot кодирует данные счёта в QR-код для печати в документе.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	// MaxPayloadBytes задаёт ёмкость QR-кода версии 40 в байтовом режиме при уровне коррекции L.
	MaxPayloadBytes = 2953

	// pixelsPerModule задаёт размер модуля; отрицательный размер в go-qrcode означает пиксели на модуль.
	pixelsPerModule = 10
)

// ErrPayloadTooLarge возвращается, если сериализованные данные не помещаются в QR-код.
var ErrPayloadTooLarge = errors.New("snapshot payload too large")

// Encoder строит PNG-изображение QR-кода. Не хранит состояния и безопасен для конкурентного использования.
type Encoder struct{}

// NewEncoder создаёт кодировщик снимков.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode сериализует payload в JSON и возвращает PNG с QR-кодом уровня коррекции L.
// Версия QR-кода подбирается минимальной, вмещающей данные.
func (e *Encoder) Encode(payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot payload: %w", err)
	}

	if len(data) > MaxPayloadBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(data), MaxPayloadBytes)
	}

	code, err := qrcode.New(string(data), qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayloadTooLarge, err)
	}

	png, err := code.PNG(-pixelsPerModule)
	if err != nil {
		return nil, fmt.Errorf("render snapshot png: %w", err)
	}

	return png, nil
}
