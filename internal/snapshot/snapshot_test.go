package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	_ "image/png"
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/billdesk/internal/model"
)

func decodeQR(t *testing.T, png []byte) string {
	t.Helper()

	img, _, err := image.Decode(bytes.NewReader(png))
	require.NoError(t, err)

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	require.NoError(t, err)

	res, err := zxqrcode.NewQRCodeReader().Decode(bmp, nil)
	require.NoError(t, err)

	return res.GetText()
}

func TestEncode_RoundTrip(t *testing.T) {
	req := model.BillRequest{
		ClientName: "Asha",
		Items: []model.LineItem{
			{Name: "Samosa", Price: model.MustAmount("20.0"), Quantity: 2, Total: model.MustAmount("40.0")},
			{Name: "Chole Bhature", Price: model.MustAmount("70.0"), Quantity: 1, Total: model.MustAmount("70.0")},
		},
	}

	png, err := NewEncoder().Encode(req)
	require.NoError(t, err)

	var got model.BillRequest
	require.NoError(t, json.Unmarshal([]byte(decodeQR(t, png)), &got))

	assert.Equal(t, req.ClientName, got.ClientName)
	require.Len(t, got.Items, len(req.Items))
	for i := range req.Items {
		assert.Equal(t, req.Items[i].Name, got.Items[i].Name)
		assert.True(t, req.Items[i].Price.Equal(got.Items[i].Price))
		assert.Equal(t, req.Items[i].Quantity, got.Items[i].Quantity)
		assert.True(t, req.Items[i].Total.Equal(got.Items[i].Total))
	}
}

func TestEncode_SmallestVersionAndFixedModuleSize(t *testing.T) {
	png, err := NewEncoder().Encode("hi")
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(png))
	require.NoError(t, err)

	// версия 1: 21 модуль + рамка по 4 модуля с каждой стороны
	want := (21 + 8) * pixelsPerModule
	assert.Equal(t, want, img.Bounds().Dx())
	assert.Equal(t, want, img.Bounds().Dy())
}

func TestEncode_Deterministic(t *testing.T) {
	enc := NewEncoder()
	a, err := enc.Encode(map[string]string{"client_name": "Asha"})
	require.NoError(t, err)
	b, err := enc.Encode(map[string]string{"client_name": "Asha"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncode_PayloadTooLarge(t *testing.T) {
	req := model.BillRequest{ClientName: strings.Repeat("x", MaxPayloadBytes)}

	png, err := NewEncoder().Encode(req)
	assert.Nil(t, png)
	assert.True(t, errors.Is(err, ErrPayloadTooLarge), "got %v", err)
}
