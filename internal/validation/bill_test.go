package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/billdesk/internal/model"
)

func samosa() model.LineItem {
	return model.LineItem{
		Name:     "Samosa",
		Price:    model.MustAmount("20.0"),
		Quantity: 2,
		Total:    model.MustAmount("40.0"),
	}
}

func TestValidateBillRequest(t *testing.T) {
	tests := []struct {
		name  string
		req   model.BillRequest
		field string
	}{
		{
			name: "valid",
			req:  model.BillRequest{ClientName: "Asha", Items: []model.LineItem{samosa()}},
		},
		{
			name: "empty items allowed",
			req:  model.BillRequest{Items: []model.LineItem{}},
		},
		{
			name:  "items missing",
			req:   model.BillRequest{ClientName: "Asha"},
			field: "items",
		},
		{
			name: "missing name",
			req: model.BillRequest{Items: []model.LineItem{
				samosa(),
				{Price: model.MustAmount("1"), Quantity: 1, Total: model.MustAmount("1")},
			}},
			field: "items[1].name",
		},
		{
			name: "missing price",
			req: model.BillRequest{Items: []model.LineItem{
				{Name: "Tea", Quantity: 1, Total: model.MustAmount("1")},
			}},
			field: "items[0].price",
		},
		{
			name: "zero quantity",
			req: model.BillRequest{Items: []model.LineItem{
				{Name: "Tea", Price: model.MustAmount("1"), Total: model.MustAmount("1")},
			}},
			field: "items[0].quantity",
		},
		{
			name: "negative total",
			req: model.BillRequest{Items: []model.LineItem{
				{Name: "Tea", Price: model.MustAmount("1"), Quantity: 1, Total: model.MustAmount("-1")},
			}},
			field: "items[0].total",
		},
		{
			name: "total with too many decimal places",
			req: model.BillRequest{Items: []model.LineItem{
				samosa(),
				{Name: "Tea", Price: model.MustAmount("1"), Quantity: 1, Total: model.MustAmount("0.00001")},
			}},
			field: "items[1].total",
		},
		{
			name: "tiny exponent total",
			req: model.BillRequest{Items: []model.LineItem{
				{Name: "Tea", Price: model.MustAmount("1"), Quantity: 1, Total: model.NewAmount(decimal.New(1, -5000))},
			}},
			field: "items[0].total",
		},
		{
			name: "huge price",
			req: model.BillRequest{Items: []model.LineItem{
				{Name: "Tea", Price: model.NewAmount(decimal.New(1, 15)), Quantity: 1, Total: model.MustAmount("1")},
			}},
			field: "items[0].price",
		},
		{
			name: "largest accepted amounts",
			req: model.BillRequest{Items: []model.LineItem{
				{Name: "Tea", Price: model.MustAmount("999999999999999.9999"), Quantity: 1, Total: model.MustAmount("0.0001")},
			}},
		},
		{
			name: "inconsistent total is trusted",
			req: model.BillRequest{Items: []model.LineItem{
				{Name: "Tea", Price: model.MustAmount("10"), Quantity: 3, Total: model.MustAmount("1")},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBillRequest(tt.req)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestValidateCatalogItem(t *testing.T) {
	if err := ValidateCatalogItem("Samosa", model.MustAmount("20.0")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateCatalogItem(" ", model.MustAmount("20.0")); err == nil {
		t.Fatalf("expected error for blank name")
	}
	if err := ValidateCatalogItem("Samosa", model.Amount{}); err == nil {
		t.Fatalf("expected error for missing price")
	}
	if err := ValidateCatalogItem("Samosa", model.MustAmount("20.00001")); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for excess scale, got %v", err)
	}
}
