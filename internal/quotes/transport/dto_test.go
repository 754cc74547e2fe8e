package transport

import (
	"testing"

	"arborlead_backend/platform/validator"

	"github.com/google/uuid"
)

func TestCreateQuoteRequestAllowsFreeLineItem(t *testing.T) {
	val := validator.New()

	req := CreateQuoteRequest{
		LeadID: uuid.New(),
		Items: []QuoteItemRequest{
			{Quantity: 1, TreeSpecies: "Tall (Pine)", OperationType: "Trädfällning", CostOre: 0},
		},
	}
	if err := val.Struct(req); err != nil {
		t.Fatalf("zero-cost item should validate: %v", err)
	}

	req.Items[0].CostOre = -100
	if err := val.Struct(req); err == nil {
		t.Fatal("negative cost should be rejected")
	}

	req.Items[0].CostOre = 10000
	req.Items[0].Quantity = 0
	if err := val.Struct(req); err == nil {
		t.Fatal("zero quantity should be rejected")
	}
}
