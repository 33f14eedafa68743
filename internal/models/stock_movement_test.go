package models_test

import (
	"testing"

	"cambios-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestStockMovement_TotalValue(t *testing.T) {
	m := models.StockMovement{
		Lines: []models.StockMovementLine{
			{Denomination: 100_000, Quantity: 2},
			{Denomination: 50_000, Quantity: 3},
		},
	}
	assert.Equal(t, int64(350_000), m.TotalValue())
}

func TestStockMovement_DenominationSummary_Descending(t *testing.T) {
	m := models.StockMovement{
		Lines: []models.StockMovementLine{
			{Denomination: 5_000, Quantity: 1},
			{Denomination: 100_000, Quantity: 2},
			{Denomination: 20_000, Quantity: 4},
		},
	}
	assert.Equal(t, "2x100000, 4x20000, 1x5000", m.DenominationSummary())
}

func TestStockMovement_IsTerminal(t *testing.T) {
	tests := []struct {
		status models.MovementStatus
		want   bool
	}{
		{models.MovementPending, false},
		{models.MovementConfirmed, true},
		{models.MovementCancelled, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			m := models.StockMovement{Status: tt.status}
			assert.Equal(t, tt.want, m.IsTerminal())
		})
	}
}
