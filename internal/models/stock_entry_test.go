package models_test

import (
	"testing"

	"cambios-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(available, reserved int64) *models.StockEntry {
	return &models.StockEntry{
		BranchID:     1,
		CurrencyCode: "USD",
		Denomination: 50,
		Available:    available,
		Reserved:     reserved,
	}
}

func assertInvariants(t *testing.T, e *models.StockEntry) {
	t.Helper()
	assert.GreaterOrEqual(t, e.Available, int64(0))
	assert.GreaterOrEqual(t, e.Reserved, int64(0))
	assert.LessOrEqual(t, e.Reserved, e.Available)
}

func TestStockEntry_DepositThenWithdraw(t *testing.T) {
	e := entry(0, 0)

	require.NoError(t, e.Deposit(5))
	require.NoError(t, e.Withdraw(3))

	assert.Equal(t, int64(2), e.Available)
	assert.Equal(t, int64(0), e.Reserved)
	assertInvariants(t, e)
}

func TestStockEntry_Deposit_RejectsNonPositive(t *testing.T) {
	e := entry(10, 0)

	assert.ErrorIs(t, e.Deposit(0), models.ErrInvalidQuantity)
	assert.ErrorIs(t, e.Deposit(-3), models.ErrInvalidQuantity)
	assert.Equal(t, int64(10), e.Available)
}

func TestStockEntry_Withdraw_InsufficientLeavesStateUntouched(t *testing.T) {
	e := entry(5, 3) // libre = 2

	err := e.Withdraw(3)

	var insufficient *models.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(50), insufficient.Denomination)
	assert.Equal(t, int64(3), insufficient.Requested)
	assert.Equal(t, int64(2), insufficient.Available)
	assert.Equal(t, int64(5), e.Available)
	assert.Equal(t, int64(3), e.Reserved)
}

func TestStockEntry_Withdraw_RespectsReserved(t *testing.T) {
	e := entry(5, 3)

	require.NoError(t, e.Withdraw(2))

	assert.Equal(t, int64(3), e.Available)
	assertInvariants(t, e)
}

func TestStockEntry_ReserveAndConfirm(t *testing.T) {
	e := entry(5, 0)

	// Reservar 2 con libre=5 funciona.
	assert.True(t, e.Reserve(2))
	assert.Equal(t, int64(2), e.Reserved)
	assert.Equal(t, int64(3), e.Free())

	// Reservar 4 con libre=3 falla sin tocar el estado.
	assert.False(t, e.Reserve(4))
	assert.Equal(t, int64(2), e.Reserved)
	assert.Equal(t, int64(5), e.Available)

	// Confirmar lo reservado descuenta ambos contadores.
	require.NoError(t, e.Confirm(2))
	assert.Equal(t, int64(3), e.Available)
	assert.Equal(t, int64(0), e.Reserved)
	assertInvariants(t, e)
}

func TestStockEntry_Reserve_RejectsNonPositive(t *testing.T) {
	e := entry(5, 0)

	assert.False(t, e.Reserve(0))
	assert.False(t, e.Reserve(-1))
	assert.Equal(t, int64(0), e.Reserved)
}

func TestStockEntry_Confirm_MoreThanReservedIsInvariantViolation(t *testing.T) {
	e := entry(5, 2)

	err := e.Confirm(3)

	var violation *models.InvariantViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, int64(5), e.Available)
	assert.Equal(t, int64(2), e.Reserved)
}

func TestStockEntry_Release_ClampsInsteadOfGoingNegative(t *testing.T) {
	e := entry(5, 2)

	// Sobre-liberar recorta a lo reservado.
	assert.Equal(t, int64(2), e.Release(10))
	assert.Equal(t, int64(0), e.Reserved)

	// Liberar de nuevo no baja de cero.
	assert.Equal(t, int64(0), e.Release(1))
	assert.Equal(t, int64(0), e.Reserved)
	assertInvariants(t, e)
}

func TestStockEntry_Conservation(t *testing.T) {
	// available siempre es Σ depósitos − Σ retiros confirmados.
	e := entry(0, 0)
	var deposited, removed int64

	steps := []struct {
		deposit int64
		reserve int64
		confirm int64
	}{
		{deposit: 10},
		{reserve: 4, confirm: 4},
		{deposit: 7},
		{reserve: 6, confirm: 6},
		{deposit: 1},
	}
	for _, s := range steps {
		if s.deposit > 0 {
			require.NoError(t, e.Deposit(s.deposit))
			deposited += s.deposit
		}
		if s.reserve > 0 {
			require.True(t, e.Reserve(s.reserve))
		}
		if s.confirm > 0 {
			require.NoError(t, e.Confirm(s.confirm))
			removed += s.confirm
		}
		assert.Equal(t, deposited-removed, e.Available)
		assertInvariants(t, e)
	}
}

func TestStockEntry_Value(t *testing.T) {
	e := entry(4, 1)
	assert.Equal(t, int64(200), e.Value())
}
