package models

import (
	"errors"
	"fmt"
	"time"
)

// Errores de dominio del ledger de stock.
var ErrInvalidQuantity = errors.New("la cantidad debe ser mayor a cero")

// InsufficientStockError: el stock libre no alcanza para la cantidad pedida.
// Es un resultado esperado del negocio, no una falla del sistema.
type InsufficientStockError struct {
	Denomination int64
	Requested    int64
	Available    int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para denominación %d: disponible %d, solicitado %d",
		e.Denomination, e.Available, e.Requested)
}

// InvariantViolationError: error de programación del caller (ej. confirmar más
// de lo reservado). Nunca se recupera en silencio.
type InvariantViolationError struct {
	Msg string
}

func (e *InvariantViolationError) Error() string { return e.Msg }

// StockEntry: stock físico de una denominación de una divisa en una sucursal.
// Única por (branch, currency, denomination). Nunca se borra; una fila en cero
// es válida y se conserva.
type StockEntry struct {
	ID           uint   `gorm:"primaryKey"`
	BranchID     uint   `gorm:"uniqueIndex:idx_stock_branch_currency_denom;not null"`
	Branch       Branch
	CurrencyCode string   `gorm:"uniqueIndex:idx_stock_branch_currency_denom;size:3;not null"`
	Currency     Currency `gorm:"foreignKey:CurrencyCode;references:Code"`
	Denomination int64    `gorm:"uniqueIndex:idx_stock_branch_currency_denom;not null"`
	Available    int64    `gorm:"not null;default:0"`
	Reserved     int64    `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Free: cantidad utilizable para nuevas reservas o extracciones directas.
func (s *StockEntry) Free() int64 {
	return s.Available - s.Reserved
}

// Reserve aparta qty unidades para una transacción pendiente. Devuelve false
// sin tocar el estado cuando no hay stock libre suficiente: la insuficiencia
// es un resultado normal, no un error.
func (s *StockEntry) Reserve(qty int64) bool {
	if qty <= 0 {
		return false
	}
	if s.Free() < qty {
		return false
	}
	s.Reserved += qty
	return true
}

// Release libera stock reservado. Sobre-liberar recorta a cero en vez de dejar
// el contador negativo; devuelve cuánto se liberó realmente para que el caller
// pueda loguear el recorte.
func (s *StockEntry) Release(qty int64) int64 {
	if qty <= 0 {
		return 0
	}
	released := qty
	if released > s.Reserved {
		released = s.Reserved
	}
	s.Reserved -= released
	return released
}

// Confirm descuenta definitivamente unidades reservadas (efectivo entregado).
// Confirmar más de lo reservado es un bug del caller: el lock ya serializa el
// acceso, así que no puede ser una carrera.
func (s *StockEntry) Confirm(qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > s.Reserved {
		return &InvariantViolationError{
			Msg: fmt.Sprintf("confirmación de %d unidades con solo %d reservadas (denominación %d)",
				qty, s.Reserved, s.Denomination),
		}
	}
	s.Available -= qty
	s.Reserved -= qty
	return nil
}

// Deposit suma unidades físicas al stock.
func (s *StockEntry) Deposit(qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	s.Available += qty
	return nil
}

// Withdraw descuenta unidades directamente, sin pasar por reserva (extracción
// manual de caja).
func (s *StockEntry) Withdraw(qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if s.Free() < qty {
		return &InsufficientStockError{
			Denomination: s.Denomination,
			Requested:    qty,
			Available:    s.Free(),
		}
	}
	s.Available -= qty
	return nil
}

// Value: valor monetario del stock disponible de esta fila.
func (s *StockEntry) Value() int64 {
	return s.Available * s.Denomination
}
