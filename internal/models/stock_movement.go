package models

import (
	"fmt"
	"strings"
	"time"
)

type MovementType string

const (
	MovementDeposit     MovementType = "entrada"
	MovementWithdrawal  MovementType = "salida"
	MovementReservation MovementType = "reserva"
	MovementRelease     MovementType = "liberacion"
	// MovementAdjustment queda reservado para correcciones manuales de
	// inventario; hoy las correcciones se registran como entrada/salida con
	// motivo.
	MovementAdjustment MovementType = "ajuste"
)

type MovementStatus string

const (
	MovementPending   MovementStatus = "pendiente"
	MovementConfirmed MovementStatus = "confirmado"
	MovementCancelled MovementStatus = "cancelado"
)

// StockMovement: cabecera de un evento que afecta el stock. Una vez en estado
// terminal (confirmado/cancelado) es inmutable; las cabeceras nunca se borran.
type StockMovement struct {
	ID           uint `gorm:"primaryKey"`
	BranchID     uint `gorm:"index;not null"`
	Branch       Branch
	CurrencyCode string         `gorm:"size:3;not null"`
	Currency     Currency       `gorm:"foreignKey:CurrencyCode;references:Code"`
	Type         MovementType   `gorm:"size:20;not null"`
	Status       MovementStatus `gorm:"size:20;not null;default:pendiente"`
	ReferenceID  *string        `gorm:"size:64;index"` // transacción externa asociada (opcional)
	Reason       string         `gorm:"size:255"`
	CreatedAt    time.Time
	ProcessedAt  *time.Time

	Lines []StockMovementLine `gorm:"foreignKey:MovementID;constraint:OnDelete:CASCADE"`
}

// StockMovementLine: aporte de una denominación al movimiento. Única por
// (movimiento, denominación); cantidades repartidas se fusionan, no se duplican.
type StockMovementLine struct {
	ID           uint  `gorm:"primaryKey"`
	MovementID   uint  `gorm:"uniqueIndex:idx_movement_denom;not null"`
	Denomination int64 `gorm:"uniqueIndex:idx_movement_denom;not null"`
	Quantity     int64 `gorm:"not null"`
}

// Value: valor de la línea (denominación × cantidad).
func (l *StockMovementLine) Value() int64 {
	return l.Denomination * l.Quantity
}

// IsTerminal indica si el movimiento ya no admite transiciones.
func (m *StockMovement) IsTerminal() bool {
	return m.Status == MovementConfirmed || m.Status == MovementCancelled
}

// TotalValue suma el valor de todas las líneas.
func (m *StockMovement) TotalValue() int64 {
	var total int64
	for i := range m.Lines {
		total += m.Lines[i].Value()
	}
	return total
}

// DenominationSummary: resumen legible tipo "3x100000, 5x50000" (descendente).
func (m *StockMovement) DenominationSummary() string {
	lines := make([]StockMovementLine, len(m.Lines))
	copy(lines, m.Lines)
	for i := 1; i < len(lines); i++ {
		for j := i; j > 0 && lines[j].Denomination > lines[j-1].Denomination; j-- {
			lines[j], lines[j-1] = lines[j-1], lines[j]
		}
	}
	parts := make([]string, 0, len(lines))
	for i := range lines {
		parts = append(parts, fmt.Sprintf("%dx%d", lines[i].Quantity, lines[i].Denomination))
	}
	return strings.Join(parts, ", ")
}
