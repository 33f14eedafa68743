// Package stock orquesta el ledger de denominaciones: depósitos, extracciones,
// reservas en dos fases y selección de denominaciones, todo dentro de una
// transacción con lock exclusivo sobre las filas afectadas.
package stock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"cambios-backend/internal/allocation"
	"cambios-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Line: pedido de una denominación dentro de una operación.
type Line struct {
	Denomination int64 `json:"denominacion"`
	Quantity     int64 `json:"cantidad"`
}

// StockRow: fila de stock para consultas (incluye derivados).
type StockRow struct {
	CurrencyCode string `json:"divisa"`
	Denomination int64  `json:"denominacion"`
	Available    int64  `json:"stock"`
	Reserved     int64  `json:"stock_reservado"`
	Free         int64  `json:"stock_libre"`
	Value        int64  `json:"valor_total"`
}

// Totals: valor monetario agregado de una divisa en una sucursal. Solo para
// tableros; las decisiones de asignación usan los techos por denominación.
type Totals struct {
	CurrencyCode string `json:"divisa"`
	Available    int64  `json:"total_disponible"`
	Reserved     int64  `json:"total_reservado"`
	Free         int64  `json:"total_libre"`
}

type Service struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewService(db *gorm.DB, lockTimeout time.Duration) *Service {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &Service{db: db, lockTimeout: lockTimeout}
}

// withTx corre fn en una transacción con timeout de lock acotado. Un 55P03 de
// Postgres se traduce al error de contención reintentable.
func (s *Service) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if err := tx.Exec(timeout).Error; err != nil {
			return err
		}
		return fn(tx)
	})
	if isLockTimeout(err) {
		contentionTotal.Inc()
		return ErrContention
	}
	return err
}

// normalizeLines valida y fusiona líneas repetidas de la misma denominación
// (un movimiento nunca lista dos veces la misma denominación). Devuelve las
// líneas ordenadas por denominación ascendente: ese es también el orden fijo
// de adquisición de locks, para que dos operaciones sobre conjuntos solapados
// no puedan abrazarse.
func normalizeLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, &ValidationError{Msg: "la lista de denominaciones no puede estar vacía"}
	}
	merged := make(map[int64]int64, len(lines))
	for _, l := range lines {
		if l.Denomination <= 0 {
			return nil, &ValidationError{Msg: fmt.Sprintf("denominación inválida: %d", l.Denomination)}
		}
		if l.Quantity <= 0 {
			return nil, &ValidationError{Msg: fmt.Sprintf("la cantidad debe ser mayor a 0 para denominación %d", l.Denomination)}
		}
		merged[l.Denomination] += l.Quantity
	}
	out := make([]Line, 0, len(merged))
	for d, q := range merged {
		out = append(out, Line{Denomination: d, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denomination < out[j].Denomination })
	return out, nil
}

// lockEntry toma la fila con lock de escritura. Devuelve gorm.ErrRecordNotFound
// si la fila no existe.
func lockEntry(tx *gorm.DB, branchID uint, currency string, denomination int64) (*models.StockEntry, error) {
	var entry models.StockEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("branch_id = ? AND currency_code = ? AND denomination = ?", branchID, currency, denomination).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// lockOrInitEntry toma la fila con lock, creándola en cero si es el primer
// depósito de esa (sucursal, divisa, denominación). Dos primeros depósitos
// concurrentes de la misma denominación chocan en el índice único: el insert
// va con ON CONFLICT DO NOTHING para que el perdedor vuelva a tomar la fila
// del ganador en vez de abortar; si mientras tanto vence lock_timeout, sale
// como contención reintentable igual que cualquier otra espera de lock.
func lockOrInitEntry(tx *gorm.DB, branchID uint, currency string, denomination int64) (*models.StockEntry, error) {
	entry, err := lockEntry(tx, branchID, currency, denomination)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	fresh := models.StockEntry{
		BranchID:     branchID,
		CurrencyCode: currency,
		Denomination: denomination,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, err
	}
	return lockEntry(tx, branchID, currency, denomination)
}

func newMovementLines(lines []Line) []models.StockMovementLine {
	out := make([]models.StockMovementLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, models.StockMovementLine{Denomination: l.Denomination, Quantity: l.Quantity})
	}
	return out
}

// Deposit ingresa billetes al stock de la sucursal. Atómico: se aplican todas
// las líneas o ninguna. Devuelve el movimiento confirmado.
func (s *Service) Deposit(ctx context.Context, branchID uint, currency string, lines []Line, referenceID *string, reason string) (*models.StockMovement, error) {
	normalized, err := normalizeLines(lines)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = fmt.Sprintf("Depósito manual de %s", currency)
	}

	now := time.Now()
	movement := &models.StockMovement{
		BranchID:     branchID,
		CurrencyCode: currency,
		Type:         models.MovementDeposit,
		Status:       models.MovementConfirmed,
		ReferenceID:  referenceID,
		Reason:       reason,
		ProcessedAt:  &now,
		Lines:        newMovementLines(normalized),
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		for _, line := range normalized {
			entry, err := lockOrInitEntry(tx, branchID, currency, line.Denomination)
			if err != nil {
				return err
			}
			if err := entry.Deposit(line.Quantity); err != nil {
				return err
			}
			if err := tx.Save(entry).Error; err != nil {
				return err
			}
		}
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, err
	}

	movementsTotal.WithLabelValues(string(models.MovementDeposit)).Inc()
	return movement, nil
}

// Withdraw extrae billetes directamente (corrección manual de caja, sin pasar
// por reserva). Valida todas las líneas bajo lock antes de escribir: si una
// sola no alcanza, no se muta nada.
func (s *Service) Withdraw(ctx context.Context, branchID uint, currency string, lines []Line, referenceID *string, reason string) (*models.StockMovement, error) {
	normalized, err := normalizeLines(lines)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = fmt.Sprintf("Extracción manual de %s", currency)
	}

	now := time.Now()
	movement := &models.StockMovement{
		BranchID:     branchID,
		CurrencyCode: currency,
		Type:         models.MovementWithdrawal,
		Status:       models.MovementConfirmed,
		ReferenceID:  referenceID,
		Reason:       reason,
		ProcessedAt:  &now,
		Lines:        newMovementLines(normalized),
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		entries := make([]*models.StockEntry, 0, len(normalized))
		for _, line := range normalized {
			entry, err := lockEntry(tx, branchID, currency, line.Denomination)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &models.InsufficientStockError{
					Denomination: line.Denomination,
					Requested:    line.Quantity,
					Available:    0,
				}
			}
			if err != nil {
				return err
			}
			if entry.Free() < line.Quantity {
				return &models.InsufficientStockError{
					Denomination: line.Denomination,
					Requested:    line.Quantity,
					Available:    entry.Free(),
				}
			}
			entries = append(entries, entry)
		}
		for i, line := range normalized {
			if err := entries[i].Withdraw(line.Quantity); err != nil {
				return err
			}
			if err := tx.Save(entries[i]).Error; err != nil {
				return err
			}
		}
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, err
	}

	movementsTotal.WithLabelValues(string(models.MovementWithdrawal)).Inc()
	return movement, nil
}

// Reserve aparta billetes contra una transacción pendiente (primera fase).
// El movimiento queda pendiente hasta ConfirmMovement o CancelMovement.
func (s *Service) Reserve(ctx context.Context, branchID uint, currency string, lines []Line, referenceID *string, reason string) (*models.StockMovement, error) {
	normalized, err := normalizeLines(lines)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = fmt.Sprintf("Reserva de %s", currency)
	}

	movement := &models.StockMovement{
		BranchID:     branchID,
		CurrencyCode: currency,
		Type:         models.MovementReservation,
		Status:       models.MovementPending,
		ReferenceID:  referenceID,
		Reason:       reason,
		Lines:        newMovementLines(normalized),
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		for _, line := range normalized {
			entry, err := lockEntry(tx, branchID, currency, line.Denomination)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &models.InsufficientStockError{
					Denomination: line.Denomination,
					Requested:    line.Quantity,
					Available:    0,
				}
			}
			if err != nil {
				return err
			}
			if !entry.Reserve(line.Quantity) {
				return &models.InsufficientStockError{
					Denomination: line.Denomination,
					Requested:    line.Quantity,
					Available:    entry.Free(),
				}
			}
			if err := tx.Save(entry).Error; err != nil {
				return err
			}
		}
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, err
	}

	movementsTotal.WithLabelValues(string(models.MovementReservation)).Inc()
	return movement, nil
}

// ConfirmMovement descuenta definitivamente una reserva pendiente (el efectivo
// fue entregado). Sobre un movimiento ya terminal es un no-op idempotente:
// devuelve applied=false y ningún error, para que los reintentos del caller no
// necesiten conocer el estado previo exacto.
func (s *Service) ConfirmMovement(ctx context.Context, movementID uint) (*models.StockMovement, bool, error) {
	var movement models.StockMovement
	applied := false

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := lockMovement(tx, movementID, &movement); err != nil {
			return err
		}
		if movement.IsTerminal() {
			return nil
		}
		if movement.Type != models.MovementReservation {
			return &models.InvariantViolationError{
				Msg: fmt.Sprintf("movimiento %d de tipo %s no admite confirmación", movementID, movement.Type),
			}
		}
		for _, line := range movement.Lines {
			entry, err := lockEntry(tx, movement.BranchID, movement.CurrencyCode, line.Denomination)
			if err != nil {
				return err
			}
			if err := entry.Confirm(line.Quantity); err != nil {
				return err
			}
			if err := tx.Save(entry).Error; err != nil {
				return err
			}
		}
		now := time.Now()
		movement.Status = models.MovementConfirmed
		movement.ProcessedAt = &now
		applied = true
		return tx.Save(&movement).Error
	})
	if err != nil {
		return nil, false, err
	}

	if applied {
		movementsTotal.WithLabelValues(string(models.MovementConfirmed)).Inc()
	}
	return &movement, applied, nil
}

// CancelMovement libera una reserva pendiente. Idempotente sobre estados
// terminales, igual que ConfirmMovement.
func (s *Service) CancelMovement(ctx context.Context, movementID uint) (*models.StockMovement, bool, error) {
	var movement models.StockMovement
	applied := false

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := lockMovement(tx, movementID, &movement); err != nil {
			return err
		}
		if movement.IsTerminal() {
			return nil
		}
		if movement.Type != models.MovementReservation {
			return &models.InvariantViolationError{
				Msg: fmt.Sprintf("movimiento %d de tipo %s no admite cancelación", movementID, movement.Type),
			}
		}
		for _, line := range movement.Lines {
			entry, err := lockEntry(tx, movement.BranchID, movement.CurrencyCode, line.Denomination)
			if err != nil {
				return err
			}
			released := entry.Release(line.Quantity)
			if released < line.Quantity {
				// Recorte deliberado, no pérdida silenciosa: queda registrado.
				log.Printf("[WARN] liberación recortada en movimiento %d: denominación %d pedía %d, reservado %d",
					movementID, line.Denomination, line.Quantity, released)
			}
			if err := tx.Save(entry).Error; err != nil {
				return err
			}
		}
		now := time.Now()
		movement.Status = models.MovementCancelled
		movement.ProcessedAt = &now
		applied = true
		return tx.Save(&movement).Error
	})
	if err != nil {
		return nil, false, err
	}

	if applied {
		movementsTotal.WithLabelValues(string(models.MovementRelease)).Inc()
	}
	return &movement, applied, nil
}

// GetMovement carga un movimiento con sus líneas, sin lock (consultas y
// chequeos de acceso previos a confirmar/cancelar).
func (s *Service) GetMovement(ctx context.Context, movementID uint) (*models.StockMovement, error) {
	var movement models.StockMovement
	err := s.db.WithContext(ctx).
		Preload("Lines").
		First(&movement, "id = ?", movementID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMovementNotFound
	}
	if err != nil {
		return nil, err
	}
	return &movement, nil
}

func lockMovement(tx *gorm.DB, movementID uint, out *models.StockMovement) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", movementID).
		First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrMovementNotFound
	}
	if err != nil {
		return err
	}
	return tx.Where("movement_id = ?", movementID).
		Order("denomination ASC").
		Find(&out.Lines).Error
}

// AllocateForAmount calcula qué denominaciones cubren exactamente el monto con
// el stock libre actual. No muta nada: el caller que quiera actuar sobre el
// resultado debe seguir con Withdraw o Reserve explícitos usando el desglose.
// La foto de techos se toma bajo lock para que sea consistente.
func (s *Service) AllocateForAmount(ctx context.Context, branchID uint, currency string, target int64) ([]allocation.Line, error) {
	if target < 0 {
		return nil, &ValidationError{Msg: "el monto objetivo no puede ser negativo"}
	}

	var ceilings map[int64]int64
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		var entries []models.StockEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("branch_id = ? AND currency_code = ? AND available > 0", branchID, currency).
			Order("denomination ASC").
			Find(&entries).Error; err != nil {
			return err
		}
		ceilings = make(map[int64]int64, len(entries))
		for i := range entries {
			if free := entries[i].Free(); free > 0 {
				ceilings[entries[i].Denomination] = free
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	timer := time.Now()
	lines, err := allocation.ForAmount(target, ceilings)
	allocationDuration.Observe(time.Since(timer).Seconds())

	switch {
	case errors.Is(err, allocation.ErrInfeasible):
		allocationsTotal.WithLabelValues("infeasible").Inc()
	case err != nil:
		allocationsTotal.WithLabelValues("error").Inc()
	default:
		allocationsTotal.WithLabelValues("ok").Inc()
	}
	return lines, err
}

// GetStock lista el stock de una sucursal, por divisa y denominación
// descendente dentro de cada divisa.
func (s *Service) GetStock(ctx context.Context, branchID uint) ([]StockRow, error) {
	var entries []models.StockEntry
	err := s.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("currency_code ASC, denomination DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	rows := make([]StockRow, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		rows = append(rows, StockRow{
			CurrencyCode: e.CurrencyCode,
			Denomination: e.Denomination,
			Available:    e.Available,
			Reserved:     e.Reserved,
			Free:         e.Free(),
			Value:        e.Value(),
		})
	}
	return rows, nil
}

// AvailableDenominations: denominaciones con stock positivo de una divisa en
// una sucursal, descendente.
func (s *Service) AvailableDenominations(ctx context.Context, branchID uint, currency string) ([]StockRow, error) {
	var entries []models.StockEntry
	err := s.db.WithContext(ctx).
		Where("branch_id = ? AND currency_code = ? AND available > 0", branchID, currency).
		Order("denomination DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	rows := make([]StockRow, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		rows = append(rows, StockRow{
			CurrencyCode: e.CurrencyCode,
			Denomination: e.Denomination,
			Available:    e.Available,
			Reserved:     e.Reserved,
			Free:         e.Free(),
			Value:        e.Value(),
		})
	}
	return rows, nil
}

// CurrenciesWithStock: divisas con stock positivo en la sucursal (para poblar
// listas de selección aguas arriba).
func (s *Service) CurrenciesWithStock(ctx context.Context, branchID uint) ([]models.Currency, error) {
	var codes []string
	err := s.db.WithContext(ctx).
		Model(&models.StockEntry{}).
		Where("branch_id = ? AND available > 0", branchID).
		Distinct("currency_code").
		Pluck("currency_code", &codes).Error
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return []models.Currency{}, nil
	}

	var currencies []models.Currency
	err = s.db.WithContext(ctx).
		Where("code IN ?", codes).
		Order("code ASC").
		Find(&currencies).Error
	return currencies, err
}

// TotalsByCurrency: valor total disponible/reservado/libre por divisa en una
// sucursal (tableros).
func (s *Service) TotalsByCurrency(ctx context.Context, branchID uint) ([]Totals, error) {
	var entries []models.StockEntry
	err := s.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("currency_code ASC, denomination DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	totals := make([]Totals, 0)
	index := make(map[string]int)
	for i := range entries {
		e := &entries[i]
		idx, ok := index[e.CurrencyCode]
		if !ok {
			idx = len(totals)
			index[e.CurrencyCode] = idx
			totals = append(totals, Totals{CurrencyCode: e.CurrencyCode})
		}
		totals[idx].Available += e.Available * e.Denomination
		totals[idx].Reserved += e.Reserved * e.Denomination
		totals[idx].Free += e.Free() * e.Denomination
	}
	return totals, nil
}

// ListMovements: historial de movimientos de la sucursal, más recientes
// primero. El orden es consistente con la serialización de los locks.
func (s *Service) ListMovements(ctx context.Context, branchID uint, limit int) ([]models.StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var movements []models.StockMovement
	err := s.db.WithContext(ctx).
		Preload("Lines").
		Where("branch_id = ?", branchID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&movements).Error
	return movements, err
}
