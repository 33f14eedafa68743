package stock

import (
	"errors"
	"log"
	"strconv"

	"cambios-backend/internal/allocation"
	"cambios-backend/internal/auth"
	"cambios-backend/internal/denominations"
	"cambios-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type MovementRequest struct {
	BranchID    *uint   `json:"branch_id"` // opcional para operadores: sale del token
	Currency    string  `json:"divisa"`
	Lines       []Line  `json:"denominaciones"`
	ReferenceID *string `json:"referencia"`
	Reason      string  `json:"motivo"`
}

type AllocateRequest struct {
	BranchID *uint  `json:"branch_id"`
	Currency string `json:"divisa"`
	Amount   int64  `json:"monto"`
}

type MovementResponse struct {
	ID          uint    `json:"movimiento_id"`
	Type        string  `json:"tipo"`
	Status      string  `json:"estado"`
	Currency    string  `json:"divisa"`
	Lines       []Line  `json:"denominaciones"`
	TotalValue  int64   `json:"valor_total"`
	Summary     string  `json:"resumen"`
	ReferenceID *string `json:"referencia,omitempty"`
	CreatedAt   string  `json:"fecha_creacion"`
}

// mapError traduce la taxonomía de errores del servicio a códigos HTTP. Las
// violaciones de invariantes se loguean fuerte: son bugs, no condiciones
// transitorias.
func mapError(err error) error {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return fiber.NewError(fiber.StatusBadRequest, validation.Msg)
	}
	if errors.Is(err, models.ErrInvalidQuantity) {
		return fiber.NewError(fiber.StatusBadRequest, models.ErrInvalidQuantity.Error())
	}
	var insufficient *models.InsufficientStockError
	if errors.As(err, &insufficient) {
		return fiber.NewError(fiber.StatusConflict, insufficient.Error())
	}
	if errors.Is(err, ErrMovementNotFound) {
		return fiber.NewError(fiber.StatusNotFound, ErrMovementNotFound.Error())
	}
	if errors.Is(err, ErrContention) {
		return fiber.NewError(fiber.StatusServiceUnavailable, ErrContention.Error())
	}
	var violation *models.InvariantViolationError
	if errors.As(err, &violation) {
		log.Printf("[ERROR] violación de invariante: %v", violation)
		return fiber.NewError(fiber.StatusInternalServerError, "Inconsistencia interna de stock, operación abortada")
	}
	log.Println("[ERROR] operación de stock falló:", err)
	return fiber.NewError(fiber.StatusInternalServerError, "Error interno")
}

func movementResponse(m *models.StockMovement) MovementResponse {
	lines := make([]Line, 0, len(m.Lines))
	for i := range m.Lines {
		lines = append(lines, Line{Denomination: m.Lines[i].Denomination, Quantity: m.Lines[i].Quantity})
	}
	return MovementResponse{
		ID:          m.ID,
		Type:        string(m.Type),
		Status:      string(m.Status),
		Currency:    m.CurrencyCode,
		Lines:       lines,
		TotalValue:  m.TotalValue(),
		Summary:     m.DenominationSummary(),
		ReferenceID: m.ReferenceID,
		CreatedAt:   m.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// branchIDForRequest: los operadores quedan fijados a su sucursal del token;
// el super admin debe indicarla en el cuerpo.
func branchIDForRequest(c *fiber.Ctx, bodyBranchID *uint) (uint, error) {
	role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)
	if role == models.RoleBranchOperator {
		own, ok := c.Locals(auth.CtxBranchIDKey).(*uint)
		if !ok || own == nil {
			return 0, fiber.NewError(fiber.StatusForbidden, "El usuario no tiene sucursal asignada")
		}
		return *own, nil
	}

	if bodyBranchID == nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id es obligatorio")
	}
	return *bodyBranchID, nil
}

func branchIDParam(c *fiber.Ctx) (uint, error) {
	raw, err := strconv.ParseUint(c.Params("branchID"), 10, 32)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branchID inválido")
	}
	branchID := uint(raw)
	if err := auth.RequireBranchAccess(c, branchID); err != nil {
		return 0, err
	}
	return branchID, nil
}

// POST /api/stock/deposit
func DepositHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body MovementRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}
		if body.Currency == "" {
			return fiber.NewError(fiber.StatusBadRequest, "divisa es obligatoria")
		}
		branchID, err := branchIDForRequest(c, body.BranchID)
		if err != nil {
			return err
		}

		movement, err := svc.Deposit(c.Context(), branchID, body.Currency, body.Lines, body.ReferenceID, body.Reason)
		if err != nil {
			return mapError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(movementResponse(movement))
	}
}

// POST /api/stock/withdraw
func WithdrawHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body MovementRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}
		if body.Currency == "" {
			return fiber.NewError(fiber.StatusBadRequest, "divisa es obligatoria")
		}
		branchID, err := branchIDForRequest(c, body.BranchID)
		if err != nil {
			return err
		}

		movement, err := svc.Withdraw(c.Context(), branchID, body.Currency, body.Lines, body.ReferenceID, body.Reason)
		if err != nil {
			return mapError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(movementResponse(movement))
	}
}

// POST /api/stock/reserve
func ReserveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body MovementRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}
		if body.Currency == "" {
			return fiber.NewError(fiber.StatusBadRequest, "divisa es obligatoria")
		}
		branchID, err := branchIDForRequest(c, body.BranchID)
		if err != nil {
			return err
		}

		movement, err := svc.Reserve(c.Context(), branchID, body.Currency, body.Lines, body.ReferenceID, body.Reason)
		if err != nil {
			return mapError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(movementResponse(movement))
	}
}

// POST /api/stock/movements/:id/confirm
func ConfirmMovementHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id de movimiento inválido")
		}

		existing, err := svc.GetMovement(c.Context(), uint(id))
		if err != nil {
			return mapError(err)
		}
		if err := auth.RequireBranchAccess(c, existing.BranchID); err != nil {
			return err
		}

		movement, applied, err := svc.ConfirmMovement(c.Context(), uint(id))
		if err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{
			"movimiento": movementResponse(movement),
			"aplicado":   applied,
		})
	}
}

// POST /api/stock/movements/:id/cancel
func CancelMovementHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id de movimiento inválido")
		}

		existing, err := svc.GetMovement(c.Context(), uint(id))
		if err != nil {
			return mapError(err)
		}
		if err := auth.RequireBranchAccess(c, existing.BranchID); err != nil {
			return err
		}

		movement, applied, err := svc.CancelMovement(c.Context(), uint(id))
		if err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{
			"movimiento": movementResponse(movement),
			"aplicado":   applied,
		})
	}
}

// POST /api/stock/allocate
// Calcula el desglose sin mutar nada; la infactibilidad es un resultado normal
// que se devuelve como dato, no como error HTTP.
func AllocateHandler(svc *Service, catalog *denominations.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AllocateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}
		if body.Currency == "" {
			return fiber.NewError(fiber.StatusBadRequest, "divisa es obligatoria")
		}
		if body.Amount < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "el monto no puede ser negativo")
		}
		branchID, err := branchIDForRequest(c, body.BranchID)
		if err != nil {
			return err
		}

		// Chequeo barato contra el catálogo: si el monto no es formable ni con
		// stock infinito, no vale la pena mirar el stock real.
		if denoms, ok := catalog.For(body.Currency); ok {
			if !allocation.Reachable(body.Amount, denoms) {
				return c.JSON(fiber.Map{
					"factible": false,
					"detalle":  "el monto no es representable con las denominaciones de la divisa",
				})
			}
		}

		lines, err := svc.AllocateForAmount(c.Context(), branchID, body.Currency, body.Amount)
		if errors.Is(err, allocation.ErrInfeasible) {
			return c.JSON(fiber.Map{
				"factible": false,
				"detalle":  "el monto no puede cubrirse con el stock actual de la sucursal",
			})
		}
		if err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{
			"factible": true,
			"desglose": lines,
		})
	}
}

// GET /api/stock/:branchID
func GetStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := branchIDParam(c)
		if err != nil {
			return err
		}

		rows, err := svc.GetStock(c.Context(), branchID)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(rows)
	}
}

// GET /api/stock/:branchID/currencies
func CurrenciesWithStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := branchIDParam(c)
		if err != nil {
			return err
		}

		currencies, err := svc.CurrenciesWithStock(c.Context(), branchID)
		if err != nil {
			return mapError(err)
		}

		res := make([]fiber.Map, 0, len(currencies))
		for _, cur := range currencies {
			res = append(res, fiber.Map{
				"codigo":  cur.Code,
				"nombre":  cur.Name,
				"simbolo": cur.Symbol,
			})
		}
		return c.JSON(res)
	}
}

// GET /api/stock/:branchID/:currency/denominations
func AvailableDenominationsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := branchIDParam(c)
		if err != nil {
			return err
		}

		rows, err := svc.AvailableDenominations(c.Context(), branchID, c.Params("currency"))
		if err != nil {
			return mapError(err)
		}
		return c.JSON(rows)
	}
}

// GET /api/stock/:branchID/movements
func ListMovementsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := branchIDParam(c)
		if err != nil {
			return err
		}
		limit, _ := strconv.Atoi(c.Query("limit", "100"))

		movements, err := svc.ListMovements(c.Context(), branchID, limit)
		if err != nil {
			return mapError(err)
		}

		res := make([]MovementResponse, 0, len(movements))
		for i := range movements {
			res = append(res, movementResponse(&movements[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/denominations
// Catálogo de referencia: qué denominaciones existen por divisa.
func CatalogHandler(catalog *denominations.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := make([]fiber.Map, 0)
		for _, iso := range catalog.Currencies() {
			denoms, _ := catalog.For(iso)
			res = append(res, fiber.Map{
				"iso":            iso,
				"denominaciones": denoms,
			})
		}
		return c.JSON(res)
	}
}

// GET /api/denominations/:currency
func CatalogCurrencyHandler(catalog *denominations.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		denoms, ok := catalog.For(c.Params("currency"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "Divisa sin denominaciones catalogadas")
		}
		return c.JSON(denoms)
	}
}
