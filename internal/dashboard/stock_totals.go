package dashboard

import (
	"strconv"

	"cambios-backend/internal/auth"
	"cambios-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
)

// GET /api/dashboard/stock-totals/:branchID
// Valor total del efectivo por divisa en la sucursal, para tableros. Las
// decisiones de asignación nunca usan estos agregados.
func StockTotalsHandler(svc *stock.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := strconv.ParseUint(c.Params("branchID"), 10, 32)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "branchID inválido")
		}
		branchID := uint(raw)
		if err := auth.RequireBranchAccess(c, branchID); err != nil {
			return err
		}

		totals, err := svc.TotalsByCurrency(c.Context(), branchID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron calcular los totales")
		}
		return c.JSON(totals)
	}
}
