package admin

import (
	"strings"

	"cambios-backend/internal/database"
	"cambios-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CurrencyRequest struct {
	Code   string `json:"codigo"`
	Name   string `json:"nombre"`
	Symbol string `json:"simbolo"`
}

type UpdateCurrencyRequest struct {
	Name   *string                `json:"nombre"`
	Symbol *string                `json:"simbolo"`
	Status *models.CurrencyStatus `json:"estado"`
}

type CurrencyResponse struct {
	Code   string                `json:"codigo"`
	Name   string                `json:"nombre"`
	Symbol string                `json:"simbolo"`
	Status models.CurrencyStatus `json:"estado"`
}

func currencyResponse(cur *models.Currency) CurrencyResponse {
	return CurrencyResponse{
		Code:   cur.Code,
		Name:   cur.Name,
		Symbol: cur.Symbol,
		Status: cur.Status,
	}
}

func CreateCurrencyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CurrencyRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		body.Code = strings.ToUpper(strings.TrimSpace(body.Code))
		body.Name = strings.TrimSpace(body.Name)
		if len(body.Code) != 3 {
			return fiber.NewError(fiber.StatusBadRequest, "El código debe ser ISO 4217 de 3 letras")
		}
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre de la divisa no puede estar vacío")
		}

		var exists models.Currency
		if err := database.DB.First(&exists, "code = ?", body.Code).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Esa divisa ya existe")
		}

		currency := models.Currency{
			Code:   body.Code,
			Name:   body.Name,
			Symbol: body.Symbol,
			Status: models.CurrencyActive,
		}
		if err := database.DB.Create(&currency).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear la divisa")
		}
		return c.Status(fiber.StatusCreated).JSON(currencyResponse(&currency))
	}
}

func ListCurrenciesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var currencies []models.Currency
		if err := database.DB.Order("code ASC").Find(&currencies).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las divisas")
		}

		res := make([]CurrencyResponse, 0, len(currencies))
		for i := range currencies {
			res = append(res, currencyResponse(&currencies[i]))
		}
		return c.JSON(res)
	}
}

func UpdateCurrencyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := strings.ToUpper(c.Params("code"))

		var currency models.Currency
		if err := database.DB.First(&currency, "code = ?", code).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Divisa no encontrada")
		}

		var body UpdateCurrencyRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "El nombre de la divisa no puede estar vacío")
			}
			currency.Name = name
		}
		if body.Symbol != nil {
			currency.Symbol = *body.Symbol
		}
		if body.Status != nil {
			switch *body.Status {
			case models.CurrencyActive, models.CurrencyInactive:
				currency.Status = *body.Status
			default:
				return fiber.NewError(fiber.StatusBadRequest, "Estado inválido (activa|inactiva)")
			}
		}

		if err := database.DB.Save(&currency).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar la divisa")
		}
		return c.JSON(currencyResponse(&currency))
	}
}
