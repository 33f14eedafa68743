package admin

import (
	"strings"

	"cambios-backend/internal/database"
	"cambios-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type BranchResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}

type CreateBranchRequest struct {
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Phone    *string `json:"phone"` // opcional
}

type UpdateBranchRequest struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
	Phone    *string `json:"phone"`
}

type CreateOperatorRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func branchResponse(b *models.Branch) BranchResponse {
	return BranchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Location:  b.Location,
		Phone:     b.Phone,
		CreatedAt: b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ----------------------------------------
// CRUD de sucursales
// ----------------------------------------

func CreateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre de la sucursal no puede estar vacío")
		}

		branch := models.Branch{
			Name:     body.Name,
			Location: body.Location,
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := database.DB.Create(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear la sucursal")
		}

		return c.Status(fiber.StatusCreated).JSON(branchResponse(&branch))
	}
}

func ListBranchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := database.DB.Order("name ASC").Find(&branches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las sucursales")
		}

		res := make([]BranchResponse, 0, len(branches))
		for i := range branches {
			res = append(res, branchResponse(&branches[i]))
		}
		return c.JSON(res)
	}
}

func GetBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}
		return c.JSON(branchResponse(&branch))
	}
}

func UpdateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}

		var body UpdateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "El nombre de la sucursal no puede estar vacío")
			}
			branch.Name = name
		}
		if body.Location != nil {
			branch.Location = *body.Location
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := database.DB.Save(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar la sucursal")
		}
		return c.JSON(branchResponse(&branch))
	}
}

// ----------------------------------------
// Operadores de sucursal
// ----------------------------------------

func CreateOperatorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}

		var body CreateOperatorRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		body.Email = strings.ToLower(strings.TrimSpace(body.Email))
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nombre, email y contraseña son obligatorios")
		}

		var exists models.User
		if err := database.DB.Where("email = ?", body.Email).First(&exists).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Ese email ya está registrado")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo hashear la contraseña")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleBranchOperator,
			BranchID:     &branch.ID,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el operador")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":        user.ID,
			"name":      user.Name,
			"email":     user.Email,
			"role":      user.Role,
			"branch_id": user.BranchID,
		})
	}
}

func ListOperatorsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.
			Where("branch_id = ? AND role = ?", c.Params("id"), models.RoleBranchOperator).
			Order("created_at DESC").
			Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los operadores")
		}

		res := make([]fiber.Map, 0, len(users))
		for i := range users {
			u := &users[i]
			res = append(res, fiber.Map{
				"id":         u.ID,
				"name":       u.Name,
				"email":      u.Email,
				"role":       u.Role,
				"branch_id":  u.BranchID,
				"created_at": u.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(res)
	}
}
