package references

import (
	"auditoria-backend/internal/database"
	"auditoria-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateReferenceRequest struct {
	Code         string              `json:"code" validate:"required"`
	Description  string              `json:"description"`
	MaterialType models.MaterialType `json:"material_type"`
	ERPQuantity  *decimal.Decimal    `json:"erp_quantity"`
}

type CreateLocationRequest struct {
	Name string `json:"name" validate:"required"`
}

// POST /api/references — alta de una referencia ya parseada (el mapeo de
// columnas Excel ocurre fuera de este backend).
func CreateReferenceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateReferenceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de petición inválido")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "El código de referencia es obligatorio")
		}
		if body.ERPQuantity != nil && body.ERPQuantity.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "La cantidad ERP no puede ser negativa")
		}

		materialType := body.MaterialType
		if materialType == "" {
			materialType = models.MaterialTypeA
		}
		if materialType != models.MaterialTypeA && materialType != models.MaterialTypeB {
			return fiber.NewError(fiber.StatusBadRequest, "Tipo de material inválido: debe ser A o B")
		}

		ref := models.Reference{
			Code:         body.Code,
			Description:  body.Description,
			MaterialType: materialType,
			ERPQuantity:  body.ERPQuantity,
			Status:       models.StatusPending,
			CurrentRound: 1,
		}

		if err := database.DB.Create(&ref).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "No se pudo crear la referencia (¿código duplicado?)")
		}

		return c.Status(fiber.StatusCreated).JSON(ref)
	}
}

// POST /api/references/:code/locations — asigna una ubicación a la referencia.
// Si la auditoría ya pasó de la ronda 1, la ubicación queda marcada como
// descubierta en la ronda actual y las rondas anteriores no le aplican.
func CreateLocationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateLocationRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de petición inválido")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre de la ubicación es obligatorio")
		}

		var ref models.Reference
		if err := database.DB.First(&ref, "code = ?", c.Params("code")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Referencia no encontrada")
		}
		if ref.Status == models.StatusAudited || ref.Status == models.StatusForcedClosed {
			return fiber.NewError(fiber.StatusBadRequest, "La referencia ya está cerrada")
		}

		loc := models.Location{
			ReferenceCode: ref.Code,
			Name:          body.Name,
		}
		if ref.CurrentRound > 1 {
			round := ref.CurrentRound
			loc.DiscoveredAtRound = &round
		}

		if err := database.DB.Create(&loc).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear la ubicación")
		}

		return c.Status(fiber.StatusCreated).JSON(loc)
	}
}

// GET /api/references?status=conflict
func ListReferencesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Reference{})

		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("status = ?", status)
		}
		if round := c.QueryInt("round"); round > 0 {
			dbq = dbq.Where("current_round = ?", round)
		}

		var refs []models.Reference
		if err := dbq.Order("code").Find(&refs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las referencias")
		}

		return c.JSON(refs)
	}
}

// GET /api/references/:code — referencia con sus ubicaciones y conteos.
func GetReferenceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var ref models.Reference
		err := database.DB.
			Preload("Locations").
			Preload("Locations.Counts").
			First(&ref, "code = ?", c.Params("code")).Error
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Referencia no encontrada")
		}

		return c.JSON(ref)
	}
}

// GET /api/references/:code/history — historial de cierres de ronda, en orden.
func HistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Params("code")

		var count int64
		database.DB.Model(&models.Reference{}).Where("code = ?", code).Count(&count)
		if count == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Referencia no encontrada")
		}

		var events []models.CountEvent
		if err := database.DB.Where("reference_code = ?", code).Order("seq").Find(&events).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo leer el historial")
		}

		return c.JSON(events)
	}
}
