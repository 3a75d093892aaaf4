package references

import (
	"context"
	"errors"

	"auditoria-backend/internal/auth"
	"auditoria-backend/internal/config"
	"auditoria-backend/internal/models"
	"auditoria-backend/internal/reconcile"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var validate = validator.New()

type SaveCountRequest struct {
	LocationID uint            `json:"location_id" validate:"required"`
	Round      int             `json:"round" validate:"required,min=1,max=5"`
	Quantity   decimal.Decimal `json:"quantity"`
}

type ValidateManualRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type ForceCloseRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type ForceCloseCriticalRequest struct {
	Quantity    *decimal.Decimal         `json:"quantity"`
	PerLocation map[uint]decimal.Decimal `json:"per_location"`
}

// mapEngineError traduce la taxonomía del motor a códigos HTTP. Los fallos de
// persistencia son 500 reintentables; el lock ocupado es 409.
func mapEngineError(err error) error {
	switch {
	case errors.Is(err, reconcile.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, reconcile.ErrBusy):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, reconcile.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// POST /api/references/:code/reconcile — disparo manual de la reconciliación.
func ReconcileHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		outcome, err := reconcile.Reconcile(c.Context(), c.Params("code"), adminID)
		if err != nil {
			return mapEngineError(err)
		}
		return c.JSON(outcome)
	}
}

// POST /api/references/:code/counts — transcripción de un conteo físico.
// Tras guardar, la reconciliación se dispara en segundo plano: su fallo no
// interrumpe el flujo de transcripción, solo queda en el log.
func SaveCountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		var body SaveCountRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de petición inválido")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		code := c.Params("code")
		if err := reconcile.UpsertCount(c.Context(), code, body.LocationID, body.Round, body.Quantity, actorID, models.AuditActionSaveCount); err != nil {
			return mapEngineError(err)
		}

		go reconcileInBackground(code, actorID)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Conteo guardado",
		})
	}
}

// PUT /api/references/:code/counts — el administrador reescribe un conteo.
// No dispara reconciliación: un guardado posterior vuelve a evaluar.
func EditCountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		var body SaveCountRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de petición inválido")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := reconcile.UpsertCount(c.Context(), c.Params("code"), body.LocationID, body.Round, body.Quantity, adminID, models.AuditActionEditCount); err != nil {
			return mapEngineError(err)
		}

		return c.JSON(fiber.Map{
			"message": "Conteo actualizado",
		})
	}
}

// POST /api/references/:code/validate-manual
func ValidateManualHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		var body ValidateManualRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de petición inválido")
		}

		outcome, err := reconcile.ValidateManually(c.Context(), c.Params("code"), adminID, body.Quantity)
		if err != nil {
			return mapEngineError(err)
		}
		return c.JSON(outcome)
	}
}

// POST /api/references/:code/force-close
func ForceCloseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		var body ForceCloseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de petición inválido")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "El motivo del cierre forzado es obligatorio")
		}

		outcome, err := reconcile.ForceClose(c.Context(), c.Params("code"), adminID, body.Reason)
		if err != nil {
			return mapEngineError(err)
		}
		return c.JSON(outcome)
	}
}

// POST /api/references/:code/force-close-critical — solo superadmin, ronda 5.
func ForceCloseCriticalHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		var body ForceCloseCriticalRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de petición inválido")
		}

		outcome, err := reconcile.ForceCloseCritical(c.Context(), c.Params("code"), adminID, body.Quantity, body.PerLocation)
		if err != nil {
			return mapEngineError(err)
		}
		return c.JSON(outcome)
	}
}

// reconcileInBackground: disparo automático tras guardar un conteo. Silencioso
// hacia el usuario; el resultado solo se registra en el log estructurado.
func reconcileInBackground(code string, actorID uuid.UUID) {
	logger := config.GetLogger()

	outcome, err := reconcile.Reconcile(context.Background(), code, actorID)
	if err != nil {
		if errors.Is(err, reconcile.ErrBusy) {
			// Otro disparo lleva el lock; el siguiente guardado reintentará.
			logger.WithField("reference", code).Debug("reconciliación omitida: lock ocupado")
			return
		}
		logger.WithFields(logrus.Fields{
			"reference": code,
			"actor_id":  actorID,
		}).Error("reconciliación automática fallida: " + err.Error())
		return
	}

	logger.WithFields(logrus.Fields{
		"reference": code,
		"action":    outcome.Action,
		"reason":    outcome.Reason,
		"new_round": outcome.NewRound,
	}).Info("reconciliación automática completada")
}
