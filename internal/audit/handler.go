package audit

import (
	"auditoria-backend/internal/database"
	"auditoria-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	ActorID     uuid.UUID          `json:"actor_id"`
	ActorName   string             `json:"actor_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    string             `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	RoundNumber int                `json:"round_number"`
	Description string             `json:"description"`
}

// GET /api/audit-logs?entity_id=REF-001&action=reconcile&actor_id=<uuid>
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.AuditLog{})

		if entityID := c.Query("entity_id"); entityID != "" {
			dbq = dbq.Where("entity_id = ?", entityID)
		}
		if action := c.Query("action"); action != "" {
			dbq = dbq.Where("action = ?", action)
		}
		if actorStr := c.Query("actor_id"); actorStr != "" {
			actorID, err := uuid.Parse(actorStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "actor_id inválido")
			}
			dbq = dbq.Where("actor_id = ?", actorID)
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC").Limit(500).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los logs")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, entry := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          entry.ID,
				CreatedAt:   entry.CreatedAt.Format("2006-01-02 15:04:05"),
				ActorID:     entry.ActorID,
				ActorName:   entry.ActorName,
				EntityType:  entry.EntityType,
				EntityID:    entry.EntityID,
				Action:      entry.Action,
				RoundNumber: entry.RoundNumber,
				Description: entry.Description,
			})
		}

		return c.JSON(resp)
	}
}
