package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionReconcile      AuditAction = "reconcile"
	AuditActionValidateManual AuditAction = "validacion_manual"
	AuditActionForceClose     AuditAction = "cierre_forzado"
	AuditActionForceCloseSup  AuditAction = "forced_close_superadmin"
	AuditActionEditCount      AuditAction = "edit_count"
	AuditActionSaveCount      AuditAction = "save_count"
)

// AuditLog: rastro de cada resultado que muta estado. Append-only: el historial
// de una auditoría física no se reescribe nunca (sin undo).
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ActorID   uuid.UUID `gorm:"type:uuid;index" json:"actor_id"`
	ActorName string    `gorm:"size:100" json:"actor_name"` // denormalizado

	// Qué entidad: para el motor siempre es la referencia maestra.
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   string `gorm:"size:64;index" json:"entity_id"`

	Action      AuditAction `gorm:"size:30" json:"action"`
	RoundNumber int         `json:"round_number"`
	Description string      `gorm:"size:255" json:"description"`

	// Snapshot del payload del resultado (JSON).
	Payload string `gorm:"type:jsonb" json:"payload"`
}
