package audit

import (
	"encoding/json"
	"fmt"

	"auditoria-backend/internal/database"
	"auditoria-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LogOptions struct {
	ActorID     uuid.UUID
	ActorName   string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	RoundNumber int
	Description string
	Payload     any
}

// WriteLog inserta una entrada de auditoría dentro de la transacción dada.
// Si tx es nil se usa la conexión global (entradas fuera de una reconciliación).
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	if tx == nil {
		tx = database.DB
	}

	// jsonb no admite cadena vacía; "null" es el JSON nulo válido.
	payloadStr := "null"
	if opts.Payload != nil {
		if b, err := json.Marshal(opts.Payload); err == nil {
			payloadStr = string(b)
		}
	}

	entry := models.AuditLog{
		ActorID:     opts.ActorID,
		ActorName:   opts.ActorName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		RoundNumber: opts.RoundNumber,
		Description: opts.Description,
		Payload:     payloadStr,
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("no se pudo registrar el audit log: %w", err)
	}

	return nil
}
