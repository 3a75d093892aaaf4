package reconcile

import (
	"context"
	"fmt"

	"auditoria-backend/internal/audit"
	"auditoria-backend/internal/database"
	"auditoria-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reconcile: contrato del motor, `reconcile(reference_code, admin_id)`.
// Se invoca tras completarse los conteos de la ronda actual o por disparo
// manual. Toda la secuencia leer-comparar-escribir corre bajo el lock de la
// referencia y las escrituras dentro de una única transacción: o se aplica
// el resultado completo (referencia + ubicaciones + historial + audit log)
// o no se aplica nada.
func Reconcile(ctx context.Context, code string, adminID uuid.UUID) (Outcome, error) {
	release, err := acquireReferenceLock(ctx, code)
	if err != nil {
		return errorOutcome(err), err
	}
	defer release()

	snap, err := loadSnapshot(code)
	if err != nil {
		return errorOutcome(err), err
	}

	d := decide(snap)
	if !d.mutate {
		return d.Outcome, nil
	}

	if err := applyDecision(code, snap, d, adminID); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrPersistence, err)
		return errorOutcome(wrapped), wrapped
	}

	return d.Outcome, nil
}

// applyDecision materializa una decisión en una transacción.
func applyDecision(code string, snap *snapshot, d decision, actorID uuid.UUID) error {
	actorName := lookupActorName(actorID)

	return database.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": d.newStatus}
		if d.newRound > 0 {
			updates["current_round"] = d.newRound
		}
		if err := tx.Model(&models.Reference{}).Where("code = ?", code).Updates(updates).Error; err != nil {
			return err
		}

		for locID, qty := range d.freeze {
			err := tx.Model(&models.Location{}).Where("id = ?", locID).Updates(map[string]any{
				"validated_at_round": d.freezeRound,
				"validated_quantity": qty,
			}).Error
			if err != nil {
				return err
			}
		}

		event := d.event
		event.ReferenceCode = code
		event.ActorID = actorID
		event.ActorName = actorName
		event.Seq = nextEventSeq(tx, code)
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:     actorID,
			ActorName:   actorName,
			EntityType:  "reference",
			EntityID:    code,
			Action:      models.AuditActionReconcile,
			RoundNumber: snap.CurrentRound,
			Description: fmt.Sprintf("Reconciliación ronda %d: %s", snap.CurrentRound, d.Outcome.Action),
			Payload:     d.Outcome,
		})
	})
}

// nextEventSeq: siguiente número de secuencia del historial. El lock por
// referencia serializa los escritores; el índice único (reference_code, seq)
// cubre cualquier carrera residual haciendo fallar la transacción entera.
func nextEventSeq(tx *gorm.DB, code string) int {
	var maxSeq int
	tx.Model(&models.CountEvent{}).Where("reference_code = ?", code).
		Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq)
	return maxSeq + 1
}

func lookupActorName(actorID uuid.UUID) string {
	var user models.User
	if err := database.DB.First(&user, "id = ?", actorID).Error; err != nil {
		return "desconocido"
	}
	return user.Name
}
