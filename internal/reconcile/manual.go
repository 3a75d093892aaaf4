package reconcile

import (
	"context"
	"errors"
	"fmt"

	"auditoria-backend/internal/audit"
	"auditoria-backend/internal/database"
	"auditoria-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// distributeEvenly reparte una cantidad entre n ubicaciones a 4 decimales.
// La última ubicación absorbe el resto del truncado para que la suma de los
// repartos devuelva exactamente la cantidad de entrada.
func distributeEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	shares := make([]decimal.Decimal, n)
	if n == 0 {
		return shares
	}
	base := total.Div(decimal.NewFromInt(int64(n))).Truncate(4)
	assigned := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = base
		assigned = assigned.Add(base)
	}
	shares[n-1] = total.Sub(assigned)
	return shares
}

// ValidateManually: el administrador impone una cantidad final; se reparte a
// partes iguales entre las ubicaciones vivas y la referencia queda auditada.
func ValidateManually(ctx context.Context, code string, adminID uuid.UUID, quantity decimal.Decimal) (Outcome, error) {
	if quantity.IsNegative() {
		err := fmt.Errorf("%w: la cantidad no puede ser negativa", ErrValidation)
		return errorOutcome(err), err
	}

	release, err := acquireReferenceLock(ctx, code)
	if err != nil {
		return errorOutcome(err), err
	}
	defer release()

	snap, err := loadSnapshot(code)
	if err != nil {
		return errorOutcome(err), err
	}
	if snap.Status == models.StatusAudited || snap.Status == models.StatusForcedClosed {
		err := fmt.Errorf("%w: la referencia ya está cerrada", ErrValidation)
		return errorOutcome(err), err
	}

	live := liveLocationIDs(snap)
	if len(live) == 0 {
		err := fmt.Errorf("%w: la referencia no tiene ubicaciones vivas", ErrValidation)
		return errorOutcome(err), err
	}

	shares := distributeEvenly(quantity, len(live))
	freeze := make(map[uint]decimal.Decimal, len(live))
	for i, id := range live {
		freeze[id] = shares[i]
	}

	d := decision{
		Outcome:     Outcome{Success: true, Action: ActionClosed},
		mutate:      true,
		newStatus:   models.StatusAudited,
		freezeRound: snap.CurrentRound,
		freeze:      freeze,
		event: models.CountEvent{
			Round:       snap.CurrentRound,
			Action:      models.EventValidacionManual,
			Sum1:        &quantity,
			ERPQuantity: snap.ERPQuantity,
			Detail:      fmt.Sprintf("Validación manual: %s repartido entre %d ubicaciones", quantity.String(), len(live)),
		},
	}

	if err := applyDecision(code, snap, d, adminID); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrPersistence, err)
		return errorOutcome(wrapped), wrapped
	}
	return d.Outcome, nil
}

// ForceClose: cierre forzado administrativo con motivo libre. Estado terminal
// forced_closed, distinto de audited; no toca cantidades de ubicaciones.
func ForceClose(ctx context.Context, code string, adminID uuid.UUID, reason string) (Outcome, error) {
	if reason == "" {
		err := fmt.Errorf("%w: el motivo del cierre forzado es obligatorio", ErrValidation)
		return errorOutcome(err), err
	}

	release, err := acquireReferenceLock(ctx, code)
	if err != nil {
		return errorOutcome(err), err
	}
	defer release()

	snap, err := loadSnapshot(code)
	if err != nil {
		return errorOutcome(err), err
	}
	if snap.Status == models.StatusAudited || snap.Status == models.StatusForcedClosed {
		err := fmt.Errorf("%w: la referencia ya está cerrada", ErrValidation)
		return errorOutcome(err), err
	}

	d := decision{
		Outcome:   Outcome{Success: true, Action: ActionClosed},
		mutate:    true,
		newStatus: models.StatusForcedClosed,
		event: models.CountEvent{
			Round:       snap.CurrentRound,
			Action:      models.EventCierreForzado,
			ERPQuantity: snap.ERPQuantity,
			Detail:      reason,
		},
	}

	if err := applyDecision(code, snap, d, adminID); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrPersistence, err)
		return errorOutcome(wrapped), wrapped
	}
	return d.Outcome, nil
}

// ForceCloseCritical: cierre de ronda 5, exclusivo del superadmin. Admite una
// cantidad total (reparto a partes iguales) o cantidades por ubicación; nunca
// falla por sumas: es un override administrativo.
func ForceCloseCritical(ctx context.Context, code string, adminID uuid.UUID, total *decimal.Decimal, perLocation map[uint]decimal.Decimal) (Outcome, error) {
	release, err := acquireReferenceLock(ctx, code)
	if err != nil {
		return errorOutcome(err), err
	}
	defer release()

	snap, err := loadSnapshot(code)
	if err != nil {
		return errorOutcome(err), err
	}
	if snap.Status == models.StatusAudited || snap.Status == models.StatusForcedClosed {
		err := fmt.Errorf("%w: la referencia ya está cerrada", ErrValidation)
		return errorOutcome(err), err
	}
	if snap.CurrentRound != 5 {
		err := fmt.Errorf("%w: el cierre crítico solo aplica en la ronda 5", ErrValidation)
		return errorOutcome(err), err
	}

	live := liveLocationIDs(snap)
	if len(live) == 0 {
		err := fmt.Errorf("%w: la referencia no tiene ubicaciones vivas", ErrValidation)
		return errorOutcome(err), err
	}

	freeze := make(map[uint]decimal.Decimal, len(live))
	var sum decimal.Decimal
	switch {
	case len(perLocation) > 0:
		for _, id := range live {
			qty, ok := perLocation[id]
			if !ok {
				err := fmt.Errorf("%w: falta la cantidad de la ubicación %d", ErrValidation, id)
				return errorOutcome(err), err
			}
			if qty.IsNegative() {
				err := fmt.Errorf("%w: la cantidad de la ubicación %d no puede ser negativa", ErrValidation, id)
				return errorOutcome(err), err
			}
			freeze[id] = qty
			sum = sum.Add(qty)
		}
	case total != nil:
		if total.IsNegative() {
			err := fmt.Errorf("%w: la cantidad no puede ser negativa", ErrValidation)
			return errorOutcome(err), err
		}
		shares := distributeEvenly(*total, len(live))
		for i, id := range live {
			freeze[id] = shares[i]
		}
		sum = *total
	default:
		err := fmt.Errorf("%w: se requiere cantidad total o por ubicación", ErrValidation)
		return errorOutcome(err), err
	}

	d := decision{
		Outcome:     Outcome{Success: true, Action: ActionForcedCloseSuperadmin},
		mutate:      true,
		newStatus:   models.StatusAudited,
		freezeRound: 5,
		freeze:      freeze,
		event: models.CountEvent{
			Round:       5,
			Action:      models.EventForcedCloseSuperadmin,
			Sum1:        &sum,
			ERPQuantity: snap.ERPQuantity,
			Detail:      "Cierre forzado por superadmin en ronda crítica",
		},
	}

	if err := applyDecision(code, snap, d, adminID); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrPersistence, err)
		return errorOutcome(wrapped), wrapped
	}
	return d.Outcome, nil
}

// UpsertCount guarda el conteo físico de una (ubicación, ronda). Recontar la
// misma ronda actualiza la fila existente. No dispara reconciliación por sí
// mismo: eso lo decide la capa que llama.
func UpsertCount(ctx context.Context, code string, locationID uint, round int, quantity decimal.Decimal, actorID uuid.UUID, action models.AuditAction) error {
	if round < 1 || round > 5 {
		return fmt.Errorf("%w: la ronda debe estar entre 1 y 5", ErrValidation)
	}
	if quantity.IsNegative() {
		return fmt.Errorf("%w: la cantidad no puede ser negativa", ErrValidation)
	}

	var loc models.Location
	if err := database.DB.First(&loc, "id = ? AND reference_code = ?", locationID, code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: la ubicación no pertenece a la referencia", ErrValidation)
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if loc.Validated() {
		return fmt.Errorf("%w: la ubicación ya está validada y congelada", ErrValidation)
	}

	actorName := lookupActorName(actorID)

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		count := models.Count{
			LocationID: locationID,
			Round:      round,
			Quantity:   quantity,
			CountedBy:  actorID,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "location_id"}, {Name: "round"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "counted_by", "updated_at"}),
		}).Create(&count).Error
		if err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:     actorID,
			ActorName:   actorName,
			EntityType:  "count",
			EntityID:    code,
			Action:      action,
			RoundNumber: round,
			Description: fmt.Sprintf("Conteo ubicación %d ronda %d: %s", locationID, round, quantity.String()),
			Payload:     count,
		})
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func liveLocationIDs(snap *snapshot) []uint {
	ids := make([]uint, 0, len(snap.Locations))
	for i := range snap.Locations {
		if !snap.Locations[i].validated() {
			ids = append(ids, snap.Locations[i].ID)
		}
	}
	return ids
}
