package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventAction string

const (
	EventClosed                EventAction = "closed"
	EventNextRound             EventAction = "next_round"
	EventEscalateToSuperadmin  EventAction = "escalate_to_superadmin"
	EventForcedCloseSuperadmin EventAction = "forced_close_superadmin"
	EventValidacionManual      EventAction = "validacion_manual"
	EventCierreForzado         EventAction = "cierre_forzado"
)

type CloseReason string

const (
	ReasonMatchesERP          CloseReason = "matches_erp"
	ReasonPhysicalConsistency CloseReason = "physical_consistency"
)

// CountEvent: historial de cierres de ronda de una referencia. Tabla append-only,
// ordenada por (reference_code, seq); nunca se actualiza ni se borra.
type CountEvent struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	ReferenceCode string `gorm:"size:64;not null;uniqueIndex:idx_count_events_ref_seq" json:"reference_code"`
	Seq           int    `gorm:"not null;uniqueIndex:idx_count_events_ref_seq" json:"seq"`

	Round  int         `gorm:"not null" json:"round"`
	Action EventAction `gorm:"size:30;not null" json:"action"`
	Reason CloseReason `gorm:"size:30" json:"reason,omitempty"`

	// Sumas comparadas al cerrar la ronda. Sum2 solo aplica a rondas paralelas.
	Sum1        *decimal.Decimal `gorm:"type:decimal(20,4)" json:"sum1"`
	Sum2        *decimal.Decimal `gorm:"type:decimal(20,4)" json:"sum2"`
	ERPQuantity *decimal.Decimal `gorm:"type:decimal(20,4)" json:"erp_quantity"`

	NewRound *int `json:"new_round,omitempty"`

	ActorID   uuid.UUID `gorm:"type:uuid" json:"actor_id"`
	ActorName string    `gorm:"size:100" json:"actor_name"`
	Detail    string    `gorm:"size:255" json:"detail"`

	CreatedAt time.Time `json:"created_at"`
}
