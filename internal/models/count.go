package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Count: conteo físico de una ubicación en una ronda concreta.
// Índice único (location_id, round): recontar la misma ronda actualiza, no duplica.
type Count struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	LocationID uint            `gorm:"not null;uniqueIndex:idx_counts_location_round" json:"location_id"`
	Round      int             `gorm:"not null;uniqueIndex:idx_counts_location_round" json:"round"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	CountedBy  uuid.UUID       `gorm:"type:uuid" json:"counted_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
