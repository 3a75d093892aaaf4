package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location: ubicación física donde debe contarse el stock de una referencia.
type Location struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	ReferenceCode string `gorm:"size:64;index;not null" json:"reference_code"`
	Name          string `gorm:"size:100;not null" json:"name"`

	// Ronda en la que se descubrió la ubicación. Nulo = existe desde la ronda 1.
	// Las rondas anteriores a DiscoveredAtRound no aplican a esta ubicación.
	DiscoveredAtRound *int `json:"discovered_at_round"`

	// Una vez validada, la ubicación queda congelada: su aporte al total es
	// ValidatedQuantity y deja de exigir conteos en rondas posteriores.
	ValidatedAtRound  *int             `gorm:"index" json:"validated_at_round"`
	ValidatedQuantity *decimal.Decimal `gorm:"type:decimal(20,4)" json:"validated_quantity"`

	Counts []Count `gorm:"foreignKey:LocationID" json:"counts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validated reporta si la ubicación ya quedó congelada.
func (l *Location) Validated() bool {
	return l.ValidatedAtRound != nil
}

// AppliesToRound: una ubicación descubierta en la ronda k no participa en rondas < k.
func (l *Location) AppliesToRound(round int) bool {
	return l.DiscoveredAtRound == nil || *l.DiscoveredAtRound <= round
}
