package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReferenceStatus string

const (
	StatusPending      ReferenceStatus = "pending"
	StatusAudited      ReferenceStatus = "audited"
	StatusConflict     ReferenceStatus = "conflict"
	StatusCritical     ReferenceStatus = "critical"
	StatusForcedClosed ReferenceStatus = "forced_closed"
)

type MaterialType string

const (
	MaterialTypeA MaterialType = "A"
	MaterialTypeB MaterialType = "B"
)

// Reference: fila maestra de inventario bajo auditoría física.
// CurrentRound solo avanza (1→5); nunca retrocede salvo edición manual directa en BD.
type Reference struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Code        string `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Description string `gorm:"size:255" json:"description"`

	MaterialType MaterialType `gorm:"size:1;not null;default:'A'" json:"material_type"`

	// Cantidad reportada por el ERP. Puede faltar (referencia sin dato fiable).
	ERPQuantity *decimal.Decimal `gorm:"type:decimal(20,4)" json:"erp_quantity"`

	Status       ReferenceStatus `gorm:"size:20;index;not null;default:'pending'" json:"status"`
	CurrentRound int             `gorm:"not null;default:1" json:"current_round"`

	Locations []Location `gorm:"foreignKey:ReferenceCode;references:Code" json:"locations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
