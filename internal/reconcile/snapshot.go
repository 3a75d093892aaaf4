package reconcile

import (
	"errors"
	"fmt"

	"auditoria-backend/internal/database"
	"auditoria-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// locationView: estado de una ubicación tal y como lo consume la lógica de
// decisión, con sus conteos indexados por ronda.
type locationView struct {
	ID                uint
	DiscoveredAtRound *int
	ValidatedAtRound  *int
	ValidatedQuantity *decimal.Decimal
	Counts            map[int]decimal.Decimal
}

func (lv *locationView) validated() bool {
	return lv.ValidatedAtRound != nil
}

func (lv *locationView) appliesToRound(round int) bool {
	return lv.DiscoveredAtRound == nil || *lv.DiscoveredAtRound <= round
}

// snapshot: lectura completa de una referencia para una pasada de decisión.
// La decisión es pura sobre esta estructura; toda la E/S queda fuera.
type snapshot struct {
	Code         string
	Status       models.ReferenceStatus
	CurrentRound int
	ERPQuantity  *decimal.Decimal
	Locations    []locationView
}

func loadSnapshot(code string) (*snapshot, error) {
	var ref models.Reference
	if err := database.DB.First(&ref, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	var locs []models.Location
	if err := database.DB.Where("reference_code = ?", code).Order("id").Find(&locs).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	locIDs := make([]uint, 0, len(locs))
	for _, l := range locs {
		locIDs = append(locIDs, l.ID)
	}

	var counts []models.Count
	if len(locIDs) > 0 {
		if err := database.DB.Where("location_id IN ?", locIDs).Find(&counts).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	byLocation := make(map[uint]map[int]decimal.Decimal, len(locs))
	for _, cnt := range counts {
		if byLocation[cnt.LocationID] == nil {
			byLocation[cnt.LocationID] = make(map[int]decimal.Decimal)
		}
		byLocation[cnt.LocationID][cnt.Round] = cnt.Quantity
	}

	snap := &snapshot{
		Code:         ref.Code,
		Status:       ref.Status,
		CurrentRound: ref.CurrentRound,
		ERPQuantity:  ref.ERPQuantity,
		Locations:    make([]locationView, 0, len(locs)),
	}
	for _, l := range locs {
		counts := byLocation[l.ID]
		if counts == nil {
			counts = map[int]decimal.Decimal{}
		}
		snap.Locations = append(snap.Locations, locationView{
			ID:                l.ID,
			DiscoveredAtRound: l.DiscoveredAtRound,
			ValidatedAtRound:  l.ValidatedAtRound,
			ValidatedQuantity: l.ValidatedQuantity,
			Counts:            counts,
		})
	}

	return snap, nil
}
