package reconcile

import (
	"auditoria-backend/internal/models"

	"github.com/shopspring/decimal"
)

// state: máquina de estados explícita de la política de cinco rondas.
// C1/C2 en paralelo, C3/C4 secuenciales, C5 manual (crítica).
type state int

const (
	stateAudited state = iota
	stateForcedClosed
	stateAwaitingParallelCounts
	stateAwaitingSequentialCount
	stateCritical
)

func stateOf(snap *snapshot) state {
	switch snap.Status {
	case models.StatusAudited:
		return stateAudited
	case models.StatusForcedClosed:
		return stateForcedClosed
	}
	switch {
	case snap.CurrentRound <= 2:
		return stateAwaitingParallelCounts
	case snap.CurrentRound <= 4:
		return stateAwaitingSequentialCount
	default:
		return stateCritical
	}
}

// decision: qué devolver al llamador y qué escribir. mutate=false significa
// que la pasada no toca estado (waiting_for_counts, referencia ya cerrada,
// ronda crítica pendiente de superadmin).
type decision struct {
	Outcome Outcome

	mutate      bool
	newStatus   models.ReferenceStatus
	newRound    int // 0 = sin cambio
	freezeRound int
	freeze      map[uint]decimal.Decimal // id de ubicación → cantidad validada
	event       models.CountEvent        // sin seq/actor; los pone apply
}

// decide evalúa la política de la ronda actual sobre un snapshot. Puro: sin
// E/S, directamente testeable por estado.
func decide(snap *snapshot) decision {
	switch stateOf(snap) {
	case stateAudited, stateForcedClosed:
		// Guardia de idempotencia: una referencia cerrada no se reabre ni
		// vuelve a escribir historial.
		return decision{Outcome: Outcome{Success: true, Action: ActionClosed}}
	case stateAwaitingParallelCounts:
		return decideParallel(snap)
	case stateAwaitingSequentialCount:
		return decideSequential(snap)
	default:
		return decideCritical(snap)
	}
}

// decideParallel: rondas 1 y 2. Exige conteo en ambas rondas para cada
// ubicación viva a la que apliquen; cierra si alguna suma iguala al ERP o si
// ambas sumas físicas coinciden entre sí.
func decideParallel(snap *snapshot) decision {
	frozen := frozenContribution(snap)

	sum1, complete1 := roundSum(snap, 1)
	sum2, complete2 := roundSum(snap, 2)
	if !complete1 || !complete2 {
		return waiting()
	}
	sum1 = sum1.Add(frozen)
	sum2 = sum2.Add(frozen)

	erp := snap.ERPQuantity

	// El empate se resuelve en este orden: ERP primero, consistencia física
	// después. La ronda que casó es la que congela las cantidades.
	switch {
	case erp != nil && sum1.Equal(*erp):
		return closeParallel(snap, sum1, sum2, models.ReasonMatchesERP, 1)
	case erp != nil && sum2.Equal(*erp):
		return closeParallel(snap, sum1, sum2, models.ReasonMatchesERP, 2)
	case sum1.Equal(sum2):
		// Autoconsistencia física: dos conteos independientes coinciden, se
		// acepta como verdad aunque el ERP difiera o falte.
		return closeParallel(snap, sum1, sum2, models.ReasonPhysicalConsistency, 2)
	}

	newRound := 3
	return decision{
		Outcome:   Outcome{Success: true, Action: ActionNextRound, NewRound: newRound},
		mutate:    true,
		newStatus: models.StatusConflict,
		newRound:  newRound,
		event: models.CountEvent{
			Round:       snap.CurrentRound,
			Action:      models.EventNextRound,
			Sum1:        &sum1,
			Sum2:        &sum2,
			ERPQuantity: erp,
			NewRound:    &newRound,
		},
	}
}

// decideSequential: rondas 3 y 4. Solo cuenta la ronda actual; cierra
// únicamente si la suma iguala al ERP, si no avanza una ronda (4→5 escala
// a superadmin y marca la referencia como crítica).
func decideSequential(snap *snapshot) decision {
	round := snap.CurrentRound

	sum, complete := roundSum(snap, round)
	if !complete {
		return waiting()
	}
	sum = sum.Add(frozenContribution(snap))

	erp := snap.ERPQuantity

	if erp != nil && sum.Equal(*erp) {
		return decision{
			Outcome:     Outcome{Success: true, Action: ActionClosed, Reason: models.ReasonMatchesERP},
			mutate:      true,
			newStatus:   models.StatusAudited,
			freezeRound: round,
			freeze:      freezeValues(snap, round),
			event: models.CountEvent{
				Round:       round,
				Action:      models.EventClosed,
				Reason:      models.ReasonMatchesERP,
				Sum1:        &sum,
				ERPQuantity: erp,
			},
		}
	}

	newRound := round + 1
	if round == 4 {
		// Ronda 5 es el final del camino automático: solo el superadmin la
		// cierra, con cierre forzado manual.
		return decision{
			Outcome:   Outcome{Success: true, Action: ActionEscalateToSuperadmin, NewRound: newRound},
			mutate:    true,
			newStatus: models.StatusCritical,
			newRound:  newRound,
			event: models.CountEvent{
				Round:       round,
				Action:      models.EventEscalateToSuperadmin,
				Sum1:        &sum,
				ERPQuantity: erp,
				NewRound:    &newRound,
			},
		}
	}

	return decision{
		Outcome:   Outcome{Success: true, Action: ActionNextRound, NewRound: newRound},
		mutate:    true,
		newStatus: models.StatusConflict,
		newRound:  newRound,
		event: models.CountEvent{
			Round:       round,
			Action:      models.EventNextRound,
			Sum1:        &sum,
			ERPQuantity: erp,
			NewRound:    &newRound,
		},
	}
}

// decideCritical: ronda 5. No hay comparación automática de sumas; la pasada
// lo único que hace es recordar al llamador que falta el cierre del superadmin.
func decideCritical(snap *snapshot) decision {
	return decision{Outcome: Outcome{Success: true, Action: ActionEscalateToSuperadmin, NewRound: snap.CurrentRound}}
}

func waiting() decision {
	return decision{Outcome: Outcome{Success: true, Action: ActionWaitingForCounts}}
}

func closeParallel(snap *snapshot, sum1, sum2 decimal.Decimal, reason models.CloseReason, matchRound int) decision {
	return decision{
		Outcome:     Outcome{Success: true, Action: ActionClosed, Reason: reason},
		mutate:      true,
		newStatus:   models.StatusAudited,
		freezeRound: matchRound,
		freeze:      freezeValues(snap, matchRound),
		event: models.CountEvent{
			Round:       snap.CurrentRound,
			Action:      models.EventClosed,
			Reason:      reason,
			Sum1:        &sum1,
			Sum2:        &sum2,
			ERPQuantity: snap.ERPQuantity,
		},
	}
}

// roundSum suma los conteos de la ronda dada sobre las ubicaciones vivas a las
// que aplica. complete=false si a alguna le falta el conteo: dato parcial no
// muta estado nunca.
func roundSum(snap *snapshot, round int) (decimal.Decimal, bool) {
	sum := decimal.Zero
	for i := range snap.Locations {
		loc := &snap.Locations[i]
		if loc.validated() || !loc.appliesToRound(round) {
			continue
		}
		qty, ok := loc.Counts[round]
		if !ok {
			return decimal.Zero, false
		}
		sum = sum.Add(qty)
	}
	return sum, true
}

// frozenContribution: aporte de las ubicaciones ya validadas, que conservan su
// cantidad congelada y no exigen conteos nuevos.
func frozenContribution(snap *snapshot) decimal.Decimal {
	sum := decimal.Zero
	for i := range snap.Locations {
		loc := &snap.Locations[i]
		if loc.validated() && loc.ValidatedQuantity != nil {
			sum = sum.Add(*loc.ValidatedQuantity)
		}
	}
	return sum
}

// freezeValues: cantidad aceptada por ubicación viva al cerrar. Es el conteo
// de la ronda que casó; si la ubicación no participó en esa ronda (descubierta
// después), se toma su conteo más reciente y en último caso cero.
func freezeValues(snap *snapshot, matchRound int) map[uint]decimal.Decimal {
	values := make(map[uint]decimal.Decimal)
	for i := range snap.Locations {
		loc := &snap.Locations[i]
		if loc.validated() {
			continue
		}
		if qty, ok := loc.Counts[matchRound]; ok {
			values[loc.ID] = qty
			continue
		}
		latest := decimal.Zero
		latestRound := 0
		for r, qty := range loc.Counts {
			if r > latestRound {
				latestRound = r
				latest = qty
			}
		}
		values[loc.ID] = latest
	}
	return values
}
