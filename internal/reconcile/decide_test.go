package reconcile

import (
	"testing"

	"auditoria-backend/internal/models"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal inválido %q: %v", s, err)
	}
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := dec(t, s)
	return &d
}

func testLoc(t *testing.T, id uint, counts map[int]string) locationView {
	t.Helper()
	parsed := make(map[int]decimal.Decimal, len(counts))
	for round, qty := range counts {
		parsed[round] = dec(t, qty)
	}
	return locationView{ID: id, Counts: parsed}
}

func frozenLoc(t *testing.T, id uint, round int, qty string) locationView {
	t.Helper()
	lv := testLoc(t, id, nil)
	lv.ValidatedAtRound = &round
	lv.ValidatedQuantity = decPtr(t, qty)
	return lv
}

func parallelSnap(t *testing.T, erp string, locs ...locationView) *snapshot {
	t.Helper()
	snap := &snapshot{
		Code:         "REF-001",
		Status:       models.StatusPending,
		CurrentRound: 1,
		Locations:    locs,
	}
	if erp != "" {
		snap.ERPQuantity = decPtr(t, erp)
	}
	return snap
}

func TestDecideParallelClosesOnERPMatch(t *testing.T) {
	// Escenario A: suma de la ronda 1 iguala al ERP.
	snap := parallelSnap(t, "100",
		testLoc(t, 1, map[int]string{1: "40", 2: "30"}),
		testLoc(t, 2, map[int]string{1: "60", 2: "60"}),
	)

	d := decide(snap)

	if !d.mutate || d.Outcome.Action != ActionClosed {
		t.Fatalf("esperaba cierre, obtuve %+v", d.Outcome)
	}
	if d.Outcome.Reason != models.ReasonMatchesERP {
		t.Fatalf("esperaba matches_erp, obtuve %s", d.Outcome.Reason)
	}
	if d.newStatus != models.StatusAudited {
		t.Fatalf("esperaba status audited, obtuve %s", d.newStatus)
	}
	// Congela los conteos de la ronda que casó (la 1).
	if d.freezeRound != 1 {
		t.Fatalf("esperaba freezeRound 1, obtuve %d", d.freezeRound)
	}
	if !d.freeze[1].Equal(dec(t, "40")) || !d.freeze[2].Equal(dec(t, "60")) {
		t.Fatalf("cantidades congeladas inesperadas: %v", d.freeze)
	}
}

func TestDecideParallelERPBeforePhysicalConsistency(t *testing.T) {
	// Desempate: con sum1 == erp y sum1 == sum2 a la vez, gana matches_erp.
	snap := parallelSnap(t, "100",
		testLoc(t, 1, map[int]string{1: "50", 2: "50"}),
		testLoc(t, 2, map[int]string{1: "50", 2: "50"}),
	)

	d := decide(snap)

	if d.Outcome.Action != ActionClosed || d.Outcome.Reason != models.ReasonMatchesERP {
		t.Fatalf("esperaba closed/matches_erp, obtuve %+v", d.Outcome)
	}
}

func TestDecideParallelClosesOnPhysicalConsistency(t *testing.T) {
	// Escenario B: ninguna suma iguala al ERP pero coinciden entre sí.
	snap := parallelSnap(t, "100",
		testLoc(t, 1, map[int]string{1: "30", 2: "45"}),
		testLoc(t, 2, map[int]string{1: "60", 2: "45"}),
	)

	d := decide(snap)

	if d.Outcome.Action != ActionClosed || d.Outcome.Reason != models.ReasonPhysicalConsistency {
		t.Fatalf("esperaba closed/physical_consistency, obtuve %+v", d.Outcome)
	}
	// La consistencia física congela el conteo más reciente (ronda 2).
	if d.freezeRound != 2 {
		t.Fatalf("esperaba freezeRound 2, obtuve %d", d.freezeRound)
	}
	if !d.freeze[1].Equal(dec(t, "45")) || !d.freeze[2].Equal(dec(t, "45")) {
		t.Fatalf("cantidades congeladas inesperadas: %v", d.freeze)
	}
}

func TestDecideParallelAdvancesWhenNothingMatches(t *testing.T) {
	// Escenario C: 90 vs 95 vs ERP 100 → ronda 3 en conflicto.
	snap := parallelSnap(t, "100",
		testLoc(t, 1, map[int]string{1: "30", 2: "50"}),
		testLoc(t, 2, map[int]string{1: "60", 2: "45"}),
	)

	d := decide(snap)

	if d.Outcome.Action != ActionNextRound || d.Outcome.NewRound != 3 {
		t.Fatalf("esperaba next_round→3, obtuve %+v", d.Outcome)
	}
	if d.newStatus != models.StatusConflict || d.newRound != 3 {
		t.Fatalf("esperaba conflict/ronda 3, obtuve %s/%d", d.newStatus, d.newRound)
	}
	if len(d.freeze) != 0 {
		t.Fatalf("avanzar de ronda no debe congelar ubicaciones: %v", d.freeze)
	}
	if d.event.Sum1 == nil || !d.event.Sum1.Equal(dec(t, "90")) {
		t.Fatalf("sum1 del evento inesperada: %v", d.event.Sum1)
	}
	if d.event.Sum2 == nil || !d.event.Sum2.Equal(dec(t, "95")) {
		t.Fatalf("sum2 del evento inesperada: %v", d.event.Sum2)
	}
}

func TestDecideParallelWaitsOnPartialCounts(t *testing.T) {
	// Dato parcial nunca muta estado: falta el conteo de la ronda 2 en una
	// ubicación.
	snap := parallelSnap(t, "100",
		testLoc(t, 1, map[int]string{1: "40", 2: "40"}),
		testLoc(t, 2, map[int]string{1: "60"}),
	)

	d := decide(snap)

	if d.Outcome.Action != ActionWaitingForCounts {
		t.Fatalf("esperaba waiting_for_counts, obtuve %+v", d.Outcome)
	}
	if d.mutate {
		t.Fatal("waiting_for_counts no debe escribir nada")
	}
}

func TestDecideParallelNilERPOnlyPhysicalConsistency(t *testing.T) {
	// Sin ERP, solo cierra la autoconsistencia física.
	matching := parallelSnap(t, "",
		testLoc(t, 1, map[int]string{1: "40", 2: "40"}),
		testLoc(t, 2, map[int]string{1: "60", 2: "60"}),
	)
	d := decide(matching)
	if d.Outcome.Action != ActionClosed || d.Outcome.Reason != models.ReasonPhysicalConsistency {
		t.Fatalf("esperaba closed/physical_consistency, obtuve %+v", d.Outcome)
	}

	diverging := parallelSnap(t, "",
		testLoc(t, 1, map[int]string{1: "40", 2: "41"}),
		testLoc(t, 2, map[int]string{1: "60", 2: "60"}),
	)
	d = decide(diverging)
	if d.Outcome.Action != ActionNextRound {
		t.Fatalf("sin ERP y sin consistencia esperaba next_round, obtuve %+v", d.Outcome)
	}
}

func TestDecideParallelIgnoresLateDiscoveredLocation(t *testing.T) {
	// Una ubicación descubierta en la ronda 3 no bloquea ni suma en las
	// rondas paralelas.
	late := testLoc(t, 3, nil)
	round := 3
	late.DiscoveredAtRound = &round

	snap := parallelSnap(t, "100",
		testLoc(t, 1, map[int]string{1: "40", 2: "30"}),
		testLoc(t, 2, map[int]string{1: "60", 2: "60"}),
		late,
	)

	d := decide(snap)

	if d.Outcome.Action != ActionClosed || d.Outcome.Reason != models.ReasonMatchesERP {
		t.Fatalf("esperaba closed/matches_erp, obtuve %+v", d.Outcome)
	}
}

func TestDecideSequentialClosesOnERPMatch(t *testing.T) {
	// Escenario D: ronda 3 con suma igual al ERP.
	snap := &snapshot{
		Code:         "REF-003",
		Status:       models.StatusConflict,
		CurrentRound: 3,
		ERPQuantity:  decPtr(t, "100"),
		Locations: []locationView{
			testLoc(t, 1, map[int]string{1: "30", 2: "45", 3: "40"}),
			testLoc(t, 2, map[int]string{1: "60", 2: "45", 3: "60"}),
		},
	}

	d := decide(snap)

	if d.Outcome.Action != ActionClosed || d.Outcome.Reason != models.ReasonMatchesERP {
		t.Fatalf("esperaba closed/matches_erp, obtuve %+v", d.Outcome)
	}
	if d.freezeRound != 3 {
		t.Fatalf("esperaba freezeRound 3, obtuve %d", d.freezeRound)
	}
	if !d.freeze[1].Equal(dec(t, "40")) || !d.freeze[2].Equal(dec(t, "60")) {
		t.Fatalf("cantidades congeladas inesperadas: %v", d.freeze)
	}
}

func TestDecideSequentialRound3Advances(t *testing.T) {
	snap := &snapshot{
		Status:       models.StatusConflict,
		CurrentRound: 3,
		ERPQuantity:  decPtr(t, "100"),
		Locations: []locationView{
			testLoc(t, 1, map[int]string{3: "40"}),
			testLoc(t, 2, map[int]string{3: "55"}),
		},
	}

	d := decide(snap)

	if d.Outcome.Action != ActionNextRound || d.Outcome.NewRound != 4 {
		t.Fatalf("esperaba next_round→4, obtuve %+v", d.Outcome)
	}
	if d.newStatus != models.StatusConflict {
		t.Fatalf("esperaba status conflict, obtuve %s", d.newStatus)
	}
}

func TestDecideSequentialRound4Escalates(t *testing.T) {
	// Escenario E: la ronda 4 falla → escalada a superadmin, ronda 5 crítica.
	snap := &snapshot{
		Status:       models.StatusConflict,
		CurrentRound: 4,
		ERPQuantity:  decPtr(t, "100"),
		Locations: []locationView{
			testLoc(t, 1, map[int]string{4: "40"}),
			testLoc(t, 2, map[int]string{4: "55"}),
		},
	}

	d := decide(snap)

	if d.Outcome.Action != ActionEscalateToSuperadmin || d.Outcome.NewRound != 5 {
		t.Fatalf("esperaba escalate_to_superadmin→5, obtuve %+v", d.Outcome)
	}
	if d.newStatus != models.StatusCritical || d.newRound != 5 {
		t.Fatalf("esperaba critical/ronda 5, obtuve %s/%d", d.newStatus, d.newRound)
	}
}

func TestDecideSequentialWaitsOnPartialCounts(t *testing.T) {
	snap := &snapshot{
		Status:       models.StatusConflict,
		CurrentRound: 3,
		ERPQuantity:  decPtr(t, "100"),
		Locations: []locationView{
			testLoc(t, 1, map[int]string{3: "40"}),
			testLoc(t, 2, map[int]string{1: "60", 2: "60"}), // sin conteo de ronda 3
		},
	}

	d := decide(snap)

	if d.Outcome.Action != ActionWaitingForCounts || d.mutate {
		t.Fatalf("esperaba waiting_for_counts sin escrituras, obtuve %+v mutate=%v", d.Outcome, d.mutate)
	}
}

func TestDecideSequentialAddsFrozenContribution(t *testing.T) {
	// Una ubicación validada aporta su cantidad congelada sin exigir conteo.
	snap := &snapshot{
		Status:       models.StatusConflict,
		CurrentRound: 3,
		ERPQuantity:  decPtr(t, "100"),
		Locations: []locationView{
			frozenLoc(t, 1, 2, "30"),
			testLoc(t, 2, map[int]string{3: "70"}),
		},
	}

	d := decide(snap)

	if d.Outcome.Action != ActionClosed {
		t.Fatalf("esperaba cierre con aporte congelado 30+70=100, obtuve %+v", d.Outcome)
	}
	if _, ok := d.freeze[1]; ok {
		t.Fatal("una ubicación ya validada no debe recongelarse")
	}
	if !d.freeze[2].Equal(dec(t, "70")) {
		t.Fatalf("cantidad congelada inesperada: %v", d.freeze)
	}
}

func TestDecideSequentialNilERPNeverCloses(t *testing.T) {
	snap := &snapshot{
		Status:       models.StatusConflict,
		CurrentRound: 3,
		Locations: []locationView{
			testLoc(t, 1, map[int]string{3: "50"}),
			testLoc(t, 2, map[int]string{3: "50"}),
		},
	}

	d := decide(snap)

	if d.Outcome.Action != ActionNextRound {
		t.Fatalf("sin ERP la ronda secuencial siempre avanza, obtuve %+v", d.Outcome)
	}
}

func TestDecideTerminalStatesAreNoOps(t *testing.T) {
	// Guardia de idempotencia: referencias cerradas no vuelven a escribir.
	for _, status := range []models.ReferenceStatus{models.StatusAudited, models.StatusForcedClosed} {
		snap := &snapshot{
			Status:       status,
			CurrentRound: 2,
			ERPQuantity:  decPtr(t, "100"),
			Locations: []locationView{
				testLoc(t, 1, map[int]string{1: "100", 2: "100"}),
			},
		}

		d := decide(snap)

		if d.mutate {
			t.Fatalf("status %s: reconciliar de nuevo no debe mutar estado", status)
		}
		if d.Outcome.Action != ActionClosed {
			t.Fatalf("status %s: esperaba closed, obtuve %+v", status, d.Outcome)
		}
	}
}

func TestDecideCriticalRoundWaitsForSuperadmin(t *testing.T) {
	// La ronda 5 no se decide por comparación automática de sumas.
	snap := &snapshot{
		Status:       models.StatusCritical,
		CurrentRound: 5,
		ERPQuantity:  decPtr(t, "100"),
		Locations: []locationView{
			testLoc(t, 1, map[int]string{5: "100"}),
		},
	}

	d := decide(snap)

	if d.mutate {
		t.Fatal("la ronda crítica no debe mutar estado en una pasada automática")
	}
	if d.Outcome.Action != ActionEscalateToSuperadmin {
		t.Fatalf("esperaba escalate_to_superadmin, obtuve %+v", d.Outcome)
	}
}

func TestDecideExactDecimalEquality(t *testing.T) {
	// La igualdad es exacta sin banda de tolerancia: 99.9999 != 100.
	snap := parallelSnap(t, "100",
		testLoc(t, 1, map[int]string{1: "49.9999", 2: "50"}),
		testLoc(t, 2, map[int]string{1: "50", 2: "50.0001"}),
	)

	d := decide(snap)

	if d.Outcome.Action != ActionNextRound {
		t.Fatalf("99.9999 no debe igualar a 100, obtuve %+v", d.Outcome)
	}

	exact := parallelSnap(t, "100.0000",
		testLoc(t, 1, map[int]string{1: "40.5", 2: "30"}),
		testLoc(t, 2, map[int]string{1: "59.5", 2: "60"}),
	)
	d = decide(exact)
	if d.Outcome.Action != ActionClosed || d.Outcome.Reason != models.ReasonMatchesERP {
		t.Fatalf("40.5+59.5 debe igualar a 100.0000, obtuve %+v", d.Outcome)
	}
}
