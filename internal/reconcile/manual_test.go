package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDistributeEvenlySplit(t *testing.T) {
	// Escenario F: 80 entre 2 ubicaciones → 40 y 40.
	shares := distributeEvenly(dec(t, "80"), 2)
	if len(shares) != 2 {
		t.Fatalf("esperaba 2 repartos, obtuve %d", len(shares))
	}
	if !shares[0].Equal(dec(t, "40")) || !shares[1].Equal(dec(t, "40")) {
		t.Fatalf("repartos inesperados: %v", shares)
	}
}

func TestDistributeEvenlyRemainderPreservesTotal(t *testing.T) {
	cases := []struct {
		total string
		n     int
	}{
		{"100", 3},
		{"0.0001", 3},
		{"99.99", 7},
		{"0", 4},
		{"123.4567", 1},
	}

	for _, tc := range cases {
		total := dec(t, tc.total)
		shares := distributeEvenly(total, tc.n)

		sum := decimal.Zero
		for _, s := range shares {
			sum = sum.Add(s)
		}
		if !sum.Equal(total) {
			t.Fatalf("repartir %s entre %d no conserva el total: suma %s", tc.total, tc.n, sum)
		}
		// La última ubicación absorbe el resto; el resto de repartos son iguales.
		for i := 0; i < tc.n-1; i++ {
			if !shares[i].Equal(shares[0]) {
				t.Fatalf("repartos base desiguales para %s/%d: %v", tc.total, tc.n, shares)
			}
		}
	}
}

func TestDistributeEvenlyZeroLocations(t *testing.T) {
	shares := distributeEvenly(dec(t, "50"), 0)
	if len(shares) != 0 {
		t.Fatalf("esperaba reparto vacío, obtuve %v", shares)
	}
}
