package models

import "testing"

func TestLocationAppliesToRound(t *testing.T) {
	base := Location{}
	if !base.AppliesToRound(1) || !base.AppliesToRound(5) {
		t.Fatal("una ubicación sin ronda de descubrimiento aplica a todas las rondas")
	}

	round := 3
	late := Location{DiscoveredAtRound: &round}
	if late.AppliesToRound(1) || late.AppliesToRound(2) {
		t.Fatal("las rondas anteriores al descubrimiento no deben aplicar")
	}
	if !late.AppliesToRound(3) || !late.AppliesToRound(4) {
		t.Fatal("la ronda de descubrimiento y las posteriores sí aplican")
	}
}

func TestLocationValidated(t *testing.T) {
	loc := Location{}
	if loc.Validated() {
		t.Fatal("sin validated_at_round la ubicación sigue viva")
	}
	round := 2
	loc.ValidatedAtRound = &round
	if !loc.Validated() {
		t.Fatal("con validated_at_round la ubicación queda congelada")
	}
}
