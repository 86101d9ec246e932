package sqvect

import (
	"testing"
	"time"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

func TestTemporalScoreCapsAccessBonusAndAgePenalty(t *testing.T) {
	now := time.Now().UTC()
	mem := &elefante.Memory{
		Importance:   10,
		AccessCount:  100000,
		LastAccessed: now.Add(-400 * 24 * time.Hour),
	}

	got := temporalScore(mem, now)
	// base=1.0, access_bonus capped at 0.2, age_penalty capped at 0.3.
	want := 1.0 + 0.2 - 0.3
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("temporalScore: got %v, want %v", got, want)
	}
}

func TestTemporalScoreFallsBackToCreatedAtWhenNeverAccessed(t *testing.T) {
	now := time.Now().UTC()
	mem := &elefante.Memory{
		Importance: 5,
		CreatedAt:  now.Add(-30 * 24 * time.Hour),
	}

	got := temporalScore(mem, now)
	wantBase := 0.5
	wantAgePenalty := 30.0 / 180.0
	want := wantBase - wantAgePenalty
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("temporalScore: got %v, want %v", got, want)
	}
}
