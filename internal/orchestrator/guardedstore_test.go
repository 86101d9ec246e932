package orchestrator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/orchestrator"
	"github.com/jsubiabreIBM/Elefante-sub000/internal/resilience"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// failingVectorStore always returns failErr from Stats, used to exercise
// GuardedVectorStore's circuit-breaker tripping behavior.
type failingVectorStore struct {
	*fakeVectorStore
	failErr error
}

func (f *failingVectorStore) Stats(_ context.Context) (elefante.VectorStats, error) {
	return elefante.VectorStats{}, f.failErr
}

func TestGuardedVectorStoreTripsBreakerAfterMaxFailures(t *testing.T) {
	inner := &failingVectorStore{fakeVectorStore: newFakeVectorStore(), failErr: errors.New("boom")}
	guarded := orchestrator.NewGuardedVectorStore(inner, resilience.CircuitBreakerConfig{MaxFailures: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := guarded.Stats(ctx); err == nil {
			t.Fatalf("call %d: expected the underlying failure to surface", i)
		}
	}

	_, err := guarded.Stats(ctx)
	if err == nil {
		t.Fatal("expected an error once the breaker trips")
	}
	var elefErr *elefante.Error
	if !errors.As(err, &elefErr) || elefErr.Kind != elefante.KindStoreUnavailable {
		t.Fatalf("expected KindStoreUnavailable once tripped, got %v", err)
	}
	if !elefErr.Retry {
		t.Error("expected a tripped breaker's error to be marked retryable")
	}
}

func TestGuardedVectorStorePassesThroughOnSuccess(t *testing.T) {
	inner := newFakeVectorStore()
	guarded := orchestrator.NewGuardedVectorStore(inner, resilience.CircuitBreakerConfig{})
	ctx := context.Background()

	mem := &elefante.Memory{ID: "m1", Content: "hello"}
	if err := guarded.Add(ctx, mem); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err := guarded.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Content != "hello" {
		t.Fatalf("expected the underlying store's memory to pass through, got %+v", got)
	}
}
