package orchestrator

import (
	"context"

	"github.com/jsubiabreIBM/Elefante-sub000/internal/snapshot"
)

// RefreshSnapshot rebuilds and writes the dashboard snapshot under the write
// lock, implementing the refresh path of elefanteDashboardOpen (spec.md
// §6.2, §6.3). The snapshot writer itself holds no lock of its own — every
// caller goes through the orchestrator so a refresh never races a concurrent
// mutation.
func (o *Orchestrator) RefreshSnapshot(ctx context.Context, w *snapshot.Writer) (*snapshot.Document, error) {
	var doc *snapshot.Document
	err := o.withWriteLock(ctx, func(ctx context.Context) error {
		built, err := w.Refresh(ctx)
		if err != nil {
			return err
		}
		doc = built
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
