package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// refineryPageSize bounds each GetAll scan page while the refinery walks the
// full vector store.
const refineryPageSize = 500

// SupersedeAction records one loser-to-winner demotion applied (or planned)
// by the refinery.
type SupersedeAction struct {
	WinnerID     string
	LoserID      string
	Namespace    elefante.Namespace
	CanonicalKey string
}

// RefineryReport summarizes a single Refine run, per spec.md §4.8.
type RefineryReport struct {
	GroupsScanned   int
	MemoriesScanned int
	Superseded      []SupersedeAction
	DriftFixed      []string // memory ids whose I2 (redundant implies archived+deprecated) was repaired
	Applied         bool
}

// Refine implements the deterministic refinery of spec.md §4.8: group
// memories by (namespace, canonical_key), pick one winner per group by a
// fixed ordering, and demote the rest to status=redundant with a SUPERSEDES
// edge back to the winner. When apply is false, Refine only reports what it
// would do; when true, it acquires the write lock and writes the changes.
func (o *Orchestrator) Refine(ctx context.Context, apply bool) (*RefineryReport, error) {
	start := time.Now()
	defer func() { o.metrics.RefineDuration.Record(ctx, time.Since(start).Seconds()) }()

	memories, err := o.scanAll(ctx)
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "refinery scan")
	}

	groups := groupByIdentity(memories)
	report := &RefineryReport{GroupsScanned: len(groups), MemoriesScanned: len(memories), Applied: apply}

	plan := func(ctx context.Context) error {
		if apply {
			for _, mem := range memories {
				if err := o.connectSignalHubs(ctx, mem); err != nil {
					return err
				}
			}
		}

		for key, group := range groups {
			if len(group) == 1 {
				mem := group[0]
				if mem.Status == elefante.StatusRedundant && (!mem.Archived || !mem.Deprecated) {
					report.DriftFixed = append(report.DriftFixed, mem.ID)
					if apply {
						archived, deprecated := true, true
						if err := o.vector.Update(ctx, mem.ID, elefante.MemoryPatch{Archived: &archived, Deprecated: &deprecated}); err != nil {
							return err
						}
					}
				}
				continue
			}

			sort.SliceStable(group, func(i, j int) bool { return rankBetter(group[i], group[j]) })
			winner := group[0]
			for _, loser := range group[1:] {
				report.Superseded = append(report.Superseded, SupersedeAction{
					WinnerID: winner.ID, LoserID: loser.ID,
					Namespace: key.namespace, CanonicalKey: key.canonicalKey,
				})
				o.metrics.SupersedeActions.Add(ctx, 1)
				if !apply {
					continue
				}
				status := elefante.StatusRedundant
				archived, deprecated := true, true
				relType := elefante.RelSupersedes
				winnerID := winner.ID
				if err := o.vector.Update(ctx, loser.ID, elefante.MemoryPatch{
					Status: &status, Archived: &archived, Deprecated: &deprecated,
					SupersededByID: &winnerID, RelationshipType: &relType,
				}); err != nil {
					return err
				}
				if err := o.graph.CreateRelationship(ctx, &elefante.Relationship{
					FromEntityID: loser.ID, ToEntityID: winner.ID, Type: elefante.RelSupersedes,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if !apply {
		if err := plan(ctx); err != nil {
			return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "refinery plan")
		}
		return report, nil
	}

	if err := o.withWriteLock(ctx, plan); err != nil {
		return nil, err
	}
	return report, nil
}

// scanAll pages through the entire vector store via GetAll.
func (o *Orchestrator) scanAll(ctx context.Context) ([]*elefante.Memory, error) {
	var all []*elefante.Memory
	offset := 0
	for {
		page, err := o.vector.GetAll(ctx, refineryPageSize, offset, elefante.MemoryFilter{})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < refineryPageSize {
			return all, nil
		}
		offset += refineryPageSize
	}
}

type identityKey struct {
	namespace    elefante.Namespace
	canonicalKey string
}

func groupByIdentity(memories []*elefante.Memory) map[identityKey][]*elefante.Memory {
	groups := make(map[identityKey][]*elefante.Memory)
	for _, m := range memories {
		k := identityKey{namespace: m.Namespace, canonicalKey: m.CanonicalKey}
		groups[k] = append(groups[k], m)
	}
	return groups
}

func processingRank(s elefante.ProcessingStatus) int {
	switch s {
	case elefante.ProcessingProcessed:
		return 3
	case elefante.ProcessingInProgress:
		return 2
	case elefante.ProcessingRaw:
		return 1
	case elefante.ProcessingFailed:
		return 0
	default:
		return 0
	}
}

// isActive implements spec.md §4.8's active tier: not archived, not
// deprecated, and not already superseded (status != redundant). A memory
// with the fresh StatusNew is active under this predicate, same as one
// explicitly marked StatusActive.
func isActive(m *elefante.Memory) bool {
	return !m.Archived && !m.Deprecated && m.Status != elefante.StatusRedundant
}

// rankBetter reports whether a should be preferred as the group winner over
// b, per spec.md §4.8's ordering: active tier first, then higher
// processing rank, then higher importance, then higher access_count, then
// newer created_at, then lexicographically greater id as a final tiebreak.
func rankBetter(a, b *elefante.Memory) bool {
	aActive := isActive(a)
	bActive := isActive(b)
	if aActive != bActive {
		return aActive
	}
	if pa, pb := processingRank(a.ProcessingStatus), processingRank(b.ProcessingStatus); pa != pb {
		return pa > pb
	}
	if a.Importance != b.Importance {
		return a.Importance > b.Importance
	}
	if a.AccessCount != b.AccessCount {
		return a.AccessCount > b.AccessCount
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
