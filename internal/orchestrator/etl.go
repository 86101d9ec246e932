package orchestrator

import (
	"context"
	"time"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante/classifier"
)

// etlRetryCountKey stores the per-memory etl_classify failure count in
// CustomMetadata, since Memory has no first-class retry-count field.
const etlRetryCountKey = "etl_retry_count"

// validRings and validKnowledgeTypes gate etl_classify's input validation.
var validRings = map[elefante.Ring]bool{
	elefante.RingCore: true, elefante.RingDomain: true, elefante.RingTopic: true, elefante.RingLeaf: true,
}
var validKnowledgeTypes = map[elefante.KnowledgeType]bool{
	elefante.KnowledgeTypeLaw: true, elefante.KnowledgeTypePrinciple: true, elefante.KnowledgeTypeMethod: true,
	elefante.KnowledgeTypeDecision: true, elefante.KnowledgeTypeInsight: true,
	elefante.KnowledgeTypePreference: true, elefante.KnowledgeTypeFact: true,
}

// ETLTask is one unit of work handed to the classifying agent by
// etl_process: a raw memory plus the deterministic topology classifier's
// suggestion, which the agent may accept verbatim or override.
type ETLTask struct {
	MemoryID  string
	Content   string
	Title     string
	Suggested classifier.Topology
}

// ETLStatusReport counts memories in each processing_status bucket, per
// spec.md §4.9's etl_status.
type ETLStatusReport struct {
	Raw        int64
	Processing int64
	Processed  int64
	Failed     int64
}

// ETLProcess implements etl_process: claims up to limit raw memories by
// transitioning them to processing_status=processing and returns each with
// the deterministic classifier's topology suggestion for the agent to
// confirm or override via ETLClassify.
func (o *Orchestrator) ETLProcess(ctx context.Context, limit int) ([]ETLTask, error) {
	if limit <= 0 {
		limit = 10
	}

	var tasks []ETLTask
	err := o.withWriteLock(ctx, func(ctx context.Context) error {
		candidates, err := o.vector.GetAll(ctx, limit, 0, elefante.MemoryFilter{})
		if err != nil {
			return err
		}
		for _, mem := range candidates {
			if mem.ProcessingStatus != elefante.ProcessingRaw {
				continue
			}
			mem.ProcessingStatus = elefante.ProcessingInProgress
			if err := o.vector.Replace(ctx, mem); err != nil {
				return err
			}

			suggestion := classifier.ClassifyTopology(classifier.TopologyInput{
				Content:    mem.Content,
				Title:      mem.Title(),
				MemoryType: mem.MemoryType,
				Layer:      mem.Layer,
				Sublayer:   mem.Sublayer,
				Importance: mem.Importance,
				Tags:       mem.Tags,
			})
			tasks = append(tasks, ETLTask{MemoryID: mem.ID, Content: mem.Content, Title: mem.Title(), Suggested: suggestion})
			if len(tasks) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, elefante.Wrap(elefante.KindStoreUnavailable, err, "etl_process")
	}
	return tasks, nil
}

// ETLClassify implements etl_classify: validates the agent's proposed V5
// topology fields, patches the memory and marks it processed on success, or
// increments its retry counter and promotes it to processing_status=failed
// once ETLMaxRetries is exceeded (spec.md §4.9).
func (o *Orchestrator) ETLClassify(ctx context.Context, memoryID string, ring elefante.Ring, knowledgeType elefante.KnowledgeType, topic, summary, ownerID string) error {
	start := time.Now()
	defer func() { o.metrics.ETLClassifyDuration.Record(ctx, time.Since(start).Seconds()) }()

	if !validRings[ring] {
		return o.recordClassifyFailure(ctx, memoryID, elefante.NewError(elefante.KindInvalidInput, "invalid ring %q", ring))
	}
	if !validKnowledgeTypes[knowledgeType] {
		return o.recordClassifyFailure(ctx, memoryID, elefante.NewError(elefante.KindInvalidInput, "invalid knowledge_type %q", knowledgeType))
	}
	if topic == "" || summary == "" || ownerID == "" {
		return o.recordClassifyFailure(ctx, memoryID, elefante.NewError(elefante.KindInvalidInput, "topic, summary, and owner_id are required"))
	}

	return o.withWriteLock(ctx, func(ctx context.Context) error {
		existing, err := o.vector.Get(ctx, memoryID)
		if err != nil {
			return elefante.Wrap(elefante.KindStoreUnavailable, err, "etl_classify: fetch memory")
		}
		if existing == nil {
			return elefante.NewError(elefante.KindNotFound, "memory %s not found", memoryID)
		}

		md := cloneMetadata(existing.CustomMetadata)
		delete(md, etlRetryCountKey)

		existing.Ring = ring
		existing.KnowledgeType = knowledgeType
		existing.Topic = topic
		existing.Summary = summary
		existing.OwnerID = ownerID
		existing.ProcessingStatus = elefante.ProcessingProcessed
		existing.CustomMetadata = md

		if err := o.vector.Replace(ctx, existing); err != nil {
			return elefante.Wrap(elefante.KindStoreUnavailable, err, "etl_classify: persist classification")
		}
		return nil
	})
}

// recordClassifyFailure increments memoryID's retry counter and promotes it
// to processing_status=failed once ETLMaxRetries is exceeded, then returns
// the original validation error to the caller.
func (o *Orchestrator) recordClassifyFailure(ctx context.Context, memoryID string, validationErr error) error {
	lockErr := o.withWriteLock(ctx, func(ctx context.Context) error {
		existing, err := o.vector.Get(ctx, memoryID)
		if err != nil || existing == nil {
			return nil // surface the original validation error regardless
		}

		retries := int64(0)
		if v, ok := existing.CustomMetadata[etlRetryCountKey]; ok {
			retries = v.Int
		}
		retries++

		md := cloneMetadata(existing.CustomMetadata)
		md[etlRetryCountKey] = elefante.IntValue(retries)
		existing.CustomMetadata = md

		if retries > int64(o.cfg.ETLMaxRetries) {
			existing.ProcessingStatus = elefante.ProcessingFailed
		}
		return o.vector.Replace(ctx, existing)
	})
	if lockErr != nil {
		o.logger.Error("orchestrator: failed to record etl_classify retry", "memory_id", memoryID, "error", lockErr)
	}
	return validationErr
}

func cloneMetadata(src map[string]elefante.MetaValue) map[string]elefante.MetaValue {
	out := make(map[string]elefante.MetaValue, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	return out
}

// ETLStatus implements etl_status: counts memories by processing_status.
func (o *Orchestrator) ETLStatus(ctx context.Context) (ETLStatusReport, error) {
	var report ETLStatusReport
	offset := 0
	for {
		page, err := o.vector.GetAll(ctx, refineryPageSize, offset, elefante.MemoryFilter{})
		if err != nil {
			return report, elefante.Wrap(elefante.KindStoreUnavailable, err, "etl_status")
		}
		for _, mem := range page {
			switch mem.ProcessingStatus {
			case elefante.ProcessingRaw:
				report.Raw++
			case elefante.ProcessingInProgress:
				report.Processing++
			case elefante.ProcessingProcessed:
				report.Processed++
			case elefante.ProcessingFailed:
				report.Failed++
			}
		}
		if len(page) < refineryPageSize {
			return report, nil
		}
		offset += refineryPageSize
	}
}
