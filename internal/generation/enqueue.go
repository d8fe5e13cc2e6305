package generation

import (
	"context"
	"time"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/index"
	"github.com/odvcencio/roomhub/internal/models"
	"github.com/odvcencio/roomhub/internal/queue"
)

// longDeadline is spec.md §4.4's "long deadline (e.g. 6 hours)" for a
// generation job.
const longDeadline = 6 * time.Hour

// Pipeline wires the pre-flight checklist, manifest freeze, and queue
// submission spec.md §4.4 describes into one entry point.
type Pipeline struct {
	Queue *queue.Queue[Params, Result]
	Store RoomStore
}

// NewPipeline constructs a Pipeline.
func NewPipeline(q *queue.Queue[Params, Result], store RoomStore) *Pipeline {
	return &Pipeline{Queue: q, Store: store}
}

// Enqueue runs spec.md §4.4's pre-flight checklist and, if it passes,
// atomically freezes the manifest, persists it, enqueues the job, and
// inserts the Pending generation record — all inside one transaction.
func (p *Pipeline) Enqueue(ctx context.Context, room *models.Room, catalog *index.Catalog, metaFile string) (queue.JobID, error) {
	yamls, err := p.Store.ListRoomYAMLs(ctx, room.ID)
	if err != nil {
		return "", apperror.WrapInternal(err, "list room yamls")
	}
	existing, err := p.Store.GetGeneration(ctx, room.ID)
	if err != nil {
		return "", apperror.WrapInternal(err, "get generation record")
	}
	if err := CheckPreflight(room, yamls, existing, room.IsClosed(time.Now())); err != nil {
		return "", err
	}

	var jobID queue.JobID
	err = p.Store.WithTx(ctx, func(ctx context.Context) error {
		frozen, err := Freeze(ctx, p.Store, room, catalog)
		if err != nil {
			return err
		}
		room.Manifest = frozen

		apworlds := RequiredApworlds(yamls)
		id, err := p.Queue.Enqueue(ctx, Params{RoomID: room.ID, Apworlds: apworlds, MetaFile: metaFile}, queue.PriorityNormal, time.Now().Add(longDeadline))
		if err != nil {
			return err
		}
		if err := p.Store.InsertGeneration(ctx, room.ID, string(id)); err != nil {
			return apperror.WrapInternal(err, "insert generation record")
		}
		jobID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return jobID, nil
}

// Cancel implements spec.md §4.4's cancellation: remove the generation
// record and cancel the queue job. A worker already running discovers
// the cancellation on its next reclaim attempt.
func (p *Pipeline) Cancel(ctx context.Context, roomID int64, jobID queue.JobID) error {
	if _, err := p.Queue.Cancel(ctx, jobID); err != nil {
		return err
	}
	if err := p.Store.DeleteGeneration(ctx, roomID); err != nil {
		return apperror.WrapInternal(err, "delete generation record")
	}
	return nil
}
