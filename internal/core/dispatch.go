package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/printgate/printgate/internal/metrics"
)

// Dispatcher is the agent-facing side of the core: it hands out leases,
// serves sliced artifacts and applies completion reports.
type Dispatcher struct {
	store    *Store
	queue    *Queue
	blobs    BlobStore
	notifier Notifier
}

func NewDispatcher(store *Store, queue *Queue, blobs BlobStore, notifier Notifier) *Dispatcher {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Dispatcher{
		store:    store,
		queue:    queue,
		blobs:    blobs,
		notifier: notifier,
	}
}

// Lease pops the head job and moves it to PRINTING. The pop is the single
// atomic step that decides the winner, so two concurrent polls can never
// lease the same job. Ids whose job is no longer QUEUED (cancelled while
// waiting) are skipped. An empty queue returns ok=false, which is the normal
// "no work, poll again later" answer.
func (d *Dispatcher) Lease() (Job, bool, error) {
	for {
		id, popped := d.queue.Pop()
		if !popped {
			return Job{}, false, nil
		}

		job, err := d.store.MarkPrinting(id)
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrUnknownJob) {
			log.Debug().Str("job_id", id).Msg("skipping stale queue entry")
			continue
		}
		if err != nil {
			return Job{}, false, err
		}

		metrics.QueueLength.Set(float64(d.queue.Len()))
		d.notifier.JobEvent(EventJobPrinting, job)

		log.Info().Str("job_id", job.ID).Msg("job leased")
		return job, true, nil
	}
}

// Artifact streams the persisted sliced document for a leased job.
func (d *Dispatcher) Artifact(ctx context.Context, jobID string) ([]byte, error) {
	job, err := d.store.Get(jobID)
	if err != nil {
		return nil, err
	}
	if job.ArtifactRef == "" {
		return nil, ErrArtifactMissing
	}

	data, err := d.blobs.Read(ctx, job.ArtifactRef)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// Complete applies the agent's completion report. Success purges the
// document and artifact exactly once (the store hands out the refs only on
// the first DONE transition, and blob deletion tolerates already-absent
// refs). A failed print moves the job to FAILED and keeps its artifacts for
// a possible reprint.
func (d *Dispatcher) Complete(ctx context.Context, jobID string, success bool, message string) error {
	if !success {
		if message == "" {
			message = "agent reported print failure"
		}
		job, err := d.store.MarkFailed(jobID, message)
		if err != nil {
			return err
		}

		metrics.JobsCompleted.WithLabelValues(string(JobStatusFailed)).Inc()
		d.notifier.JobEvent(EventJobFailed, job)

		log.Warn().Str("job_id", jobID).Str("reason", message).Msg("job failed")
		return nil
	}

	refs, err := d.store.MarkDone(jobID)
	if err != nil {
		return err
	}
	if refs == nil {
		// Repeated completion report; nothing left to purge.
		return nil
	}

	for _, ref := range refs {
		if err := d.blobs.Delete(ctx, ref); err != nil {
			log.Warn().Str("ref", ref).Err(err).Msg("failed to purge blob")
		}
	}

	job, _ := d.store.Get(jobID)
	metrics.JobsCompleted.WithLabelValues(string(JobStatusDone)).Inc()
	d.notifier.JobEvent(EventJobCompleted, job)

	log.Info().Str("job_id", jobID).Msg("job completed")
	return nil
}

// Reprint clones a terminal job into a fresh QUEUED job reusing the kept
// artifact. Terminal records themselves never leave their state.
func (d *Dispatcher) Reprint(ctx context.Context, jobID string) (Job, error) {
	job, err := d.store.Get(jobID)
	if err != nil {
		return Job{}, err
	}
	if !job.Status.Terminal() {
		return Job{}, ErrInvalidTransition
	}
	if job.ArtifactRef == "" || job.DocumentRef == "" {
		return Job{}, ErrArtifactMissing
	}

	document, err := d.blobs.Read(ctx, job.DocumentRef)
	if err != nil {
		return Job{}, fmt.Errorf("read document: %w", err)
	}
	docRef, err := d.blobs.Save(ctx, document)
	if err != nil {
		return Job{}, fmt.Errorf("copy document: %w", err)
	}

	artifact, err := d.blobs.Read(ctx, job.ArtifactRef)
	if err != nil {
		return Job{}, fmt.Errorf("read artifact: %w", err)
	}
	artRef, err := d.blobs.Save(ctx, artifact)
	if err != nil {
		return Job{}, fmt.Errorf("copy artifact: %w", err)
	}

	clone := d.store.Create(docRef, job.TotalPages)
	queued, err := d.store.MarkQueued(clone.ID, job.PageFrom, job.PageTo, job.Copies, artRef)
	if err != nil {
		return Job{}, err
	}
	if err := d.queue.Push(clone.ID); err != nil {
		return Job{}, err
	}

	metrics.JobsSubmitted.Inc()
	metrics.QueueLength.Set(float64(d.queue.Len()))
	d.notifier.JobEvent(EventJobQueued, queued)

	log.Info().Str("job_id", jobID).Str("new_job_id", clone.ID).Msg("job reprinted")
	return queued, nil
}

// Cancel removes a QUEUED job from the queue and marks it FAILED. Jobs
// already leased cannot be cancelled; the physical print is out of reach.
func (d *Dispatcher) Cancel(jobID, reason string) error {
	if _, err := d.store.Get(jobID); err != nil {
		return err
	}
	// Removing from the queue is the decider: if the agent's lease already
	// popped the id, the cancellation loses and the print goes ahead.
	if !d.queue.Remove(jobID) {
		return ErrInvalidTransition
	}

	failed, err := d.store.MarkFailed(jobID, reason)
	if err != nil {
		return err
	}

	metrics.QueueLength.Set(float64(d.queue.Len()))
	d.notifier.JobEvent(EventJobFailed, failed)

	log.Info().Str("job_id", jobID).Msg("job cancelled")
	return nil
}
