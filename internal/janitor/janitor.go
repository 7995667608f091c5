package janitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/printgate/printgate/internal/core"
)

// Janitor runs the periodic maintenance nobody should have to trigger by
// hand: requeueing expired leases (only when a lease timeout is configured)
// and purging aged-out terminal job records together with any storage blobs
// they still hold.
type Janitor struct {
	store        *core.Store
	queue        *core.Queue
	blobs        core.BlobStore
	leaseTimeout time.Duration
	retention    time.Duration
	cron         *cron.Cron
}

func New(store *core.Store, queue *core.Queue, blobs core.BlobStore, leaseTimeout, retention time.Duration) *Janitor {
	return &Janitor{
		store:        store,
		queue:        queue,
		blobs:        blobs,
		leaseTimeout: leaseTimeout,
		retention:    retention,
		cron:         cron.New(),
	}
}

func (j *Janitor) Start() error {
	if j.leaseTimeout > 0 {
		if _, err := j.cron.AddFunc("@every 30s", j.RequeueExpiredLeases); err != nil {
			return err
		}
	}
	if _, err := j.cron.AddFunc("@hourly", j.PurgeAgedJobs); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// RequeueExpiredLeases pushes PRINTING jobs whose agent went silent back to
// the queue. This trades possible duplicate physical output for not losing
// the job; it only runs when the operator opted in via lease_timeout.
func (j *Janitor) RequeueExpiredLeases() {
	cutoff := time.Now().Add(-j.leaseTimeout)
	for _, job := range j.store.ExpiredLeases(cutoff) {
		if err := j.queue.Push(job.ID); err != nil {
			log.Warn().Str("job_id", job.ID).Err(err).Msg("failed to requeue expired lease")
			continue
		}
		log.Warn().Str("job_id", job.ID).Msg("lease expired, job requeued")
	}
}

// PurgeAgedJobs drops terminal job records older than the retention window
// and deletes whatever blobs they still referenced (FAILED jobs keep their
// artifacts until this point).
func (j *Janitor) PurgeAgedJobs() {
	cutoff := time.Now().Add(-j.retention)
	purged, refs := j.store.PurgeTerminal(cutoff)
	if purged == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, ref := range refs {
		if err := j.blobs.Delete(ctx, ref); err != nil {
			log.Warn().Str("ref", ref).Err(err).Msg("failed to delete aged blob")
		}
	}

	log.Info().Int("purged", purged).Int("blobs", len(refs)).Msg("aged job records purged")
}
