package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/printgate/printgate/internal/metrics"
)

const (
	EventJobQueued    = "job_queued"
	EventJobPrinting  = "job_printing"
	EventJobCompleted = "job_completed"
	EventJobFailed    = "job_failed"
)

// Admission gates order creation and the UPLOADED -> QUEUED transition on
// printer liveness and payment verification. Checks run cheapest first:
// liveness, then payment, then page range (which touches the document).
type Admission struct {
	store    *Store
	queue    *Queue
	liveness *Tracker
	payments PaymentGateway
	blobs    BlobStore
	slicer   DocumentSlicer
	notifier Notifier

	mu       sync.Mutex
	verified map[string]struct{}
}

func NewAdmission(store *Store, queue *Queue, liveness *Tracker, payments PaymentGateway, blobs BlobStore, slicer DocumentSlicer, notifier Notifier) *Admission {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Admission{
		store:    store,
		queue:    queue,
		liveness: liveness,
		payments: payments,
		blobs:    blobs,
		slicer:   slicer,
		notifier: notifier,
		verified: make(map[string]struct{}),
	}
}

// CreateOrder asks the payment gateway for an order, but only when the
// printer is live: nobody gets charged for capacity that is known to be
// unavailable.
func (a *Admission) CreateOrder(ctx context.Context, amountMinorUnits int64) (string, error) {
	if amountMinorUnits <= 0 {
		return "", fmt.Errorf("order amount must be positive")
	}
	if a.liveness.Current().Availability == AvailabilityOffline {
		return "", ErrPrinterOffline
	}

	orderID, err := a.payments.CreateOrder(ctx, amountMinorUnits)
	if err != nil {
		return "", fmt.Errorf("payment gateway: %w", err)
	}

	log.Info().Str("order_id", orderID).Int64("amount", amountMinorUnits).Msg("payment order created")
	return orderID, nil
}

// ConfirmPayment verifies the signed proof and records the order id as
// verified. A verified order is not single-use; the set is cleared only by a
// restart.
func (a *Admission) ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) error {
	if err := a.payments.VerifyPayment(orderID, paymentID, signature); err != nil {
		log.Warn().Str("order_id", orderID).Err(err).Msg("payment verification failed")
		return err
	}

	a.mu.Lock()
	a.verified[orderID] = struct{}{}
	a.mu.Unlock()

	log.Info().Str("order_id", orderID).Msg("payment verified")
	return nil
}

func (a *Admission) isVerified(paymentRef string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.verified[paymentRef]
	return ok
}

// RequestPrint admits a job: liveness, then payment, then range. The page
// range is sliced and persisted here, before the enqueue, so a leased job
// always has a ready-to-send artifact. pageTo of 0 means "last page".
func (a *Admission) RequestPrint(ctx context.Context, jobID string, pageFrom, pageTo, copies int, paymentRef string) (Job, error) {
	if a.liveness.Current().Availability == AvailabilityOffline {
		return Job{}, ErrPrinterOffline
	}
	if !a.isVerified(paymentRef) {
		return Job{}, ErrPaymentNotVerified
	}

	job, err := a.store.Get(jobID)
	if err != nil {
		return Job{}, err
	}
	if job.Status != JobStatusUploaded {
		return Job{}, ErrInvalidTransition
	}

	if copies == 0 {
		copies = 1
	}
	if copies < 1 {
		return Job{}, ErrInvalidCopies
	}
	if pageTo == 0 {
		pageTo = job.TotalPages
	}
	if pageFrom < 1 || pageFrom > pageTo || pageTo > job.TotalPages {
		return Job{}, fmt.Errorf("%w: %d-%d of %d pages", ErrInvalidRange, pageFrom, pageTo, job.TotalPages)
	}

	document, err := a.blobs.Read(ctx, job.DocumentRef)
	if err != nil {
		return Job{}, fmt.Errorf("read document: %w", err)
	}

	sliced, err := a.slicer.Slice(document, pageFrom, pageTo)
	if err != nil {
		return Job{}, fmt.Errorf("slice document: %w", err)
	}

	artifactRef, err := a.blobs.Save(ctx, sliced)
	if err != nil {
		return Job{}, fmt.Errorf("persist artifact: %w", err)
	}

	queued, err := a.store.MarkQueued(jobID, pageFrom, pageTo, copies, artifactRef)
	if err != nil {
		// Undo the artifact so a lost admission race leaves no orphan bytes.
		if delErr := a.blobs.Delete(ctx, artifactRef); delErr != nil {
			log.Warn().Str("ref", artifactRef).Err(delErr).Msg("failed to delete orphaned artifact")
		}
		return Job{}, err
	}

	if err := a.queue.Push(jobID); err != nil {
		return Job{}, err
	}

	metrics.JobsSubmitted.Inc()
	metrics.QueueLength.Set(float64(a.queue.Len()))
	a.notifier.JobEvent(EventJobQueued, queued)

	log.Info().
		Str("job_id", jobID).
		Int("page_from", pageFrom).
		Int("page_to", pageTo).
		Int("copies", copies).
		Msg("job admitted")

	return queued, nil
}
