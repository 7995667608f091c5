package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type admissionFixture struct {
	store     *Store
	queue     *Queue
	liveness  *Tracker
	gateway   *fakeGateway
	blobs     *fakeBlobs
	slicer    *fakeSlicer
	admission *Admission
}

func newAdmissionFixture(t *testing.T) *admissionFixture {
	t.Helper()
	f := &admissionFixture{
		store:    NewStore(),
		queue:    NewQueue(),
		liveness: NewTracker(15*time.Second, 15*time.Second),
		gateway:  &fakeGateway{},
		blobs:    newFakeBlobs(),
		slicer:   &fakeSlicer{pages: 10},
	}
	f.admission = NewAdmission(f.store, f.queue, f.liveness, f.gateway, f.blobs, f.slicer, nil)
	return f
}

func (f *admissionFixture) online() {
	f.liveness.Heartbeat(AvailabilityIdle, "printer")
}

// uploadJob stores document bytes and registers the job, mirroring the
// upload endpoint.
func (f *admissionFixture) uploadJob(t *testing.T) Job {
	t.Helper()
	ref, err := f.blobs.Save(context.Background(), []byte("%PDF-fake"))
	require.NoError(t, err)
	return f.store.Create(ref, f.slicer.pages)
}

func (f *admissionFixture) verifiedRef(t *testing.T) string {
	t.Helper()
	require.NoError(t, f.admission.ConfirmPayment(context.Background(), "order_ok", "pay_1", "sig"))
	return "order_ok"
}

func TestCreateOrderRequiresLivePrinter(t *testing.T) {
	f := newAdmissionFixture(t)

	_, err := f.admission.CreateOrder(context.Background(), 2000)
	require.ErrorIs(t, err, ErrPrinterOffline)
	require.Zero(t, f.gateway.orders, "gateway must not be called for an offline printer")

	f.online()
	orderID, err := f.admission.CreateOrder(context.Background(), 2000)
	require.NoError(t, err)
	require.Equal(t, "order_1", orderID)
	require.Equal(t, int64(2000), f.gateway.lastAmount)
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	f := newAdmissionFixture(t)
	f.online()

	_, err := f.admission.CreateOrder(context.Background(), 0)
	require.Error(t, err)
	_, err = f.admission.CreateOrder(context.Background(), -100)
	require.Error(t, err)
}

func TestConfirmPaymentRecordsVerification(t *testing.T) {
	f := newAdmissionFixture(t)

	require.False(t, f.admission.isVerified("order_1"))
	require.NoError(t, f.admission.ConfirmPayment(context.Background(), "order_1", "pay_1", "sig"))
	require.True(t, f.admission.isVerified("order_1"))
}

func TestConfirmPaymentPropagatesFailure(t *testing.T) {
	f := newAdmissionFixture(t)
	f.gateway.verifyErr = errors.New("signature mismatch")

	err := f.admission.ConfirmPayment(context.Background(), "order_1", "pay_1", "bad")
	require.Error(t, err)
	require.False(t, f.admission.isVerified("order_1"))
}

func TestRequestPrintChecksLivenessFirst(t *testing.T) {
	f := newAdmissionFixture(t)
	f.online()
	job := f.uploadJob(t)
	ref := f.verifiedRef(t)

	// Let the heartbeat go stale: even with a valid payment and range the
	// offline check must win.
	f.liveness.now = func() time.Time { return time.Now().Add(time.Minute) }

	_, err := f.admission.RequestPrint(context.Background(), job.ID, 1, 10, 1, ref)
	require.ErrorIs(t, err, ErrPrinterOffline)
}

func TestRequestPrintRequiresVerifiedPayment(t *testing.T) {
	f := newAdmissionFixture(t)
	f.online()
	job := f.uploadJob(t)

	_, err := f.admission.RequestPrint(context.Background(), job.ID, 1, 10, 1, "order_never_seen")
	require.ErrorIs(t, err, ErrPaymentNotVerified)
	require.Equal(t, JobStatusUploaded, f.store.StatusOf(job.ID))
}

func TestRequestPrintValidatesRange(t *testing.T) {
	f := newAdmissionFixture(t)
	f.online()
	ref := f.verifiedRef(t)

	cases := []struct {
		name     string
		from, to int
	}{
		{"from below one", 0, 5},
		{"inverted", 5, 3},
		{"past the end", 1, 11},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := f.uploadJob(t)
			_, err := f.admission.RequestPrint(context.Background(), job.ID, tc.from, tc.to, 1, ref)
			require.ErrorIs(t, err, ErrInvalidRange)
			require.Equal(t, JobStatusUploaded, f.store.StatusOf(job.ID))
		})
	}
}

func TestRequestPrintResolvesOpenEndedRange(t *testing.T) {
	f := newAdmissionFixture(t)
	f.online()
	job := f.uploadJob(t)
	ref := f.verifiedRef(t)

	queued, err := f.admission.RequestPrint(context.Background(), job.ID, 1, 0, 0, ref)
	require.NoError(t, err)
	require.Equal(t, 1, queued.PageFrom)
	require.Equal(t, 10, queued.PageTo)
	require.Equal(t, 1, queued.Copies)
}

func TestRequestPrintHappyPath(t *testing.T) {
	f := newAdmissionFixture(t)
	f.online()
	job := f.uploadJob(t)
	ref := f.verifiedRef(t)

	queued, err := f.admission.RequestPrint(context.Background(), job.ID, 3, 5, 2, ref)
	require.NoError(t, err)
	require.Equal(t, JobStatusQueued, queued.Status)
	require.NotEmpty(t, queued.ArtifactRef)
	require.NotEqual(t, queued.DocumentRef, queued.ArtifactRef)
	require.Equal(t, 1, f.queue.Len())

	// The sliced artifact was persisted before the enqueue.
	artifact, err := f.blobs.Read(context.Background(), queued.ArtifactRef)
	require.NoError(t, err)
	require.Contains(t, string(artifact), "[3-5]")
}

func TestRequestPrintAbortsOnSliceFailure(t *testing.T) {
	f := newAdmissionFixture(t)
	f.online()
	job := f.uploadJob(t)
	ref := f.verifiedRef(t)
	f.slicer.sliceErr = errors.New("corrupt document")

	_, err := f.admission.RequestPrint(context.Background(), job.ID, 1, 10, 1, ref)
	require.Error(t, err)
	require.Equal(t, JobStatusUploaded, f.store.StatusOf(job.ID))
	require.Zero(t, f.queue.Len(), "a job with no artifact must never be enqueued")
}

func TestVerifiedPaymentIsReusable(t *testing.T) {
	f := newAdmissionFixture(t)
	f.online()
	ref := f.verifiedRef(t)

	first := f.uploadJob(t)
	second := f.uploadJob(t)

	_, err := f.admission.RequestPrint(context.Background(), first.ID, 1, 10, 1, ref)
	require.NoError(t, err)
	_, err = f.admission.RequestPrint(context.Background(), second.ID, 1, 10, 1, ref)
	require.NoError(t, err)
	require.Equal(t, 2, f.queue.Len())
}
