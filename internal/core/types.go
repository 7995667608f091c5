package core

import (
	"context"
	"errors"
	"time"
)

type JobStatus string

const (
	JobStatusUploaded JobStatus = "uploaded"
	JobStatusQueued   JobStatus = "queued"
	JobStatusPrinting JobStatus = "printing"
	JobStatusDone     JobStatus = "done"
	JobStatusFailed   JobStatus = "failed"
	// JobStatusUnknown is what StatusOf reports for ids the store has never
	// seen (or has already purged). Polling clients treat it as a valid
	// answer, not a fault.
	JobStatusUnknown JobStatus = "unknown"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

type Availability string

const (
	AvailabilityOffline Availability = "offline"
	AvailabilityIdle    Availability = "online_idle"
	AvailabilityBusy    Availability = "online_busy"
)

func ParseAvailability(s string) (Availability, bool) {
	switch Availability(s) {
	case AvailabilityOffline, AvailabilityIdle, AvailabilityBusy:
		return Availability(s), true
	}
	return "", false
}

// Job is one user request to print a page range of an uploaded document.
// DocumentRef points at the original upload, ArtifactRef at the sliced
// sub-document produced at admission time. Both are purged exactly once when
// the job reaches DONE.
type Job struct {
	ID          string     `json:"id"`
	DocumentRef string     `json:"document_ref"`
	ArtifactRef string     `json:"artifact_ref,omitempty"`
	TotalPages  int        `json:"total_pages"`
	PageFrom    int        `json:"page_from,omitempty"`
	PageTo      int        `json:"page_to,omitempty"`
	Copies      int        `json:"copies,omitempty"`
	Status      JobStatus  `json:"status"`
	FailReason  string     `json:"fail_reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	QueuedAt    *time.Time `json:"queued_at,omitempty"`
	LeasedAt    *time.Time `json:"leased_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PrinterState is the tracker's view of the single controlled printer after
// the staleness rule has been applied.
type PrinterState struct {
	Availability    Availability `json:"availability"`
	PrinterName     string       `json:"printer_name,omitempty"`
	LastHeartbeatAt time.Time    `json:"last_heartbeat_at,omitempty"`
}

var (
	ErrUnknownJob         = errors.New("unknown job")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrInvalidRange       = errors.New("page range out of bounds")
	ErrInvalidCopies      = errors.New("copies must be at least 1")
	ErrPrinterOffline     = errors.New("printer is offline")
	ErrPaymentNotVerified = errors.New("payment not verified")
	ErrDuplicateJob       = errors.New("job already queued")
	ErrArtifactMissing    = errors.New("job artifact no longer available")
)

// PaymentGateway is the payment collaborator: order creation and proof
// verification live outside this core.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountMinorUnits int64) (orderID string, err error)
	VerifyPayment(orderID, paymentID, signature string) error
}

// BlobStore persists raw document bytes by opaque ref. Delete is idempotent.
type BlobStore interface {
	Save(ctx context.Context, data []byte) (string, error)
	Read(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// DocumentSlicer validates documents and extracts 1-indexed inclusive page
// ranges.
type DocumentSlicer interface {
	PageCount(data []byte) (int, error)
	Slice(data []byte, pageFrom, pageTo int) ([]byte, error)
}

// Notifier receives job and printer lifecycle events. Implementations must
// not block the caller.
type Notifier interface {
	JobEvent(event string, job Job)
	PrinterEvent(oldState, newState PrinterState)
}

// NopNotifier is used where no webhook sender is configured.
type NopNotifier struct{}

func (NopNotifier) JobEvent(string, Job) {}

func (NopNotifier) PrinterEvent(PrinterState, PrinterState) {}
