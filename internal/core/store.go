package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the authoritative map of job id to lifecycle state. It is purely
// in-memory: a restart loses all job records, which is accepted for this
// service. All transitions go through Mark* methods so the state machine
// cannot be bypassed.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create registers a freshly uploaded document as an UPLOADED job.
func (s *Store) Create(documentRef string, totalPages int) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		ID:          uuid.NewString(),
		DocumentRef: documentRef,
		TotalPages:  totalPages,
		Status:      JobStatusUploaded,
		CreatedAt:   s.now(),
	}
	s.jobs[job.ID] = job
	return *job
}

func (s *Store) Get(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrUnknownJob
	}
	return *job, nil
}

// StatusOf never errors: unrecognized ids report JobStatusUnknown so polling
// clients can treat the answer as terminal-looking instead of a fault.
func (s *Store) StatusOf(id string) JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return JobStatusUnknown
	}
	return job.Status
}

// MarkQueued records the admitted range, copies and sliced artifact and moves
// the job UPLOADED -> QUEUED.
func (s *Store) MarkQueued(id string, pageFrom, pageTo, copies int, artifactRef string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrUnknownJob
	}
	if job.Status != JobStatusUploaded {
		return Job{}, ErrInvalidTransition
	}

	now := s.now()
	job.PageFrom = pageFrom
	job.PageTo = pageTo
	job.Copies = copies
	job.ArtifactRef = artifactRef
	job.Status = JobStatusQueued
	job.QueuedAt = &now
	return *job, nil
}

// MarkPrinting moves QUEUED -> PRINTING when an agent leases the job. The
// caller must hold the job id freshly popped from the queue; a non-QUEUED job
// (e.g. cancelled while waiting) is reported via ErrInvalidTransition and the
// caller moves on to the next id.
func (s *Store) MarkPrinting(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrUnknownJob
	}
	if job.Status != JobStatusQueued {
		return Job{}, ErrInvalidTransition
	}

	now := s.now()
	job.Status = JobStatusPrinting
	job.LeasedAt = &now
	return *job, nil
}

// MarkDone moves PRINTING -> DONE and hands back the storage refs to purge.
// The refs are returned exactly once: a repeated completion report is a
// harmless no-op that returns no refs, so artifact deletion can never be
// attempted twice.
func (s *Store) MarkDone(id string) (refs []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrUnknownJob
	}
	if job.Status == JobStatusDone {
		return nil, nil
	}
	if job.Status != JobStatusPrinting {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	job.Status = JobStatusDone
	job.CompletedAt = &now

	if job.DocumentRef != "" {
		refs = append(refs, job.DocumentRef)
	}
	if job.ArtifactRef != "" && job.ArtifactRef != job.DocumentRef {
		refs = append(refs, job.ArtifactRef)
	}
	job.DocumentRef = ""
	job.ArtifactRef = ""
	return refs, nil
}

// MarkFailed moves any non-terminal job to FAILED. Storage refs are kept so
// an operator can reprint; the janitor reclaims them later.
func (s *Store) MarkFailed(id, reason string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrUnknownJob
	}
	if job.Status.Terminal() {
		return Job{}, ErrInvalidTransition
	}

	now := s.now()
	job.Status = JobStatusFailed
	job.FailReason = reason
	job.CompletedAt = &now
	return *job, nil
}

// List returns jobs matching status, or all jobs when status is empty, newest
// first is not guaranteed; callers sort if they care.
func (s *Store) List(status JobStatus) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if status != "" && job.Status != status {
			continue
		}
		jobs = append(jobs, *job)
	}
	return jobs
}

func (s *Store) CountByStatus() map[JobStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[JobStatus]int)
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts
}

// ExpiredLeases returns PRINTING jobs leased before the cutoff, moved back to
// QUEUED in the same critical section so a concurrent completion report
// cannot race the requeue. Used only when lease expiry is enabled.
func (s *Store) ExpiredLeases(cutoff time.Time) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []Job
	for _, job := range s.jobs {
		if job.Status != JobStatusPrinting || job.LeasedAt == nil {
			continue
		}
		if job.LeasedAt.After(cutoff) {
			continue
		}
		job.Status = JobStatusQueued
		job.LeasedAt = nil
		expired = append(expired, *job)
	}
	return expired
}

// PurgeTerminal drops DONE and FAILED records completed before the cutoff and
// returns any storage refs still held by the dropped jobs (FAILED keeps its
// artifacts until here).
func (s *Store) PurgeTerminal(cutoff time.Time) (purged int, refs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, job := range s.jobs {
		if !job.Status.Terminal() || job.CompletedAt == nil || job.CompletedAt.After(cutoff) {
			continue
		}
		if job.DocumentRef != "" {
			refs = append(refs, job.DocumentRef)
		}
		if job.ArtifactRef != "" && job.ArtifactRef != job.DocumentRef {
			refs = append(refs, job.ArtifactRef)
		}
		delete(s.jobs, id)
		purged++
	}
	return purged, refs
}
