package core

import "sync"

// Queue is the in-memory FIFO of QUEUED job ids. The store remains the source
// of truth for job status; the queue only orders pending work. Pop removes an
// id atomically, which is what makes a lease winner unique even under
// concurrent agent polls.
type Queue struct {
	mu      sync.Mutex
	ids     []string
	members map[string]struct{}
}

func NewQueue() *Queue {
	return &Queue{
		members: make(map[string]struct{}),
	}
}

// Push appends a job id. An id already present is rejected: a job appears in
// the queue at most once.
func (q *Queue) Push(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.members[id]; ok {
		return ErrDuplicateJob
	}
	q.ids = append(q.ids, id)
	q.members[id] = struct{}{}
	return nil
}

// Pop removes and returns the head id. The second return is false when the
// queue is empty, which is a normal condition, not an error.
func (q *Queue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ids) == 0 {
		return "", false
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	delete(q.members, id)
	return id, true
}

// Remove drops an id from anywhere in the queue (cancellation path).
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.members[id]; !ok {
		return false
	}
	for i, queued := range q.ids {
		if queued == id {
			q.ids = append(q.ids[:i], q.ids[i+1:]...)
			break
		}
	}
	delete(q.members, id)
	return true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}
