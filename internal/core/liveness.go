package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Tracker ingests agent heartbeats and derives the printer's availability.
// Staleness is evaluated lazily on read: if the agent has been silent longer
// than the threshold, Current reports OFFLINE no matter what the last
// heartbeat said. No background ticker is needed for correctness.
type Tracker struct {
	mu            sync.Mutex
	availability  Availability
	printerName   string
	lastHeartbeat time.Time
	threshold     time.Duration
	avgJobTime    time.Duration
	now           func() time.Time
}

func NewTracker(stalenessThreshold, avgJobTime time.Duration) *Tracker {
	return &Tracker{
		availability: AvailabilityOffline,
		threshold:    stalenessThreshold,
		avgJobTime:   avgJobTime,
		now:          time.Now,
	}
}

// Heartbeat records the agent's self-reported availability. The timestamp is
// taken from the server clock at processing time, never from the agent, so a
// delayed retry cannot resurrect stale state.
func (t *Tracker) Heartbeat(availability Availability, printerName string) PrinterState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.availability = availability
	t.printerName = printerName
	t.lastHeartbeat = t.now()

	log.Debug().
		Str("availability", string(availability)).
		Str("printer", printerName).
		Msg("heartbeat received")

	return PrinterState{
		Availability:    t.availability,
		PrinterName:     t.printerName,
		LastHeartbeatAt: t.lastHeartbeat,
	}
}

// Current returns the printer state with the staleness rule applied.
func (t *Tracker) Current() PrinterState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastHeartbeat.IsZero() || t.now().Sub(t.lastHeartbeat) > t.threshold {
		return PrinterState{
			Availability:    AvailabilityOffline,
			LastHeartbeatAt: t.lastHeartbeat,
		}
	}

	return PrinterState{
		Availability:    t.availability,
		PrinterName:     t.printerName,
		LastHeartbeatAt: t.lastHeartbeat,
	}
}

// ETASeconds estimates how long a newly queued job waits before printing.
// Purely advisory.
func (t *Tracker) ETASeconds(queueLen int) int {
	return queueLen * int(t.avgJobTime/time.Second)
}
