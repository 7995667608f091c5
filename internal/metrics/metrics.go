package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printgate_jobs_submitted_total",
		Help: "The total number of jobs admitted to the queue",
	})

	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printgate_jobs_completed_total",
		Help: "The total number of finished jobs by terminal status",
	}, []string{"status"})

	Heartbeats = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printgate_heartbeats_total",
		Help: "The total number of agent heartbeats received",
	})

	QueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "printgate_queue_length",
		Help: "Number of jobs currently waiting in the queue",
	})

	PrinterOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "printgate_printer_online",
		Help: "Whether the printer is currently considered online (1) or offline (0)",
	})
)
