package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/printgate/printgate/internal/config"
	"github.com/printgate/printgate/internal/core"
)

const (
	EventPrinterStatusChanged = "printer_status_changed"

	queueSize      = 100
	requestTimeout = 10 * time.Second
)

type payload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type jobEventData struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	PageFrom   int    `json:"page_from,omitempty"`
	PageTo     int    `json:"page_to,omitempty"`
	Copies     int    `json:"copies,omitempty"`
	FailReason string `json:"fail_reason,omitempty"`
}

type printerEventData struct {
	PrinterName     string `json:"printer_name,omitempty"`
	OldAvailability string `json:"old_availability"`
	NewAvailability string `json:"new_availability"`
}

type task struct {
	endpoint config.WebhookConfig
	payload  *payload
}

// Sender delivers job and printer events to config-listed endpoints. Payloads
// are HMAC-signed per endpoint. Enqueueing never blocks the caller; when the
// buffer is full the event is dropped with a warning.
type Sender struct {
	endpoints  []config.WebhookConfig
	httpClient *http.Client
	queue      chan *task
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func NewSender(endpoints []config.WebhookConfig) *Sender {
	return &Sender{
		endpoints: endpoints,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		queue:  make(chan *task, queueSize),
		stopCh: make(chan struct{}),
	}
}

func (s *Sender) Start() {
	s.wg.Add(1)
	go s.worker()
}

func (s *Sender) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Sender) JobEvent(event string, job core.Job) {
	s.dispatch(event, &jobEventData{
		JobID:      job.ID,
		Status:     string(job.Status),
		PageFrom:   job.PageFrom,
		PageTo:     job.PageTo,
		Copies:     job.Copies,
		FailReason: job.FailReason,
	})
}

func (s *Sender) PrinterEvent(oldState, newState core.PrinterState) {
	s.dispatch(EventPrinterStatusChanged, &printerEventData{
		PrinterName:     newState.PrinterName,
		OldAvailability: string(oldState.Availability),
		NewAvailability: string(newState.Availability),
	})
}

func (s *Sender) dispatch(event string, data interface{}) {
	p := &payload{
		Event:     event,
		Timestamp: time.Now(),
		Data:      data,
	}

	for _, endpoint := range s.endpoints {
		if !subscribed(endpoint, event) {
			continue
		}
		select {
		case s.queue <- &task{endpoint: endpoint, payload: p}:
		default:
			log.Warn().Str("webhook", endpoint.Name).Str("event", event).Msg("webhook queue full, dropping event")
		}
	}
}

func subscribed(endpoint config.WebhookConfig, event string) bool {
	if len(endpoint.Events) == 0 {
		return true
	}
	for _, e := range endpoint.Events {
		if e == event {
			return true
		}
	}
	return false
}

func (s *Sender) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case t := <-s.queue:
			s.send(t)
		}
	}
}

func (s *Sender) send(t *task) {
	body, err := json.Marshal(t.payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode webhook payload")
		return
	}

	req, err := http.NewRequest(http.MethodPost, t.endpoint.URL, bytes.NewReader(body))
	if err != nil {
		log.Error().Str("webhook", t.endpoint.Name).Err(err).Msg("failed to build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if t.endpoint.Secret != "" {
		req.Header.Set("X-Printgate-Signature", sign(body, t.endpoint.Secret))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Warn().Str("webhook", t.endpoint.Name).Err(err).Msg("webhook delivery failed")
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Warn().Str("webhook", t.endpoint.Name).Int("status", resp.StatusCode).Msg("webhook rejected")
	}
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
