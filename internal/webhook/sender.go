package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/orrn/printhost/internal/coordinator"
)

type Event string

const (
	EventPrintStarted   Event = "print_started"
	EventPrintCompleted Event = "print_completed"
	EventPrintFailed    Event = "print_failed"
)

type Payload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	Signature string      `json:"signature,omitempty"`
}

type PrintStartedData struct {
	DeviceName string    `json:"device_name"`
	SourceName string    `json:"source_name"`
	Timestamp  time.Time `json:"timestamp"`
}

type PrintResultData struct {
	JobID         string    `json:"job_id"`
	Cookie        int       `json:"cookie"`
	DeviceName    string    `json:"device_name"`
	SourceName    string    `json:"source_name"`
	ExpectedPages int       `json:"expected_pages"`
	RenderedPages int       `json:"rendered_pages"`
	Success       bool      `json:"success"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	FinishedAt    time.Time `json:"finished_at"`
}

type Endpoint struct {
	Name   string
	URL    string
	Secret string
	Events []string
}

type Config struct {
	Endpoints   []Endpoint
	RetryCount  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	WorkerCount int
	QueueSize   int
}

type task struct {
	endpoint Endpoint
	event    Event
	payload  *Payload
	attempt  int
}

// Sender fans job lifecycle events out to the configured HTTP endpoints,
// signing payloads with each endpoint's secret. Implements
// coordinator.Notifier.
type Sender struct {
	endpoints  []Endpoint
	httpClient *http.Client
	retryCount int
	retryDelay time.Duration
	workers    int
	queue      chan *task
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

var _ coordinator.Notifier = (*Sender)(nil)

func NewSender(cfg Config) *Sender {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}

	return &Sender{
		endpoints: cfg.Endpoints,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
		workers:    cfg.WorkerCount,
		queue:      make(chan *task, cfg.QueueSize),
		stopCh:     make(chan struct{}),
	}
}

func (s *Sender) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *Sender) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Sender) PrintStarted(deviceName, sourceName string) {
	s.enqueue(EventPrintStarted, &PrintStartedData{
		DeviceName: deviceName,
		SourceName: sourceName,
		Timestamp:  time.Now(),
	})
}

func (s *Sender) PrintFinished(res coordinator.Result) {
	data := &PrintResultData{
		JobID:         res.JobID.String(),
		Cookie:        res.Cookie,
		DeviceName:    res.DeviceName,
		SourceName:    res.SourceName,
		ExpectedPages: res.ExpectedPages,
		RenderedPages: res.RenderedPages,
		Success:       res.Success,
		ErrorMessage:  res.ErrorMessage,
		DurationMS:    res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
		FinishedAt:    res.FinishedAt,
	}
	if res.Success {
		s.enqueue(EventPrintCompleted, data)
	} else {
		s.enqueue(EventPrintFailed, data)
	}
}

func (s *Sender) enqueue(event Event, data interface{}) {
	for _, ep := range s.endpoints {
		if !subscribed(ep, event) {
			continue
		}
		t := &task{
			endpoint: ep,
			event:    event,
			payload: &Payload{
				Event:     string(event),
				Timestamp: time.Now(),
				Data:      data,
			},
		}

		select {
		case s.queue <- t:
		default:
			log.Printf("[webhook] queue full, dropping %s for endpoint %s", event, ep.Name)
		}
	}
}

func subscribed(ep Endpoint, event Event) bool {
	if len(ep.Events) == 0 {
		return true
	}
	for _, e := range ep.Events {
		if e == string(event) {
			return true
		}
	}
	return false
}

func (s *Sender) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case t := <-s.queue:
			if err := s.sendWithRetry(t); err != nil {
				log.Printf("[webhook worker %d] failed to send %s to %s after %d attempts: %v",
					id, t.event, t.endpoint.Name, t.attempt, err)
			}
		}
	}
}

func (s *Sender) sendWithRetry(t *task) error {
	var lastErr error
	for t.attempt < s.retryCount {
		t.attempt++

		err := s.sendRequest(t.endpoint, t.payload)
		if err == nil {
			return nil
		}

		lastErr = err

		if isClientError(err) {
			log.Printf("[webhook] client error for endpoint %s, not retrying: %v", t.endpoint.Name, err)
			return err
		}

		if t.attempt < s.retryCount {
			backoff := s.retryDelay * time.Duration(1<<(t.attempt-1))
			log.Printf("[webhook] retry %d/%d for endpoint %s in %v: %v",
				t.attempt, s.retryCount, t.endpoint.Name, backoff, err)

			select {
			case <-s.stopCh:
				return fmt.Errorf("shutdown requested")
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *Sender) sendRequest(ep Endpoint, payload *Payload) error {
	payloadBytes, err := json.Marshal(payload.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	if ep.Secret != "" {
		payload.Signature = signPayload(payloadBytes, ep.Secret)
	}

	fullPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", ep.URL, bytes.NewReader(fullPayload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", payload.Signature)
	req.Header.Set("X-Webhook-Event", payload.Event)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("http error: %d", resp.StatusCode)
	}

	return nil
}

func signPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func isClientError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "http error: 4")
}
