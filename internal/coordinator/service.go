package coordinator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/orrn/printhost/internal/printing"
)

var ErrServiceStopped = errors.New("print service is stopped")

// HistoryRecorder persists finished jobs.
type HistoryRecorder interface {
	RecordPrintResult(ctx context.Context, res Result) error
}

// Notifier receives job lifecycle notifications for delivery to external
// observers.
type Notifier interface {
	PrintStarted(deviceName, sourceName string)
	PrintFinished(res Result)
}

type PrintRequest struct {
	DeviceName      string
	Copies          int
	Silent          bool
	PrintBackground bool

	// Wait suspends the caller until the job finishes. The service loop
	// keeps processing events while the caller is suspended.
	Wait bool
}

// Snapshot is a point-in-time view of the coordinator for the status API.
type Snapshot struct {
	State           string  `json:"state"`
	DocumentCookie  int     `json:"document_cookie"`
	ExpectedPages   int     `json:"expected_pages"`
	RenderedPages   int     `json:"rendered_pages"`
	Waiting         bool    `json:"waiting"`
	PrintingEnabled bool    `json:"printing_enabled"`
	PendingQueries  int     `json:"pending_queries"`
	LastResult      *Result `json:"last_result,omitempty"`
}

// Service runs a Coordinator on a single owner goroutine and serializes
// external calls with inbound producer events. It is the thread-safe facade
// the rest of the process talks to.
type Service struct {
	co       *Coordinator
	recorder HistoryRecorder
	notifier Notifier

	cmds     chan func()
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Owner goroutine only. Each waiter is bound to the cookie of the
	// request it waits for, so a result is only ever delivered to its own
	// job's callers.
	waiters []printWaiter
}

type printWaiter struct {
	cookie int
	ch     chan Result
}

func NewService(co *Coordinator, recorder HistoryRecorder, notifier Notifier) *Service {
	s := &Service{
		co:       co,
		recorder: recorder,
		notifier: notifier,
		cmds:     make(chan func()),
		stopCh:   make(chan struct{}),
	}
	co.SetPrintingDoneCallback(s.onPrintingDone)
	return s
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop flushes the active job, stops the loop, and releases the
// coordinator.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		done := make(chan struct{})
		s.cmds <- func() {
			if err := s.co.DisconnectFromCurrentJob(); err != nil {
				log.Printf("[printsvc] disconnect on shutdown failed: %v", err)
			}
			close(done)
		}
		<-done
		close(s.stopCh)
		s.wg.Wait()
		s.co.Close()
	})
}

func (s *Service) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case fn := <-s.cmds:
			fn()
		case ev := <-s.co.Events():
			s.co.Dispatch(ev)
		}
	}
}

// PrintNow submits a print request. A live previous job is disconnected
// first; if that is impossible the request is rejected with
// ErrJobCreationFailed and the previous job is untouched. With req.Wait the
// returned Result is the finished job's.
func (s *Service) PrintNow(ctx context.Context, req PrintRequest) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reply := make(chan error, 1)
	var waitCh chan Result
	if req.Wait {
		waitCh = make(chan Result, 1)
	}

	fn := func() {
		if err := s.co.DisconnectFromCurrentJob(); err != nil {
			reply <- err
			return
		}
		cookie, err := s.co.PrintNow(printing.Settings{
			DeviceName:      req.DeviceName,
			Copies:          req.Copies,
			Silent:          req.Silent,
			PrintBackground: req.PrintBackground,
		})
		if err == nil {
			if s.notifier != nil {
				s.notifier.PrintStarted(req.DeviceName, s.co.surface.SourceName())
			}
			if waitCh != nil {
				s.waiters = append(s.waiters, printWaiter{cookie: cookie, ch: waitCh})
			}
		}
		reply <- err
	}

	select {
	case s.cmds <- fn:
	case <-s.stopCh:
		return nil, ErrServiceStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case err := <-reply:
		if err != nil {
			return nil, err
		}
	case <-s.stopCh:
		return nil, ErrServiceStopped
	}

	if waitCh == nil {
		return nil, nil
	}
	select {
	case res := <-waitCh:
		return &res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.stopCh:
		return nil, ErrServiceStopped
	}
}

// SetPrintingEnabled flips the printing policy gate.
func (s *Service) SetPrintingEnabled(ctx context.Context, enabled bool) error {
	return s.exec(ctx, func() {
		s.co.SetPrintingEnabled(enabled)
	})
}

func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.exec(ctx, func() {
		snap = Snapshot{
			State:           s.co.State().String(),
			DocumentCookie:  s.co.DocumentCookie(),
			Waiting:         s.co.Waiting(),
			PrintingEnabled: s.co.PrintingEnabled(),
			PendingQueries:  s.co.queue.Len(),
			LastResult:      s.co.LastResult(),
		}
		if job := s.co.ActiveJob(); job != nil {
			snap.ExpectedPages = job.Document().PageCount()
			snap.RenderedPages = job.Document().RenderedCount()
		}
	})
	return snap, err
}

// exec runs fn on the owner goroutine and waits for it.
func (s *Service) exec(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}
	select {
	case s.cmds <- wrapped:
	case <-s.stopCh:
		return ErrServiceStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-s.stopCh:
		return ErrServiceStopped
	}
}

// onPrintingDone runs on the owner goroutine once per finished job.
func (s *Service) onPrintingDone(res Result) {
	if s.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.recorder.RecordPrintResult(ctx, res); err != nil {
			log.Printf("[printsvc] failed to record job %s: %v", res.JobID, err)
		}
		cancel()
	}
	if s.notifier != nil {
		s.notifier.PrintFinished(res)
	}
	kept := s.waiters[:0]
	for _, w := range s.waiters {
		if w.cookie == res.Cookie {
			w.ch <- res
		} else {
			kept = append(kept, w)
		}
	}
	s.waiters = kept
}
