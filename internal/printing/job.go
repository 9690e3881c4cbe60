package printing

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Spooler receives rendered pages for delivery to the physical printer.
type Spooler interface {
	StartDocument(name string, cookie int) error
	SpoolPage(p Page) error
	EndDocument() error
	Abort()
}

// Job is one in-flight print operation. Pages handed to it are spooled by a
// dedicated worker goroutine, so the job can keep draining output after its
// owner has lost interest. Stop flushes everything already queued before
// returning; Cancel drops queued pages and returns as soon as the worker
// exits.
type Job struct {
	id        uuid.UUID
	document  *Document
	settings  Settings
	spooler   Spooler
	createdAt time.Time

	pageCh   chan Page
	flushCh  chan struct{}
	cancelCh chan struct{}
	doneCh   chan struct{}

	stopOnce   sync.Once
	cancelOnce sync.Once

	mu       sync.Mutex
	pending  bool
	spoolErr error
}

func NewJob(query *PrinterQuery, sourceName string, spooler Spooler) *Job {
	return &Job{
		id:        uuid.New(),
		document:  NewDocument(query.Cookie(), sourceName),
		settings:  query.Settings(),
		spooler:   spooler,
		createdAt: time.Now(),
		pageCh:    make(chan Page, 64),
		flushCh:   make(chan struct{}),
		cancelCh:  make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start opens the document on the spooler and launches the spool worker.
func (j *Job) Start() error {
	if err := j.spooler.StartDocument(j.document.Name(), j.document.Cookie()); err != nil {
		close(j.doneCh)
		return fmt.Errorf("failed to start document on spooler: %w", err)
	}

	j.mu.Lock()
	j.pending = true
	j.mu.Unlock()

	go j.worker()
	return nil
}

func (j *Job) ID() uuid.UUID {
	return j.id
}

func (j *Job) Document() *Document {
	return j.document
}

func (j *Job) Settings() Settings {
	return j.settings
}

func (j *Job) Cookie() int {
	return j.document.Cookie()
}

func (j *Job) CreatedAt() time.Time {
	return j.createdAt
}

func (j *Job) IsPending() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pending
}

// Done is closed once the spool worker has exited.
func (j *Job) Done() <-chan struct{} {
	return j.doneCh
}

// SpoolError reports the first spooler failure, if any.
func (j *Job) SpoolError() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.spoolErr
}

// AddPage records a rendered page on the document and queues it for
// spooling. Returns false for duplicate or out-of-range pages, or when the
// worker is no longer accepting pages.
func (j *Job) AddPage(p Page) bool {
	if !j.document.SetPage(p) {
		return false
	}
	select {
	case j.pageCh <- p:
		return true
	case <-j.doneCh:
		return false
	}
}

// Stop tells the worker to flush all queued pages and end the document, then
// waits for it to exit. Safe to call more than once.
func (j *Job) Stop() {
	j.stopOnce.Do(func() {
		j.mu.Lock()
		j.pending = false
		j.mu.Unlock()
		close(j.flushCh)
	})
	<-j.doneCh
}

// Cancel aborts the worker immediately, dropping queued pages.
func (j *Job) Cancel() {
	j.cancelOnce.Do(func() {
		j.mu.Lock()
		j.pending = false
		j.mu.Unlock()
		close(j.cancelCh)
	})
	<-j.doneCh
}

func (j *Job) setSpoolErr(err error) {
	j.mu.Lock()
	if j.spoolErr == nil {
		j.spoolErr = err
	}
	j.mu.Unlock()
}

func (j *Job) worker() {
	defer close(j.doneCh)

	for {
		select {
		case <-j.cancelCh:
			j.spooler.Abort()
			return
		case p := <-j.pageCh:
			if err := j.spooler.SpoolPage(p); err != nil {
				j.setSpoolErr(err)
			}
		case <-j.flushCh:
			j.drainAndEnd()
			return
		}
	}
}

// drainAndEnd spools whatever is still queued, then closes the document.
// Cancel still wins over an in-progress flush.
func (j *Job) drainAndEnd() {
	for {
		select {
		case <-j.cancelCh:
			j.spooler.Abort()
			return
		case p := <-j.pageCh:
			if err := j.spooler.SpoolPage(p); err != nil {
				j.setSpoolErr(err)
			}
		default:
			if err := j.spooler.EndDocument(); err != nil {
				j.setSpoolErr(err)
			}
			return
		}
	}
}
