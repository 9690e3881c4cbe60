// Package coordinator drives the lifecycle of print jobs for one rendering
// surface. It correlates inbound progress events with the active job via a
// document cookie, presents a synchronous-looking "render all missing pages"
// wait over the asynchronous producer, and tears jobs down safely when the
// producer dies or the job is superseded.
package coordinator

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orrn/printhost/internal/printing"
)

var (
	ErrPrintingDisabled  = errors.New("printing is disabled")
	ErrSurfaceNotReady   = errors.New("rendering surface is not ready")
	ErrJobCreationFailed = errors.New("failed to create print job")
)

// Surface is the rendering producer the coordinator is bound to. Requests
// are fire-and-forget; the surface answers asynchronously through posted
// events. BeginPrinting returns the cookie assigned to the request, or 0
// when the surface refused it.
type Surface interface {
	SourceName() string
	IsLive() bool
	BeginPrinting(s printing.Settings) int
	RenderMissingPages(cookie int)
}

// State tracks where the active job is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingPageCount
	StateRendering
	StateAwaitingCompletion
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPageCount:
		return "awaiting_page_count"
	case StateRendering:
		return "rendering"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	default:
		return "unknown"
	}
}

// Outcome is the tri-state result accumulator for the active job. It
// transitions away from unknown at most once per job.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// Result describes one finished job. It is handed to the completion
// callback exactly once per job instance.
type Result struct {
	JobID         uuid.UUID
	Cookie        int
	DeviceName    string
	SourceName    string
	ExpectedPages int
	RenderedPages int
	Success       bool
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Coordinator owns at most one active print job. All methods except Post
// must be called from the single owner goroutine; inbound events cross
// goroutines only through the inbox channel.
type Coordinator struct {
	surface Surface
	queue   *printing.JobQueue
	spooler printing.Spooler
	done    func(Result)

	inbox     chan Event
	closedCh  chan struct{}
	closeOnce sync.Once

	job                *printing.Job
	cookie             int
	state              State
	outcome            Outcome
	waiting            bool
	expectingFirstPage bool
	enabled            bool
	lastResult         *Result
}

func New(surface Surface, queue *printing.JobQueue, spooler printing.Spooler) *Coordinator {
	return &Coordinator{
		surface:  surface,
		queue:    queue,
		spooler:  spooler,
		inbox:    make(chan Event, 64),
		closedCh: make(chan struct{}),
		state:    StateIdle,
		enabled:  true,
	}
}

// SetPrintingDoneCallback registers the completion callback. It fires on the
// owner goroutine, exactly once per job.
func (c *Coordinator) SetPrintingDoneCallback(cb func(Result)) {
	c.done = cb
}

// Post delivers an inbound event. Safe to call from any goroutine.
func (c *Coordinator) Post(ev Event) {
	select {
	case c.inbox <- ev:
	case <-c.closedCh:
	}
}

// Events exposes the inbox for the owning event loop to drain.
func (c *Coordinator) Events() <-chan Event {
	return c.inbox
}

// Close releases any producer blocked on Post and unblocks an outstanding
// wait. The coordinator must not be used afterwards.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.closedCh)
	})
}

// Dispatch routes one inbound event through the state machine.
func (c *Coordinator) Dispatch(ev Event) {
	switch ev := ev.(type) {
	case DocumentCookieEvent:
		c.onDocumentCookie(ev.Cookie)
	case PageCountEvent:
		c.onPageCount(ev.Cookie, ev.Pages)
	case PageRenderedEvent:
		c.onPageRendered(ev.Cookie, ev.Page)
	case InvalidSettingsEvent:
		c.onInvalidSettings()
	case RendererGoneEvent:
		c.onRendererGone()
	case NavigationEvent:
		c.onNavigation()
	}
}

// PrintNow asks the surface to start producing the current document and
// returns the cookie assigned to the request. The actual printing completes
// asynchronously; rejection is immediate when printing is disabled, the
// surface is unready, or the previous job cannot be disconnected.
func (c *Coordinator) PrintNow(settings printing.Settings) (int, error) {
	if !c.enabled {
		return 0, ErrPrintingDisabled
	}
	if !c.surface.IsLive() {
		return 0, ErrSurfaceNotReady
	}
	if c.waiting {
		// A synchronous wait is outstanding for the previous job; it cannot
		// be disconnected from here.
		return 0, ErrJobCreationFailed
	}
	c.expectingFirstPage = true
	cookie := c.surface.BeginPrinting(settings)
	if cookie <= 0 {
		return 0, ErrSurfaceNotReady
	}
	return cookie, nil
}

// RenderAllMissingPagesNow asks the surface to render every page the active
// job has not yet received, then suspends cooperatively until the document
// completes or a terminating signal arrives. Inbound events keep being
// processed while suspended. Returns whether at least one page was
// requested.
func (c *Coordinator) RenderAllMissingPagesNow() bool {
	if c.job == nil || !c.job.IsPending() {
		return false
	}
	if c.waiting {
		// Re-entrant waits are rejected.
		return false
	}
	if c.job.Document().IsComplete() {
		return false
	}
	c.surface.RenderMissingPages(c.cookie)
	c.runInnerPump()
	return true
}

// runInnerPump re-entrantly drains the inbox until the wait is released.
// Every release path clears waiting: normal completion, zero-page
// completion, producer termination, and navigation all go through
// releaseJob.
func (c *Coordinator) runInnerPump() {
	c.waiting = true
	for c.waiting {
		select {
		case ev := <-c.inbox:
			c.Dispatch(ev)
			c.maybeQuitInnerPump()
		case <-c.closedCh:
			c.waiting = false
		}
	}
}

// maybeQuitInnerPump releases the wait once there is nothing left to wait
// for: the job is gone or its document is complete.
func (c *Coordinator) maybeQuitInnerPump() {
	if !c.waiting {
		return
	}
	if c.job == nil || c.job.Document().IsComplete() {
		c.waiting = false
	}
}

// OpportunisticallyCreateJob creates a job bound to cookie so that
// subsequent progress messages have somewhere to land. Used when the
// producer drives the control flow (scripted printing). Reports whether a
// job now exists for that cookie.
func (c *Coordinator) OpportunisticallyCreateJob(cookie int) bool {
	if c.job != nil {
		return c.cookie == cookie
	}
	if cookie <= 0 {
		return false
	}
	query := c.queue.PopQuery(cookie)
	if query == nil {
		// The query answered after this coordinator moved on.
		return false
	}
	if err := c.createJob(query); err != nil {
		log.Printf("[coordinator] job creation for cookie %d failed: %v", cookie, err)
		return false
	}
	return true
}

// createJob tears down any previous job, then installs a new one promoted
// from query.
func (c *Coordinator) createJob(query *printing.PrinterQuery) error {
	if !c.enabled {
		return ErrPrintingDisabled
	}
	if err := c.DisconnectFromCurrentJob(); err != nil {
		return err
	}

	job := printing.NewJob(query, c.surface.SourceName(), c.spooler)
	if err := job.Start(); err != nil {
		log.Printf("[coordinator] failed to start job for cookie %d: %v", query.Cookie(), err)
		// The request still completes, as a failure carrying its cookie, so
		// anyone waiting on it is released promptly.
		res := Result{
			JobID:         job.ID(),
			Cookie:        query.Cookie(),
			DeviceName:    job.Settings().DeviceName,
			SourceName:    job.Document().Name(),
			ExpectedPages: job.Document().PageCount(),
			Success:       false,
			ErrorMessage:  err.Error(),
			StartedAt:     job.CreatedAt(),
			FinishedAt:    time.Now(),
		}
		c.lastResult = &res
		if c.done != nil {
			c.done(res)
		}
		return ErrJobCreationFailed
	}

	c.job = job
	c.cookie = query.Cookie()
	c.outcome = OutcomeUnknown
	c.state = StateAwaitingPageCount
	c.expectingFirstPage = true
	return nil
}

// DisconnectFromCurrentJob makes sure the active job has consumed all data
// already handed to it before releasing, so partially rendered output is
// not dropped mid-page. Fails when the job cannot be quiesced.
func (c *Coordinator) DisconnectFromCurrentJob() error {
	if c.job == nil {
		return nil
	}
	if c.waiting {
		return ErrJobCreationFailed
	}

	c.RenderAllMissingPagesNow()
	if c.job != nil {
		if c.job.Document().IsComplete() {
			c.TerminateJob(false)
		} else {
			// The missing pages never arrived; abort rather than wait
			// forever.
			c.TerminateJob(true)
		}
	}
	c.expectingFirstPage = true
	return nil
}

// TerminateJob ends the active job. No-op when idle. With cancel the job is
// aborted immediately and the outcome forced to failure; otherwise the job
// flushes outstanding work before resources are released.
func (c *Coordinator) TerminateJob(cancel bool) {
	if c.job == nil {
		return
	}
	if cancel {
		c.job.Cancel()
		c.setOutcome(false)
	} else {
		c.state = StateAwaitingCompletion
		c.job.Stop()
		if err := c.job.SpoolError(); err != nil {
			log.Printf("[coordinator] spooling failed for cookie %d: %v", c.cookie, err)
			c.setOutcome(false)
		} else {
			c.setOutcome(true)
		}
	}
	c.releaseJob()
}

// setOutcome finalizes the outcome accumulator. Only the first terminal
// value per job sticks.
func (c *Coordinator) setOutcome(success bool) {
	if c.outcome != OutcomeUnknown {
		return
	}
	if success {
		c.outcome = OutcomeSuccess
	} else {
		c.outcome = OutcomeFailure
	}
}

// releaseJob relinquishes the active job: fires the completion callback,
// releases the printer query, and clears any outstanding wait.
func (c *Coordinator) releaseJob() {
	if c.job == nil {
		return
	}
	if c.outcome == OutcomeUnknown {
		c.outcome = OutcomeFailure
	}

	job := c.job
	doc := job.Document()
	res := Result{
		JobID:         job.ID(),
		Cookie:        doc.Cookie(),
		DeviceName:    job.Settings().DeviceName,
		SourceName:    doc.Name(),
		ExpectedPages: doc.PageCount(),
		RenderedPages: doc.RenderedCount(),
		Success:       c.outcome == OutcomeSuccess,
		StartedAt:     job.CreatedAt(),
		FinishedAt:    time.Now(),
	}
	if err := job.SpoolError(); err != nil {
		res.ErrorMessage = err.Error()
	}

	c.job = nil
	c.releasePrinterQuery()
	c.waiting = false
	c.expectingFirstPage = false
	c.state = StateIdle
	c.lastResult = &res

	if c.done != nil {
		c.done(res)
	}
}

// releasePrinterQuery drops the query associated with the current cookie,
// if the queue still holds one, and clears the cookie.
func (c *Coordinator) releasePrinterQuery() {
	if c.cookie == 0 {
		return
	}
	c.queue.Release(c.cookie)
	c.cookie = 0
}

func (c *Coordinator) onDocumentCookie(cookie int) {
	if !c.OpportunisticallyCreateJob(cookie) {
		log.Printf("[coordinator] dropping document cookie %d with no pending query", cookie)
	}
}

func (c *Coordinator) onPageCount(cookie, pages int) {
	if !c.OpportunisticallyCreateJob(cookie) || cookie != c.cookie {
		log.Printf("[coordinator] dropping stale page count for cookie %d", cookie)
		return
	}
	if pages < 0 {
		return
	}
	c.job.Document().SetPageCount(pages)
	c.state = StateRendering
	if c.job.Document().IsComplete() {
		// An empty document, or every page outran the count. Either way a
		// valid success.
		c.TerminateJob(false)
	}
}

func (c *Coordinator) onPageRendered(cookie int, page printing.Page) {
	if !c.OpportunisticallyCreateJob(cookie) || cookie != c.cookie {
		log.Printf("[coordinator] dropping stale page %d for cookie %d", page.Number, cookie)
		return
	}
	if c.expectingFirstPage {
		c.expectingFirstPage = false
		if c.state == StateAwaitingPageCount {
			// The first page can outrun the page count message.
			c.state = StateRendering
		}
	}
	if !c.job.AddPage(page) {
		log.Printf("[coordinator] dropping duplicate or out-of-range page %d for cookie %d", page.Number, cookie)
		return
	}
	if c.job.Document().IsComplete() {
		c.TerminateJob(false)
	}
}

func (c *Coordinator) onInvalidSettings() {
	log.Printf("[coordinator] producer reported invalid printer settings")
	if c.job == nil {
		return
	}
	c.setOutcome(false)
	c.TerminateJob(true)
}

func (c *Coordinator) onRendererGone() {
	if c.job == nil {
		c.releasePrinterQuery()
		return
	}
	log.Printf("[coordinator] producer terminated with job for cookie %d in flight", c.cookie)
	c.setOutcome(false)
	c.TerminateJob(true)
}

func (c *Coordinator) onNavigation() {
	if c.job == nil {
		return
	}
	// User intent changed; do not wait for in-flight pages.
	c.setOutcome(false)
	c.TerminateJob(true)
}

// SetPrintingEnabled flips the policy gate checked before new jobs are
// admitted.
func (c *Coordinator) SetPrintingEnabled(enabled bool) {
	c.enabled = enabled
}

func (c *Coordinator) PrintingEnabled() bool {
	return c.enabled
}

func (c *Coordinator) State() State {
	return c.state
}

func (c *Coordinator) DocumentCookie() int {
	return c.cookie
}

func (c *Coordinator) Waiting() bool {
	return c.waiting
}

// ActiveJob returns the active job handle, or nil when idle.
func (c *Coordinator) ActiveJob() *printing.Job {
	return c.job
}

// LastResult returns the most recently finished job, or nil if none
// finished yet.
func (c *Coordinator) LastResult() *Result {
	return c.lastResult
}
