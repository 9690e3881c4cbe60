package render

import (
	"strings"
	"sync"
	"time"

	"github.com/orrn/printhost/internal/coordinator"
	"github.com/orrn/printhost/internal/printing"
)

const defaultPageSize = 20

type Config struct {
	SourceName  string
	PageSize    int // lines per rendered page
	RenderDelay time.Duration
}

// Engine is the in-process rendering producer. It paginates the currently
// loaded document and answers print requests asynchronously through posted
// progress events, the way a renderer process would across IPC. Terminate
// simulates the producer process dying mid-flight.
type Engine struct {
	cfg   Config
	queue *printing.JobQueue
	post  func(coordinator.Event)

	mu      sync.Mutex
	live    bool
	lines   []string
	renders map[int]*renderJob
}

type renderJob struct {
	cookie   int
	pages    []printing.Page
	sent     map[int]bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (r *renderJob) stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
}

func NewEngine(cfg Config, queue *printing.JobQueue) *Engine {
	if cfg.SourceName == "" {
		cfg.SourceName = "untitled"
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = defaultPageSize
	}
	return &Engine{
		cfg:     cfg,
		queue:   queue,
		live:    true,
		renders: make(map[int]*renderJob),
	}
}

// AttachSink binds the engine to the coordinator's event inbox. Must be
// called before printing starts.
func (e *Engine) AttachSink(post func(coordinator.Event)) {
	e.mu.Lock()
	e.post = post
	e.mu.Unlock()
}

func (e *Engine) SourceName() string {
	return e.cfg.SourceName
}

func (e *Engine) IsLive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live
}

// LoadContent replaces the document without signaling navigation. Used for
// the initial load.
func (e *Engine) LoadContent(text string) {
	e.mu.Lock()
	e.lines = splitLines(text)
	e.mu.Unlock()
}

// Navigate replaces the document and signals the coordinator that the user
// moved away from the one being printed.
func (e *Engine) Navigate(text string) {
	e.mu.Lock()
	e.cancelRendersLocked()
	e.lines = splitLines(text)
	post := e.post
	e.mu.Unlock()

	if post != nil {
		post(coordinator.NavigationEvent{})
	}
}

// Terminate simulates the producer process dying. All in-flight rendering
// stops and the engine refuses further work.
func (e *Engine) Terminate() {
	e.mu.Lock()
	if !e.live {
		e.mu.Unlock()
		return
	}
	e.live = false
	e.cancelRendersLocked()
	post := e.post
	e.mu.Unlock()

	if post != nil {
		post(coordinator.RendererGoneEvent{})
	}
}

func (e *Engine) cancelRendersLocked() {
	for cookie, r := range e.renders {
		r.stop()
		e.queue.Release(cookie)
		delete(e.renders, cookie)
	}
}

// BeginPrinting registers a printer query for the current document, starts
// producing pages for it, and returns the assigned cookie.
func (e *Engine) BeginPrinting(s printing.Settings) int {
	e.mu.Lock()
	if !e.live || e.post == nil {
		e.mu.Unlock()
		return 0
	}
	e.cancelRendersLocked()

	query := e.queue.CreateQuery(s)
	r := &renderJob{
		cookie: query.Cookie(),
		pages:  paginate(e.lines, e.cfg.PageSize),
		sent:   make(map[int]bool),
		stopCh: make(chan struct{}),
	}
	e.renders[r.cookie] = r
	e.mu.Unlock()

	go e.render(r)
	return r.cookie
}

// RenderMissingPages posts every page of the job not yet delivered.
func (e *Engine) RenderMissingPages(cookie int) {
	e.mu.Lock()
	r, exists := e.renders[cookie]
	if !exists || !e.live {
		e.mu.Unlock()
		return
	}
	var missing []printing.Page
	for _, p := range r.pages {
		if !r.sent[p.Number] {
			r.sent[p.Number] = true
			missing = append(missing, p)
		}
	}
	post := e.post
	e.mu.Unlock()

	if len(missing) == 0 {
		return
	}
	go func() {
		for _, p := range missing {
			post(coordinator.PageRenderedEvent{Cookie: cookie, Page: p})
		}
	}()
}

func (e *Engine) render(r *renderJob) {
	e.post(coordinator.DocumentCookieEvent{Cookie: r.cookie})
	e.post(coordinator.PageCountEvent{Cookie: r.cookie, Pages: len(r.pages)})

	for _, p := range r.pages {
		if e.cfg.RenderDelay > 0 {
			select {
			case <-r.stopCh:
				return
			case <-time.After(e.cfg.RenderDelay):
			}
		} else {
			select {
			case <-r.stopCh:
				return
			default:
			}
		}

		e.mu.Lock()
		claimed := r.sent[p.Number]
		r.sent[p.Number] = true
		e.mu.Unlock()
		if claimed {
			continue
		}
		e.post(coordinator.PageRenderedEvent{Cookie: r.cookie, Page: p})
	}
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

func paginate(lines []string, pageSize int) []printing.Page {
	var pages []printing.Page
	for start := 0; start < len(lines); start += pageSize {
		end := start + pageSize
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, printing.Page{
			Number: len(pages) + 1,
			Data:   []byte(strings.Join(lines[start:end], "\n")),
		})
	}
	return pages
}
