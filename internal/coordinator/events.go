package coordinator

import (
	"github.com/orrn/printhost/internal/printing"
)

// Event is one inbound progress signal from the rendering surface. The set
// is closed so the state machine can dispatch it exhaustively through a
// single handler. Every document-scoped event carries the cookie used for
// staleness filtering.
type Event interface {
	isEvent()
}

// DocumentCookieEvent reports the cookie assigned to the document the
// producer started working on.
type DocumentCookieEvent struct {
	Cookie int
}

// PageCountEvent reports how many pages the document has.
type PageCountEvent struct {
	Cookie int
	Pages  int
}

// PageRenderedEvent delivers one rendered page.
type PageRenderedEvent struct {
	Cookie int
	Page   printing.Page
}

// InvalidSettingsEvent signals that the producer cannot proceed with the
// current printer settings.
type InvalidSettingsEvent struct{}

// RendererGoneEvent signals that the producer process terminated.
type RendererGoneEvent struct{}

// NavigationEvent signals that the surface navigated away from the current
// document.
type NavigationEvent struct{}

func (DocumentCookieEvent) isEvent()  {}
func (PageCountEvent) isEvent()       {}
func (PageRenderedEvent) isEvent()    {}
func (InvalidSettingsEvent) isEvent() {}
func (RendererGoneEvent) isEvent()    {}
func (NavigationEvent) isEvent()      {}
