package printing

import (
	"sync"
)

// Page is one rendered page of a document, numbered from 1.
type Page struct {
	Number int
	Data   []byte
}

// Document accumulates the rendered pages of one print job. The expected
// page count is unknown (-1) until the producer reports it. A document with
// zero expected pages is complete.
type Document struct {
	mu            sync.Mutex
	cookie        int
	name          string
	expectedPages int
	pages         map[int]Page
}

func NewDocument(cookie int, name string) *Document {
	return &Document{
		cookie:        cookie,
		name:          name,
		expectedPages: -1,
		pages:         make(map[int]Page),
	}
}

func (d *Document) Cookie() int {
	return d.cookie
}

func (d *Document) Name() string {
	return d.name
}

// SetPageCount records the expected page count. The count is set once; later
// calls are ignored.
func (d *Document) SetPageCount(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.expectedPages >= 0 || n < 0 {
		return
	}
	d.expectedPages = n
}

func (d *Document) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.expectedPages
}

// SetPage stores a rendered page. Duplicate and out-of-range pages are
// rejected.
func (d *Document) SetPage(p Page) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.Number < 1 {
		return false
	}
	if d.expectedPages >= 0 && p.Number > d.expectedPages {
		return false
	}
	if _, exists := d.pages[p.Number]; exists {
		return false
	}
	d.pages[p.Number] = p
	return true
}

func (d *Document) RenderedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pages)
}

// MissingPages lists the page numbers not yet rendered. Nil until the page
// count is known.
func (d *Document) MissingPages() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.expectedPages < 0 {
		return nil
	}
	var missing []int
	for n := 1; n <= d.expectedPages; n++ {
		if _, exists := d.pages[n]; !exists {
			missing = append(missing, n)
		}
	}
	return missing
}

func (d *Document) IsComplete() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.expectedPages >= 0 && len(d.pages) == d.expectedPages
}
