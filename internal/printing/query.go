package printing

import "time"

// PrinterQuery is a pending settings request, keyed by its document cookie.
// It lives between "settings requested" and either promotion into a Job or
// release back to the queue.
type PrinterQuery struct {
	cookie    int
	settings  Settings
	createdAt time.Time
}

func (q *PrinterQuery) Cookie() int {
	return q.cookie
}

func (q *PrinterQuery) Settings() Settings {
	return q.settings
}

func (q *PrinterQuery) CreatedAt() time.Time {
	return q.createdAt
}
