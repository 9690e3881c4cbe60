package printing

import (
	"sync"
	"time"
)

// JobQueue is the process-wide registry of pending printer queries. Cookies
// are handed out here and correlate progress messages with the job they
// belong to.
type JobQueue struct {
	mu         sync.Mutex
	nextCookie int
	queries    map[int]*PrinterQuery
}

func NewJobQueue() *JobQueue {
	return &JobQueue{
		nextCookie: 1,
		queries:    make(map[int]*PrinterQuery),
	}
}

// CreateQuery registers a new pending query and assigns it a fresh cookie.
func (q *JobQueue) CreateQuery(s Settings) *PrinterQuery {
	q.mu.Lock()
	defer q.mu.Unlock()

	query := &PrinterQuery{
		cookie:    q.nextCookie,
		settings:  s.withDefaults(),
		createdAt: time.Now(),
	}
	q.nextCookie++
	q.queries[query.cookie] = query
	return query
}

// PopQuery removes and returns the query for cookie, or nil if none is
// registered.
func (q *JobQueue) PopQuery(cookie int) *PrinterQuery {
	q.mu.Lock()
	defer q.mu.Unlock()

	query, exists := q.queries[cookie]
	if !exists {
		return nil
	}
	delete(q.queries, cookie)
	return query
}

// Release drops the query for cookie if it is still registered.
func (q *JobQueue) Release(cookie int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.queries, cookie)
}

func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queries)
}
