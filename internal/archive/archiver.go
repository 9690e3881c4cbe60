package archive

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/orrn/printhost/internal/db"
)

type Config struct {
	RetentionDays int
	SweepInterval time.Duration
}

// Archiver prunes print history records older than the retention window on
// a fixed interval.
type Archiver struct {
	retentionDays int
	interval      time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

func NewArchiver(cfg Config) *Archiver {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 1 * time.Hour
	}
	return &Archiver{
		retentionDays: cfg.RetentionDays,
		interval:      cfg.SweepInterval,
		stopCh:        make(chan struct{}),
	}
}

func (a *Archiver) Start() {
	a.wg.Add(1)
	go a.sweepLoop()
}

func (a *Archiver) Stop() {
	close(a.stopCh)
	a.wg.Wait()
}

func (a *Archiver) sweepLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.Sweep()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.Sweep()
		}
	}
}

// Sweep deletes records that finished before the retention cutoff.
func (a *Archiver) Sweep() {
	cutoff := time.Now().AddDate(0, 0, -a.retentionDays)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pruned, err := db.Jobs.PruneBefore(ctx, cutoff)
	if err != nil {
		log.Printf("[archive] prune failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("[archive] pruned %d print records older than %d days", pruned, a.retentionDays)
	}
}
