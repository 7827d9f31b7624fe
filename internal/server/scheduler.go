package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/scribe/internal/store"
)

const cleanupLockKey = "sched:lock:cleanup"

// Scheduler runs the periodic session cleanup. An hourly ticker checks
// the cron spec; a Redis lock keeps replicas from cleaning twice. A
// nil Rdb skips the lock, which is fine for single instances.
type Scheduler struct {
	Store         *store.Store
	Rdb           *redis.Client
	CronSpec      string
	RetentionDays int
	Stop          chan struct{}
	Logger        *log.Logger

	lastRun *time.Time
}

func (s *Scheduler) Start() {
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	if !isDue(s.CronSpec, s.lastRun) {
		return
	}

	// distributed lock to avoid duplicate passes
	if s.Rdb != nil {
		ok, _ := s.Rdb.SetNX(ctx, cleanupLockKey, "1", 2*time.Minute).Result()
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, cleanupLockKey)
	}

	removed, err := s.Store.CleanupOldSessions(ctx, s.RetentionDays)
	if err != nil {
		// lastRun stays unset so the next hourly tick retries
		s.logf("session cleanup failed: %v", err)
		return
	}
	now := time.Now()
	s.lastRun = &now
	if removed > 0 {
		s.logf("session cleanup removed %d sessions", removed)
	}
}

func (s *Scheduler) logf(format string, v ...interface{}) {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	s.Logger.Printf(format, v...)
}

// isDue determines if a pass with cronSpec should run now based on the
// last pass time. Supports "@daily", "@hourly", and standard 5-field
// cron expressions; an invalid expression falls back to @daily.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			// never run, due now
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
