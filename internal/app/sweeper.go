package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper reaps ringing calls the callee never answered. Without it a
// long-running process would accumulate sessions for callers that closed
// the app mid-ring.
type Sweeper struct {
	Table    *CallTable
	Interval time.Duration
	Deadline time.Duration
}

func NewSweeper(table *CallTable, interval, deadline time.Duration) *Sweeper {
	return &Sweeper{Table: table, Interval: interval, Deadline: deadline}
}

// Run blocks until ctx is done, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	log.Info().Str("module", "app.sweeper").Dur("interval", s.Interval).Dur("deadline", s.Deadline).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("sweeper stopped")
			return
		case now := <-ticker.C:
			s.Table.Expire(now.Add(-s.Deadline))
		}
	}
}
