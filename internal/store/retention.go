package store

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"
)

// retainedTables lists the append-only log tables pruned by the retention scheduler.
var retainedTables = []string{"_webhook_logs", "_events"}

// PurgeOlderThan deletes rows from table whose created_at is older than days.
func PurgeOlderThan(ctx context.Context, s *Store, table string, days int) (int64, error) {
	pb := s.Dialect.NewParamBuilder()
	where := s.Dialect.IntervalDeleteExpr("created_at", pb, strconv.Itoa(days))
	n, err := Exec(ctx, s.DB, fmt.Sprintf("DELETE FROM %s WHERE %s", table, where), pb.Params()...)
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", table, err)
	}
	return n, nil
}

// RetentionScheduler prunes delivery logs and trace events on a background interval.
type RetentionScheduler struct {
	store    *Store
	days     int
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
}

func NewRetentionScheduler(s *Store, days int, interval time.Duration) *RetentionScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionScheduler{store: s, days: days, interval: interval}
}

// Start begins the background ticker. A non-positive retention disables pruning.
func (rs *RetentionScheduler) Start() {
	if rs.days <= 0 {
		log.Println("Retention scheduler disabled")
		return
	}
	rs.ticker = time.NewTicker(rs.interval)
	rs.done = make(chan struct{})
	go rs.run()
	log.Printf("Retention scheduler started (%s interval, %d days)", rs.interval, rs.days)
}

// Stop halts the background ticker.
func (rs *RetentionScheduler) Stop() {
	if rs.ticker != nil {
		rs.ticker.Stop()
	}
	if rs.done != nil {
		close(rs.done)
	}
}

func (rs *RetentionScheduler) run() {
	for {
		select {
		case <-rs.done:
			return
		case <-rs.ticker.C:
			rs.Prune(context.Background())
		}
	}
}

// Prune runs one retention pass over every log table.
func (rs *RetentionScheduler) Prune(ctx context.Context) {
	for _, table := range retainedTables {
		n, err := PurgeOlderThan(ctx, rs.store, table, rs.days)
		if err != nil {
			log.Printf("ERROR: retention: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("Retention: deleted %d rows from %s", n, table)
		}
	}
}
