package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/dhc-order-crawler/internal/clock/system"
	"github.com/JakeFAU/dhc-order-crawler/internal/metrics"
)

// Driver walks years, case types and case numbers, resolving each triple and
// persisting every case that exists. It runs one probe at a time.
type Driver struct {
	resolver  Resolver
	store     CaseStore
	publisher Publisher
	clock     Clock
	policy    Policy
	topic     string
	logger    *zap.Logger

	mu      sync.RWMutex
	cursor  Cursor
	summary Summary
}

// NewDriver constructs a Driver. publisher may be nil, in which case no
// notifications are sent.
func NewDriver(
	resolver Resolver,
	store CaseStore,
	publisher Publisher,
	clock Clock,
	policy Policy,
	topic string,
	logger *zap.Logger,
) *Driver {
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		resolver:  resolver,
		store:     store,
		publisher: publisher,
		clock:     clock,
		policy:    policy,
		topic:     topic,
		logger:    logger,
	}
}

// Run performs the full traversal with the given session token. It only
// returns early when ctx is canceled.
func (d *Driver) Run(ctx context.Context, token string) (Summary, error) {
	if err := d.policy.Validate(); err != nil {
		return Summary{}, fmt.Errorf("invalid crawl policy: %w", err)
	}
	d.logger.Info("crawl started",
		zap.Int("start_year", d.policy.StartYear),
		zap.Int("floor_year", d.policy.FloorYear),
		zap.Int("case_types", len(d.policy.CaseTypes)),
		zap.Int("miss_threshold", d.policy.MissThreshold),
	)
	for year := d.policy.StartYear; year >= d.policy.FloorYear; year-- {
		for _, caseType := range d.policy.CaseTypes {
			if err := d.crawlType(ctx, token, year, caseType); err != nil {
				return d.Summary(), err
			}
		}
	}
	summary := d.Summary()
	d.logger.Info("crawl finished",
		zap.Int("probes", summary.Probes),
		zap.Int("hits", summary.Hits),
		zap.Int("persisted", summary.Persisted),
		zap.Int("documents_archived", summary.DocumentsArchived),
		zap.Int("documents_failed", summary.DocumentsFailed),
	)
	return summary, nil
}

// crawlType probes case numbers for one type and year until the miss streak
// reaches the threshold. A hit does not reset the streak.
func (d *Driver) crawlType(ctx context.Context, token string, year int, caseType string) error {
	misses := 0
	probes := 0
	for number := 1; ; number++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("crawl interrupted at %s/%d/%d: %w", caseType, number, year, err)
		}
		if d.policy.MaxNumber > 0 && number > d.policy.MaxNumber {
			break
		}
		query := CaseQuery{
			CaseType:   caseType,
			CaseNumber: number,
			FilingYear: year,
			Token:      token,
		}
		d.setCursor(Cursor{FilingYear: year, CaseType: caseType, CaseNumber: number, MissStreak: misses})

		probes++
		if !d.probe(ctx, query) {
			misses++
		}
		d.setCursor(Cursor{FilingYear: year, CaseType: caseType, CaseNumber: number, MissStreak: misses})

		if misses >= d.policy.MissThreshold {
			break
		}
	}

	d.mu.Lock()
	d.summary.TypesExhausted++
	d.mu.Unlock()
	metrics.ObserveTypeExhausted(caseType)
	d.logger.Info("case type exhausted",
		zap.String("case_type", caseType),
		zap.Int("year", year),
		zap.Int("probes", probes),
		zap.Int("miss_streak", misses),
	)
	return nil
}

// probe resolves one query and persists the result. It reports whether the
// case exists.
func (d *Driver) probe(ctx context.Context, query CaseQuery) bool {
	start := d.clock.Now()
	record, err := d.resolver.Resolve(ctx, query)
	elapsed := d.clock.Now().Sub(start)

	if err != nil {
		kind := KindOf(err)
		metrics.ObserveProbe("miss_"+string(kind), elapsed)
		d.logger.Debug("no case",
			zap.String("case_info", query.CaseInfo()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		d.mu.Lock()
		d.summary.Probes++
		d.summary.Misses++
		d.mu.Unlock()
		return false
	}

	metrics.ObserveProbe("hit", elapsed)
	record.CaseInfo = query.CaseInfo()
	archived, failed := record.DocumentCounts()

	d.mu.Lock()
	d.summary.Probes++
	d.summary.Hits++
	d.summary.DocumentsArchived += archived
	d.summary.DocumentsFailed += failed
	d.mu.Unlock()

	d.persist(ctx, record, elapsed)
	return true
}

func (d *Driver) persist(ctx context.Context, record CaseRecord, elapsed time.Duration) {
	if err := d.store.Insert(ctx, record); err != nil {
		metrics.ObservePersist(false)
		d.mu.Lock()
		d.summary.PersistFailures++
		d.mu.Unlock()
		d.logger.Error("persist case failed", zap.String("case_info", record.CaseInfo), zap.Error(err))
		return
	}
	metrics.ObservePersist(true)
	d.mu.Lock()
	d.summary.Persisted++
	d.mu.Unlock()

	d.logger.Info(record.CaseInfo,
		zap.Int("orders", len(record.Orders)),
		zap.String("status", record.Status),
		zap.Duration("elapsed", elapsed),
	)
	d.notify(ctx, record)
}

func (d *Driver) notify(ctx context.Context, record CaseRecord) {
	if d.topic == "" || d.publisher == nil {
		return
	}
	archived, failed := record.DocumentCounts()
	payload := map[string]any{
		"case_info":          record.CaseInfo,
		"status":             record.Status,
		"next_date":          record.NextHearingDate,
		"orders":             len(record.Orders),
		"documents_archived": archived,
		"documents_failed":   failed,
		"timestamp":          d.clock.Now().Format(time.RFC3339),
	}
	if _, err := d.publisher.Publish(ctx, d.topic, payload); err != nil {
		d.logger.Warn("publish case notification failed", zap.String("case_info", record.CaseInfo), zap.Error(err))
	}
}

func (d *Driver) setCursor(c Cursor) {
	d.mu.Lock()
	d.cursor = c
	d.mu.Unlock()
}

// Cursor returns a snapshot of the current enumeration position.
func (d *Driver) Cursor() Cursor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cursor
}

// Summary returns a snapshot of the run counters.
func (d *Driver) Summary() Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.summary
}
