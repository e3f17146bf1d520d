package portal

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

// Resolver implements crawler.Resolver against the case lookup endpoint.
type Resolver struct {
	client *Client
	orders *OrderExtractor
	logger *zap.Logger
}

// NewResolver wires a Resolver. orders may be nil, in which case tables
// are ignored and every case resolves with zero orders.
func NewResolver(client *Client, orders *OrderExtractor, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{client: client, orders: orders, logger: logger}
}

// Resolve looks up one case. Any error means the case is treated as absent.
func (r *Resolver) Resolve(ctx context.Context, query crawler.CaseQuery) (crawler.CaseRecord, error) {
	body, err := r.client.post(ctx, lookupPath, map[string]string{
		"scode":   r.client.cfg.SCode,
		"fflag":   r.client.cfg.FFlag,
		"ctype":   query.CaseType,
		"regno":   query.FormNumber(),
		"regyr":   query.FormYear(),
		"japtcha": query.Token,
	})
	if err != nil {
		return crawler.CaseRecord{}, fmt.Errorf("lookup %s: %w", query.CaseInfo(), err)
	}

	page, err := parseCasePage(body)
	if err != nil {
		return crawler.CaseRecord{}, fmt.Errorf("lookup %s: %w", query.CaseInfo(), err)
	}

	record := crawler.CaseRecord{
		Parties:         page.parties,
		Status:          page.status,
		NextHearingDate: page.nextDate,
		Orders:          []crawler.OrderRecord{},
	}
	if r.orders != nil && len(page.rows) > 0 {
		record.Orders = r.orders.Extract(ctx, page.rows)
	}
	r.logger.Debug("case page parsed",
		zap.String("case_info", query.CaseInfo()),
		zap.Int("rows", len(page.rows)),
		zap.Int("orders", len(record.Orders)),
	)
	return record, nil
}
