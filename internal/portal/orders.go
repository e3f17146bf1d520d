package portal

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
	"github.com/JakeFAU/dhc-order-crawler/internal/metrics"
)

// OrderExtractor turns order table rows into records, fetching and
// archiving each linked document. Rows are processed by a bounded pool.
type OrderExtractor struct {
	fetcher  crawler.DocumentFetcher
	archiver crawler.Archiver
	width    int
	logger   *zap.Logger
}

// NewOrderExtractor builds an extractor that runs up to width rows at once.
func NewOrderExtractor(fetcher crawler.DocumentFetcher, archiver crawler.Archiver, width int, logger *zap.Logger) *OrderExtractor {
	if width <= 0 {
		width = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderExtractor{fetcher: fetcher, archiver: archiver, width: width, logger: logger}
}

// Extract returns one record per well-formed row in source order. Malformed
// rows are logged and left out.
func (e *OrderExtractor) Extract(ctx context.Context, rows []orderRow) []crawler.OrderRecord {
	results := make([]crawler.OrderRecord, len(rows))
	ok := make([]bool, len(rows))

	var g errgroup.Group
	g.SetLimit(e.width)
	for i, row := range rows {
		g.Go(func() error {
			record, err := e.extractRow(ctx, row)
			if err != nil {
				e.logger.Warn("order row dropped", zap.Int("row", row.index), zap.Error(err))
				return nil
			}
			results[i] = record
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	orders := make([]crawler.OrderRecord, 0, len(rows))
	for i, record := range results {
		if ok[i] {
			orders = append(orders, record)
		}
	}
	return orders
}

// extractRow reads the positional cells of one row. Only a short row is an
// error; document failures are recorded on the returned record.
func (e *OrderExtractor) extractRow(ctx context.Context, row orderRow) (crawler.OrderRecord, error) {
	if len(row.cells) < orderCells {
		return crawler.OrderRecord{}, fmt.Errorf("%w: row %d has %d of %d cells",
			crawler.ErrMalformed, row.index, len(row.cells), orderCells)
	}
	record := crawler.OrderRecord{
		SequenceNumber: row.cells[0],
		CaseNumber:     row.cells[1],
		OrderDate:      row.cells[2],
		Corrigenda:     row.cells[3],
		HindiOrder:     row.cells[4],
		DocumentStatus: crawler.DocumentNone,
	}
	if !row.hasLink {
		metrics.ObserveDocument(string(crawler.DocumentNone))
		return record, nil
	}

	url, err := e.archiveDocument(ctx, row.onclick)
	if err != nil {
		record.DocumentStatus = crawler.DocumentFailed
		record.DocumentErr = err
		metrics.ObserveDocument(string(crawler.DocumentFailed))
		e.logger.Warn("order document unavailable",
			zap.Int("row", row.index),
			zap.String("kind", string(crawler.KindOf(err))),
			zap.Error(err),
		)
		return record, nil
	}
	record.DocumentURL = &url
	record.DocumentStatus = crawler.DocumentArchived
	metrics.ObserveDocument(string(crawler.DocumentArchived))
	return record, nil
}

// archiveDocument downloads the linked document, uploads it and always
// removes the local copy.
func (e *OrderExtractor) archiveDocument(ctx context.Context, onclick string) (url string, err error) {
	filePath, err := documentFilePath(onclick)
	if err != nil {
		return "", err
	}
	localPath, err := e.fetcher.Fetch(ctx, filePath)
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.Remove(localPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			e.logger.Warn("remove temp document failed", zap.String("path", localPath), zap.Error(rmErr))
		}
	}()
	return e.archiver.Archive(ctx, localPath)
}
