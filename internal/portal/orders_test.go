package portal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

type fakeFetcher struct {
	dir    string
	delay  func(filePath string) time.Duration
	errFor map[string]error

	mu      sync.Mutex
	created []string
	n       atomic.Int32
}

func (f *fakeFetcher) Fetch(_ context.Context, filePath string) (string, error) {
	if f.delay != nil {
		time.Sleep(f.delay(filePath))
	}
	if err := f.errFor[filePath]; err != nil {
		return "", err
	}
	local := filepath.Join(f.dir, fmt.Sprintf("doc-%d.pdf", f.n.Add(1)))
	if err := os.WriteFile(local, []byte(filePath), 0o600); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.created = append(f.created, local)
	f.mu.Unlock()
	return local, nil
}

type fakeArchiver struct {
	err error

	inflight atomic.Int32
	peak     atomic.Int32
}

func (a *fakeArchiver) Archive(_ context.Context, localPath string) (string, error) {
	cur := a.inflight.Add(1)
	defer a.inflight.Add(-1)
	for {
		peak := a.peak.Load()
		if cur <= peak || a.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if a.err != nil {
		return "", a.err
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	return "https://archive.test/" + string(content), nil
}

func rowsFor(n int) []orderRow {
	rows := make([]orderRow, n)
	for i := range rows {
		rows[i] = orderRow{
			index:   i,
			cells:   []string{fmt.Sprint(i + 1), "case", "date", "", ""},
			hasLink: true,
			onclick: fmt.Sprintf("openOrder('doc/%d.pdf')", i),
		}
	}
	return rows
}

func TestExtractPreservesSourceOrder(t *testing.T) {
	fetcher := &fakeFetcher{
		dir: t.TempDir(),
		// Earlier rows finish last.
		delay: func(filePath string) time.Duration {
			var i int
			_, _ = fmt.Sscanf(filePath, "doc/%d.pdf", &i)
			return time.Duration(12-i) * 2 * time.Millisecond
		},
	}
	archiver := &fakeArchiver{}
	extractor := NewOrderExtractor(fetcher, archiver, 5, nil)

	orders := extractor.Extract(context.Background(), rowsFor(12))
	require.Len(t, orders, 12)
	for i, o := range orders {
		assert.Equal(t, fmt.Sprint(i+1), o.SequenceNumber)
		require.NotNil(t, o.DocumentURL)
		assert.Equal(t, fmt.Sprintf("https://archive.test/doc/%d.pdf", i), *o.DocumentURL)
		assert.Equal(t, crawler.DocumentArchived, o.DocumentStatus)
	}
	assert.LessOrEqual(t, archiver.peak.Load(), int32(5))

	for _, local := range fetcher.created {
		assert.NoFileExists(t, local)
	}
}

func TestExtractDropsMalformedRows(t *testing.T) {
	rows := rowsFor(3)
	rows[1].cells = []string{"2", "case", "date"}
	extractor := NewOrderExtractor(&fakeFetcher{dir: t.TempDir()}, &fakeArchiver{}, 2, nil)

	orders := extractor.Extract(context.Background(), rows)
	require.Len(t, orders, 2)
	assert.Equal(t, "1", orders[0].SequenceNumber)
	assert.Equal(t, "3", orders[1].SequenceNumber)
}

func TestExtractRowWithoutLink(t *testing.T) {
	extractor := NewOrderExtractor(&fakeFetcher{dir: t.TempDir()}, &fakeArchiver{}, 1, nil)
	record, err := extractor.extractRow(context.Background(), orderRow{
		cells: []string{"1", "CS(COMM) 1/2023", "01/01/2024", "corr", "hindi"},
	})
	require.NoError(t, err)
	assert.Nil(t, record.DocumentURL)
	assert.Equal(t, crawler.DocumentNone, record.DocumentStatus)
	assert.Equal(t, "CS(COMM) 1/2023", record.CaseNumber)
	assert.Equal(t, "01/01/2024", record.OrderDate)
	assert.Equal(t, "corr", record.Corrigenda)
	assert.Equal(t, "hindi", record.HindiOrder)
}

func TestExtractRowMalformed(t *testing.T) {
	extractor := NewOrderExtractor(&fakeFetcher{dir: t.TempDir()}, &fakeArchiver{}, 1, nil)
	_, err := extractor.extractRow(context.Background(), orderRow{cells: []string{"1", "2", "3", "4"}})
	require.ErrorIs(t, err, crawler.ErrMalformed)
}

func TestExtractRowDocumentFailures(t *testing.T) {
	fetchErr := fmt.Errorf("post: %w", crawler.ErrTransport)
	uploadErr := fmt.Errorf("upload: %w", crawler.ErrStorage)

	tests := []struct {
		name     string
		onclick  string
		fetcher  *fakeFetcher
		archiver *fakeArchiver
		kind     crawler.Kind
	}{
		{
			name:     "unparseable link",
			onclick:  "openOrder()",
			fetcher:  &fakeFetcher{},
			archiver: &fakeArchiver{},
			kind:     crawler.KindMalformed,
		},
		{
			name:     "fetch failure",
			onclick:  "openOrder('a.pdf')",
			fetcher:  &fakeFetcher{errFor: map[string]error{"a.pdf": fetchErr}},
			archiver: &fakeArchiver{},
			kind:     crawler.KindTransport,
		},
		{
			name:     "upload failure",
			onclick:  "openOrder('a.pdf')",
			fetcher:  &fakeFetcher{},
			archiver: &fakeArchiver{err: uploadErr},
			kind:     crawler.KindStorage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fetcher.dir = t.TempDir()
			extractor := NewOrderExtractor(tt.fetcher, tt.archiver, 1, nil)
			record, err := extractor.extractRow(context.Background(), orderRow{
				cells:   []string{"1", "c", "d", "", ""},
				hasLink: true,
				onclick: tt.onclick,
			})
			require.NoError(t, err)
			assert.Nil(t, record.DocumentURL)
			assert.Equal(t, crawler.DocumentFailed, record.DocumentStatus)
			assert.Equal(t, tt.kind, crawler.KindOf(record.DocumentErr))
			for _, local := range tt.fetcher.created {
				assert.NoFileExists(t, local)
			}
		})
	}
}

func TestExtractEmpty(t *testing.T) {
	extractor := NewOrderExtractor(nil, nil, 0, nil)
	orders := extractor.Extract(context.Background(), nil)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
	assert.Equal(t, 5, extractor.width)
}
