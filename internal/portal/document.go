package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

// DocumentFetcher downloads order documents into a temp directory. Each
// download gets a fresh name from ids and is owned by the caller.
type DocumentFetcher struct {
	client  *Client
	ids     crawler.IDGenerator
	tempDir string
}

// NewDocumentFetcher builds a fetcher writing to tempDir.
func NewDocumentFetcher(client *Client, ids crawler.IDGenerator, tempDir string) *DocumentFetcher {
	if tempDir == "" {
		tempDir = "pdf"
	}
	return &DocumentFetcher{client: client, ids: ids, tempDir: tempDir}
}

// Fetch posts filePath to the document endpoint and streams the body to a
// new local file. On any failure no file is left behind.
func (f *DocumentFetcher) Fetch(ctx context.Context, filePath string) (string, error) {
	if err := f.client.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("post %s: %w: %w", documentPath, crawler.ErrTransport, err)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	form := url.Values{"filepath": {filePath}}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, f.client.endpoint(documentPath), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build document request: %w: %w", crawler.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if f.client.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.client.cfg.UserAgent)
	}

	resp, err := f.client.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post %s: %w: %w", documentPath, crawler.ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := checkStatus(resp.StatusCode); err != nil {
		return "", fmt.Errorf("post %s: %w: %w", documentPath, crawler.ErrTransport, err)
	}

	body := newStallReader(resp.Body, f.client.cfg.Timeout, cancel)
	defer body.stop()
	localPath, err := f.create(body)
	if err != nil {
		if body.stalled() {
			return "", fmt.Errorf("%w: no data for %s", err, f.client.cfg.Timeout)
		}
		return "", err
	}
	return localPath, nil
}

// stallReader cancels the download when no bytes arrive for idle. A slow but
// steady stream may take as long as it needs.
type stallReader struct {
	r     io.Reader
	idle  time.Duration
	timer *time.Timer
	once  sync.Once
	fired chan struct{}
}

func newStallReader(r io.Reader, idle time.Duration, cancel context.CancelFunc) *stallReader {
	s := &stallReader{r: r, idle: idle, fired: make(chan struct{})}
	s.timer = time.AfterFunc(idle, func() {
		s.once.Do(func() { close(s.fired) })
		cancel()
	})
	return s
}

func (s *stallReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if n > 0 {
		s.timer.Reset(s.idle)
	}
	return n, err
}

func (s *stallReader) stop() {
	s.timer.Stop()
}

func (s *stallReader) stalled() bool {
	select {
	case <-s.fired:
		return true
	default:
		return false
	}
}

// create writes r to a uniquely named file under tempDir.
func (f *DocumentFetcher) create(r io.Reader) (string, error) {
	id, err := f.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("name temp document: %w: %w", crawler.ErrStorage, err)
	}
	if err := os.MkdirAll(f.tempDir, 0o750); err != nil {
		return "", fmt.Errorf("create temp dir: %w: %w", crawler.ErrStorage, err)
	}
	localPath := filepath.Join(f.tempDir, id+".pdf")

	// #nosec G304 -- name is generated, not taken from the response.
	file, err := os.OpenFile(localPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create temp document: %w: %w", crawler.ErrStorage, err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(localPath)
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return "", fmt.Errorf("write temp document: %w: %w", crawler.ErrStorage, err)
		}
		return "", fmt.Errorf("stream document: %w: %w", crawler.ErrTransport, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(localPath)
		return "", fmt.Errorf("close temp document: %w: %w", crawler.ErrStorage, err)
	}
	return localPath, nil
}
