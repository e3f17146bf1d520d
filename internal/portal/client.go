package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
	"github.com/JakeFAU/dhc-order-crawler/internal/policy/ratelimit"
)

// Portal endpoints, relative to Config.BaseURL.
const (
	launchPath   = "/LaunchCaseWise.do"
	lookupPath   = "/casetype1.do"
	documentPath = "/GetFile.do"
)

// Config controls how the portal is reached.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// SCode and FFlag are fixed form fields the lookup endpoint expects.
	SCode string
	FFlag string
}

// Client is one portal session. Every request made through it, including
// document downloads, shares a cookie jar and transport, so cookies set
// while obtaining the token stay attached to later lookups.
type Client struct {
	cfg     Config
	base    *colly.Collector
	http    *http.Client
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// NewClient builds a session against cfg.BaseURL. limiter may be nil.
func NewClient(cfg Config, limiter *ratelimit.Limiter, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("portal base url is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	transport := newHTTPTransport(cfg.Timeout)

	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	// Every status reaches OnResponse; checkStatus decides what is a failure.
	c.ParseHTTPErrorResponse = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.WithTransport(transport)
	c.SetCookieJar(jar)
	c.SetRequestTimeout(cfg.Timeout)

	return &Client{
		cfg:     cfg,
		base:    c,
		http:    &http.Client{Transport: transport, Jar: jar},
		limiter: limiter,
		logger:  logger,
	}, nil
}

func (c *Client) endpoint(path string) string {
	return c.cfg.BaseURL + path
}

// post submits form to path and returns the response body. Connection
// failures, timeouts and non-2xx statuses all wrap crawler.ErrTransport.
func (c *Client) post(ctx context.Context, path string, form map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("post %s: %w: %w", path, crawler.ErrTransport, err)
	}
	collector := c.base.Clone()

	var (
		body    []byte
		respErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		if err := checkStatus(r.StatusCode); err != nil {
			respErr = err
			return
		}
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		respErr = responseError(r, err)
	})

	err := c.run(ctx, func() error {
		return collector.Post(c.endpoint(path), form)
	})
	if err == nil {
		err = respErr
	}
	if err != nil {
		return nil, fmt.Errorf("post %s: %w: %w", path, crawler.ErrTransport, err)
	}
	return body, nil
}

// run executes a blocking collector call and gives up early when ctx ends.
// The underlying request still finishes on its own timeout.
func (c *Client) run(ctx context.Context, call func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("request canceled: %w", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- call()
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

// checkStatus accepts the whole 2xx range, the same rule document downloads use.
func checkStatus(code int) error {
	if code < http.StatusOK || code > 299 {
		return fmt.Errorf("unexpected status %d", code)
	}
	return nil
}

func responseError(r *colly.Response, err error) error {
	if r == nil || r.StatusCode == 0 {
		return err
	}
	return fmt.Errorf("status %d: %w", r.StatusCode, err)
}

// newHTTPTransport bounds connect, handshake and the wait for response
// headers. Body reads are bounded by the caller: colly's request timeout for
// pages, the stall watchdog for document streams.
func newHTTPTransport(headerTimeout time.Duration) *http.Transport {
	return &http.Transport{
		ResponseHeaderTimeout: headerTimeout,
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}
}
