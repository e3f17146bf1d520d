package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

const captchaSelector = `a[onclick="playAudio()"]`

// TokenSource reads the session token from the portal's case search page,
// where it is the text of the audio captcha trigger. A non-empty static
// token skips the request entirely.
type TokenSource struct {
	client *Client
	static string
}

// NewTokenSource returns a TokenSource bound to client.
func NewTokenSource(client *Client, static string) *TokenSource {
	return &TokenSource{client: client, static: strings.TrimSpace(static)}
}

// Token returns the session token. Every failure wraps crawler.ErrToken.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	if t.static != "" {
		return t.static, nil
	}
	if t.client == nil {
		return "", fmt.Errorf("%w: no portal client", crawler.ErrToken)
	}
	token, err := t.client.captcha(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", crawler.ErrToken, err)
	}
	return token, nil
}

func (c *Client) captcha(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("get %s: %w: %w", launchPath, crawler.ErrTransport, err)
	}
	collector := c.base.Clone()

	var (
		token   string
		found   bool
		respErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		if err := checkStatus(r.StatusCode); err != nil {
			respErr = err
		}
	})
	collector.OnHTML(captchaSelector, func(e *colly.HTMLElement) {
		if found || respErr != nil {
			return
		}
		found = true
		token = strings.TrimSpace(e.Text)
	})
	collector.OnError(func(r *colly.Response, err error) {
		respErr = responseError(r, err)
	})

	err := c.run(ctx, func() error {
		return collector.Visit(c.endpoint(launchPath))
	})
	if err == nil {
		err = respErr
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w: %w", launchPath, crawler.ErrTransport, err)
	}
	if !found {
		return "", fmt.Errorf("get %s: %w", launchPath, errors.New("captcha trigger not found"))
	}
	if token == "" {
		return "", fmt.Errorf("get %s: %w", launchPath, errors.New("captcha trigger is empty"))
	}
	c.logger.Debug("session token acquired", zap.Int("length", len(token)))
	return token, nil
}
