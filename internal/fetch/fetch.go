// Package fetch retrieves raw product-page HTML. The direct fetcher
// lives here; the rendered strategy is internal/browser, which
// implements the same Fetcher contract.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/maltedev/universal-product-parser/internal/models"
)

var (
	// ErrBlocked marks an anti-bot response (403/429 or a challenge
	// page); the orchestrator escalates to the rendered strategy.
	ErrBlocked = errors.New("fetch blocked")
	// ErrTimeout marks a fetch that exceeded its strategy timeout.
	ErrTimeout = errors.New("fetch timed out")
)

// Result is one strategy's raw output: the HTML plus, for rendered
// fetches, evidence pulled from in-page JS state.
type Result struct {
	HTML       string
	StatusCode int
	Strategy   models.Strategy
	Hydration  *models.EvidenceBundle
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Result, error)
	Strategy() models.Strategy
}

// Direct issues a single GET with realistic desktop browser headers.
type Direct struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func NewDirect(timeout time.Duration, userAgent string) *Direct {
	return &Direct{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		timeout:   timeout,
	}
}

func (d *Direct) Strategy() models.Strategy {
	return models.StrategyDirect
}

func (d *Direct) Fetch(ctx context.Context, url string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", url, err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("direct fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if isBlockedStatus(resp.StatusCode) {
		return nil, fmt.Errorf("%w: status %d", ErrBlocked, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	html := string(body)
	if looksLikeChallenge(html) {
		return nil, fmt.Errorf("%w: challenge page detected", ErrBlocked)
	}

	return &Result{
		HTML:       html,
		StatusCode: resp.StatusCode,
		Strategy:   models.StrategyDirect,
	}, nil
}

func isBlockedStatus(status int) bool {
	return status == http.StatusForbidden ||
		status == http.StatusTooManyRequests ||
		status == http.StatusServiceUnavailable
}

// looksLikeChallenge spots anti-bot interstitials served with a 200.
func looksLikeChallenge(html string) bool {
	if len(html) > 4096 {
		html = html[:4096]
	}
	lower := strings.ToLower(html)
	markers := []string{
		"cf-challenge",
		"checking your browser",
		"are you a robot",
		"captcha-delivery",
		"press & hold",
	}
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
