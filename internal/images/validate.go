package images

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Prober confirms an image candidate exists. Failures are per-candidate
// and non-fatal: a failed probe just drops that candidate.
type Prober interface {
	Probe(ctx context.Context, url string) bool
}

// HTTPProber issues HEAD requests and accepts 2xx responses whose
// Content-Type, when present, is an image.
type HTTPProber struct {
	Client *http.Client
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	return &HTTPProber{Client: &http.Client{Timeout: timeout}}
}

func (p *HTTPProber) Probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}

	contentType := resp.Header.Get("Content-Type")
	return contentType == "" || strings.HasPrefix(contentType, "image/")
}

// validateCandidates probes candidates with bounded concurrency and
// returns the survivors in input order.
func validateCandidates(ctx context.Context, prober Prober, candidates []string, concurrency int) []string {
	if concurrency < 1 {
		concurrency = 1
	}

	ok := make([]bool, len(candidates))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, candidate := range candidates {
		wg.Add(1)
		go func(i int, candidate string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			ok[i] = prober.Probe(ctx, candidate)
		}(i, candidate)
	}
	wg.Wait()

	var valid []string
	for i, candidate := range candidates {
		if ok[i] {
			valid = append(valid, candidate)
		}
	}

	return valid
}
