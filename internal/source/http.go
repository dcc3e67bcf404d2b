package source

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/geotarget/internal/resilience"
)

// HTTPFetcher downloads sources over HTTP with retry and a request rate cap.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	policy    resilience.Policy
	userAgent string
}

// NewHTTPFetcher creates an HTTPFetcher. A zero timeout means 60s.
func NewHTTPFetcher(timeout time.Duration, policy resilience.Policy) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	policy.OnRetry = resilience.LogRetries("http", "source download")
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(5, 1),
		policy:    policy,
		userAgent: "geotarget/1.0",
	}
}

// Download fetches rawURL and returns the response body. Throttling and
// server errors are retried.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return resilience.Retry(ctx, f.policy, func(ctx context.Context) (io.ReadCloser, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "source: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "source: create request")
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(err, "source: download")
			}
			return nil, resilience.Transient(eris.Wrap(err, "source: download"), 0)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			err := eris.Errorf("source: unexpected status %d from %s", resp.StatusCode, rawURL)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.Transient(err, resp.StatusCode)
			}
			return nil, err
		}
		return resp.Body, nil
	})
}
