// Package fetcher implements the single-URL HTTP GET contract from §4.1:
// retry/backoff with jitter, bounded redirects with no scheme downgrade, a
// streaming content-length cap, and per-host politeness delay.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dno-gatherer/internal/config"
	"github.com/ternarybob/dno-gatherer/internal/interfaces"
	"github.com/ternarybob/dno-gatherer/internal/model"
)

// HTTPFetcher is the default interfaces.Fetcher implementation.
type HTTPFetcher struct {
	client      *http.Client
	cfg         config.FetcherConfig
	retry       *RetryPolicy
	rateLimiter *RateLimiter
	logger      arbor.ILogger
}

// New constructs an HTTPFetcher from cfg. A single *http.Client and
// RateLimiter are shared across all Fetch calls, per the constructor-
// injection discipline in §9.
func New(cfg config.FetcherConfig, logger arbor.ILogger) *HTTPFetcher {
	f := &HTTPFetcher{
		cfg:         cfg,
		retry:       NewRetryPolicy(cfg.MaxRetries+1, cfg.BaseBackoff, cfg.MaxBackoff, cfg.JitterFraction),
		rateLimiter: NewRateLimiter(cfg.PerHostDelay),
		logger:      logger,
	}
	f.client = &http.Client{
		Timeout:       cfg.RequestTimeout,
		CheckRedirect: f.checkRedirect,
	}
	return f
}

func (f *HTTPFetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= f.cfg.MaxRedirects {
		return model.NewPermanentFetch(fmt.Sprintf("redirect loop: exceeded %d redirects", f.cfg.MaxRedirects))
	}
	if via[0].URL.Scheme == "https" && req.URL.Scheme == "http" {
		return model.NewPermanentFetch("scheme downgrade on redirect")
	}
	return nil
}

// Fetch issues one GET, retrying transient failures per RetryPolicy.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, ifModifiedSince time.Time) (*interfaces.FetchResult, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, model.NewBadInput("invalid url: " + rawURL)
	}

	var lastErr error
	var lastStatus int

	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if err := f.rateLimiter.Wait(ctx, rawURL); err != nil {
			return nil, model.NewCancelled("rate limiter wait cancelled")
		}

		start := time.Now()
		result, status, err := f.doOnce(ctx, rawURL, ifModifiedSince)
		elapsed := time.Since(start)

		if err == nil {
			result.Elapsed = elapsed
			return result.FetchResult, nil
		}

		lastErr = err
		lastStatus = status

		var retryAfter time.Duration
		if status == 429 && result != nil {
			retryAfter = parseRetryAfter(result.retryAfterHeader)
		}

		if !f.retry.ShouldRetry(attempt, status, unwrapTransport(err)) {
			return nil, classify(status, err)
		}

		backoff := f.retry.CalculateBackoff(attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}
		f.logger.Debug().Int("attempt", attempt+1).Str("url", rawURL).Dur("backoff", backoff).Msg("retrying fetch")
		if err := f.retry.Sleep(ctx, backoff); err != nil {
			return nil, model.NewCancelled("fetch cancelled during backoff")
		}
	}

	return nil, classify(lastStatus, lastErr)
}

// internalResult carries the Retry-After header alongside the public result
// so Fetch can apply it without growing interfaces.FetchResult's surface.
type internalResult struct {
	*interfaces.FetchResult
	retryAfterHeader string
}

func (f *HTTPFetcher) doOnce(ctx context.Context, rawURL string, ifModifiedSince time.Time) (*internalResult, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, model.NewBadInput("failed to build request: " + err.Error())
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html, application/pdf;q=0.9, */*;q=0.1")
	if !ifModifiedSince.IsZero() {
		req.Header.Set("If-Modified-Since", ifModifiedSince.UTC().Format(http.TimeFormat))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		var pe *model.PipelineError
		if errors.As(err, &pe) {
			return nil, 0, pe
		}
		return nil, 0, model.NewTransient("transport error", err)
	}
	defer resp.Body.Close()

	if f.cfg.MaxBodyBytes > 0 && resp.ContentLength > f.cfg.MaxBodyBytes {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1))
		return nil, resp.StatusCode, model.NewPermanentFetch("oversize body (content-length)")
	}

	limited := io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, resp.StatusCode, model.NewTransient("body read error", err)
	}
	if f.cfg.MaxBodyBytes > 0 && int64(len(body)) > f.cfg.MaxBodyBytes {
		return nil, resp.StatusCode, model.NewPermanentFetch("oversize body (streamed)")
	}

	result := &internalResult{
		FetchResult: &interfaces.FetchResult{
			Status:       resp.StatusCode,
			Body:         body,
			ContentType:  resp.Header.Get("Content-Type"),
			EffectiveURL: resp.Request.URL.String(),
		},
		retryAfterHeader: resp.Header.Get("Retry-After"),
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return result, resp.StatusCode, nil
	}
	return result, resp.StatusCode, fmt.Errorf("http status %d", resp.StatusCode)
}

func classify(status int, err error) error {
	var pe *model.PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	if status >= 500 && status < 600 {
		return model.NewTransient(fmt.Sprintf("server error %d", status), err)
	}
	if status == 408 || status == 429 {
		return model.NewTransient(fmt.Sprintf("retryable status %d", status), err)
	}
	if status >= 400 && status < 500 {
		return model.NewPermanentFetch(fmt.Sprintf("http status %d", status))
	}
	return model.NewTransient("transport error", err)
}

func unwrapTransport(err error) error {
	var pe *model.PipelineError
	if errors.As(err, &pe) {
		return pe.Cause
	}
	return err
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}
