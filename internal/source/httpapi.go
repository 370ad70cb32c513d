package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reelscout/discovery-cli/internal/model"
)

// HTTPOptions configures an HTTPAdapter.
type HTTPOptions struct {
	UserAgent string
	APIKey    string
	Timeout   time.Duration
	// RateLimit caps outbound requests per second; 0 disables limiting.
	RateLimit rate.Limit
	Burst     int
	// MaxAttempts is the total number of tries per call, retrying only
	// transient failures. Default 2.
	MaxAttempts int
}

// HTTPAdapter queries a provider exposing the generic JSON search contract:
//
//	GET {endpoint}/search?q=...          -> {"results": [RawResult, ...]}
//	GET {endpoint}/availability?region=  -> {"availability": [Availability, ...]}
//	GET {endpoint}/ping                  -> 200
//
// It owns transport, auth header, and rate limiting; provider-specific payload
// mapping belongs in dedicated adapters built on the same shape.
type HTTPAdapter struct {
	id       string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	opts     HTTPOptions
}

// NewHTTPAdapter creates an adapter for a JSON API source.
func NewHTTPAdapter(id, endpoint string, opts HTTPOptions) *HTTPAdapter {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "discovery-cli/1.0"
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 2
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.RateLimit, burst)
	}
	return &HTTPAdapter{
		id:       id,
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: opts.Timeout},
		limiter:  limiter,
		opts:     opts,
	}
}

// ID implements Adapter.
func (a *HTTPAdapter) ID() string { return a.id }

// Search implements Adapter.
func (a *HTTPAdapter) Search(ctx context.Context, q Query) ([]model.RawResult, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if f := q.Filters; f != nil {
		if len(f.Genres) > 0 {
			params.Set("genres", strings.Join(f.Genres, ","))
		}
		if f.YearFrom > 0 {
			params.Set("year_from", strconv.Itoa(f.YearFrom))
		}
		if f.YearTo > 0 {
			params.Set("year_to", strconv.Itoa(f.YearTo))
		}
		if f.Region != "" {
			params.Set("region", f.Region)
		}
		if f.Language != "" {
			params.Set("language", f.Language)
		}
		if f.ContentType != "" {
			params.Set("type", string(f.ContentType))
		}
	}

	var envelope struct {
		Results []model.RawResult `json:"results"`
	}
	if err := a.getJSON(ctx, "/search?"+params.Encode(), &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

// Availability implements AvailabilityProvider.
func (a *HTTPAdapter) Availability(ctx context.Context, region string) ([]model.Availability, error) {
	params := url.Values{}
	params.Set("region", region)

	var envelope struct {
		Availability []model.Availability `json:"availability"`
	}
	if err := a.getJSON(ctx, "/availability?"+params.Encode(), &envelope); err != nil {
		return nil, err
	}
	return envelope.Availability, nil
}

// Probe implements Prober with a cheap ping round trip.
func (a *HTTPAdapter) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"/ping", nil)
	if err != nil {
		return eris.Wrapf(err, "source %s: build probe request", a.id)
	}
	a.setHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return Classify(a.id, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &TransportError{
			SourceID:   a.id,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("probe returned %d", resp.StatusCode),
		}
	}
	return nil
}

// getJSON performs a GET against the adapter endpoint, retrying transient
// failures up to MaxAttempts, and decodes the response into out.
func (a *HTTPAdapter) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt < a.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			zap.L().Debug("source: retrying request",
				zap.String("source", a.id),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr),
			)
		}
		lastErr = a.doOnce(ctx, path, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (a *HTTPAdapter) doOnce(ctx context.Context, path string, out any) error {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return Classify(a.id, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+path, nil)
	if err != nil {
		return eris.Wrapf(err, "source %s: build request", a.id)
	}
	a.setHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return Classify(a.id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &TransportError{
			SourceID:   a.id,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{SourceID: a.id, Err: eris.Wrap(err, "decode response")}
	}
	return nil
}

func (a *HTTPAdapter) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", a.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if a.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.opts.APIKey)
	}
}
