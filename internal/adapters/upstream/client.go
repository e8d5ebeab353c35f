// Package upstream is the HTTP client for the inventory content API that
// feeds the ingestor.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"hotel_search/internal/adapters/observability"
	"hotel_search/internal/domain"
)

const (
	service     = "inventory"
	maxAttempts = 4
)

type Client struct {
	base string
	key  string
	hc   *http.Client
	rl   *rate.Limiter

	payloads   domain.Cache
	payloadTTL time.Duration
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		key:  key,
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// WithPayloadCache keeps fetched payloads for ttl so an id listed twice in one
// run costs a single request.
func (c *Client) WithPayloadCache(cache domain.Cache, ttl time.Duration) *Client {
	c.payloads, c.payloadTTL = cache, ttl
	return c
}

// GetProperty returns the raw property payload. A 404 on both the current and
// the legacy path maps to domain.ErrNotFound; 401/403 map to domain.ErrForbidden.
func (c *Client) GetProperty(ctx context.Context, id int64) (map[string]any, error) {
	key := "property:" + strconv.FormatInt(id, 10)
	if c.payloads != nil {
		var cached map[string]any
		if ok, _ := c.payloads.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	var (
		out map[string]any
		err error
	)
	for _, path := range []string{"/properties/", "/property/"} {
		out, err = c.fetch(ctx, c.base+path+strconv.FormatInt(id, 10))
		if !errors.Is(err, domain.ErrNotFound) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	if c.payloads != nil {
		if err := c.payloads.Set(ctx, key, out, int(c.payloadTTL.Seconds())); err != nil {
			log.Warn().Err(err).Int64("id", id).Msg("payload cache set failed")
		}
	}
	return out, nil
}

// fetch GETs url under the rate limit. 429 and gateway-class 5xx are retried
// with exponential backoff; a Retry-After header replaces the next interval.
func (c *Client) fetch(ctx context.Context, url string) (map[string]any, error) {
	var out map[string]any
	bo := &retryAfterBackOff{BackOff: backoff.WithMaxRetries(newBackOff(), maxAttempts-1)}

	op := func() error {
		if err := c.rl.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-API-Key", c.key)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "hotel-search-ingestor/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(service, "property", 0, time.Since(start))
			return err
		}
		defer resp.Body.Close()
		observability.ObserveExternal(service, "property", resp.StatusCode, time.Since(start))

		switch s := resp.StatusCode; {
		case s == http.StatusOK:
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode %s: %w", url, err))
			}
			return nil
		case s == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("%s: %w", url, domain.ErrNotFound))
		case s == http.StatusUnauthorized || s == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%s: status %d: %w", url, s, domain.ErrForbidden))
		case retryable(s):
			bo.next = retryAfter(resp.Header.Get("Retry-After"))
			return fmt.Errorf("%s: remote %d", url, s)
		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return backoff.Permanent(fmt.Errorf("%s: bad status %d: %s", url, s, strings.TrimSpace(string(b))))
		}
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = time.Minute
	return b
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfterBackOff lets a server-supplied delay override one interval.
type retryAfterBackOff struct {
	backoff.BackOff
	next time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if d == backoff.Stop || b.next <= 0 {
		return d
	}
	d, b.next = b.next, 0
	return d
}

// retryAfter accepts delta-seconds or an HTTP-date; anything else is 0.
func retryAfter(h string) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		return time.Until(t)
	}
	return 0
}
