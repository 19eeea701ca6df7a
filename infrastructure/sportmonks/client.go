package sportmonks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"betledger/domain/entities"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Options configure the provider client
type Options struct {
	BaseURL        string
	APIToken       string
	Timeout        time.Duration
	RatePerMinute  int
	MaxConcurrency int
	Registerer     prometheus.Registerer
}

// Client fetches fixtures from the SportMonks cricket v2 API. Every call
// spends from a shared budget: a request rate, a concurrency cap and
// coalescing of identical in-flight requests.
type Client struct {
	baseURL  string
	token    string
	timeout  time.Duration
	http     *http.Client
	limiter  *rate.Limiter
	inflight *semaphore.Weighted
	group    singleflight.Group
	metrics  *clientMetrics
}

// NewClient creates a new provider client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RatePerMinute <= 0 {
		opts.RatePerMinute = 60
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.APIToken,
		timeout:  opts.Timeout,
		http:     &http.Client{},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), 1),
		inflight: semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		metrics:  newClientMetrics(opts.Registerer),
	}
}

// FetchMatchFacts returns a normalised facts snapshot for the match.
// Failures come back as *entities.ProviderError.
func (c *Client) FetchMatchFacts(ctx context.Context, matchID int64, includes []entities.FactCategory) (*entities.MatchFacts, error) {
	include := includeParam(includes)
	key := strconv.FormatInt(matchID, 10) + "?" + include

	// Do runs fn on the leader's goroutine; shared is true for the leader too
	leader := false
	v, err, shared := c.group.Do(key, func() (any, error) {
		leader = true
		return c.fetch(ctx, matchID, include)
	})
	if shared && !leader {
		c.metrics.coalesced.Inc()
	}
	if err != nil {
		return nil, err
	}

	return v.(*fixture).normalise(includes), nil
}

func (c *Client) fetch(ctx context.Context, matchID int64, include string) (*fixture, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &entities.ProviderError{MatchID: matchID, Temporary: true, Err: fmt.Errorf("rate budget: %w", err)}
	}
	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return nil, &entities.ProviderError{MatchID: matchID, Temporary: true, Err: fmt.Errorf("concurrency budget: %w", err)}
	}
	defer c.inflight.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fixtureURL(matchID, include), nil)
	if err != nil {
		return nil, &entities.ProviderError{MatchID: matchID, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	c.metrics.latency.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.requests.WithLabelValues(outcomeTransport).Inc()
		// url.Error carries the full URL, token included
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &entities.ProviderError{MatchID: matchID, Temporary: true, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		c.metrics.requests.WithLabelValues(outcomeHTTPError).Inc()
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		log.WithFields(log.Fields{
			"matchID": matchID,
			"status":  res.StatusCode,
		}).Warn("Provider returned non-200")
		return nil, &entities.ProviderError{
			MatchID:    matchID,
			StatusCode: res.StatusCode,
			Temporary:  res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	var envelope fixtureResponse
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		c.metrics.requests.WithLabelValues(outcomeDecode).Inc()
		return nil, &entities.ProviderError{MatchID: matchID, StatusCode: res.StatusCode, Temporary: true, Err: fmt.Errorf("failed to decode fixture: %w", err)}
	}
	if envelope.Data == nil {
		c.metrics.requests.WithLabelValues(outcomeNotFound).Inc()
		return nil, &entities.ProviderError{MatchID: matchID, StatusCode: res.StatusCode, Err: errors.New("fixture has no data")}
	}

	c.metrics.requests.WithLabelValues(outcomeOK).Inc()
	log.WithFields(log.Fields{
		"matchID": matchID,
		"include": include,
		"status":  envelope.Data.Status,
	}).Debug("Fetched fixture")

	return envelope.Data, nil
}

func (c *Client) fixtureURL(matchID int64, include string) string {
	query := url.Values{}
	if include != "" {
		query.Set("include", include)
	}
	query.Set("api_token", c.token)
	return fmt.Sprintf("%s/fixtures/%d?%s", c.baseURL, matchID, query.Encode())
}
