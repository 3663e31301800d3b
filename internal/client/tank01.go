package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hitrivals/schedule/internal/metrics"
	"hitrivals/schedule/internal/models"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNoData is returned once every attempt of a request has failed
	ErrNoData = errors.New("no data from sports API")

	// ErrUndecodable is returned when a payload matches none of the known shapes
	ErrUndecodable = errors.New("payload matched no known schedule shape")
)

const (
	DefaultMLBBaseURL = "https://tank01-mlb-live-in-game-real-time-statistics.p.rapidapi.com"
	DefaultMLBHost    = "tank01-mlb-live-in-game-real-time-statistics.p.rapidapi.com"
	DefaultNBABaseURL = "https://tank01-fantasy-stats.p.rapidapi.com"
	DefaultNBAHost    = "tank01-fantasy-stats.p.rapidapi.com"

	defaultTimeout       = 10 * time.Second
	defaultMaxAttempts   = 3
	defaultRetryDelay    = 1 * time.Second
	defaultMaxConcurrent = 20
)

// Config holds everything needed to talk to the Tank01 APIs
type Config struct {
	APIKey     string
	MLBBaseURL string
	MLBHost    string
	NBABaseURL string
	NBAHost    string

	Timeout       time.Duration
	MaxAttempts   int
	RetryDelay    time.Duration
	MaxConcurrent int

	// Location is the time zone calendar days are expressed in
	Location *time.Location
}

type endpoint struct {
	baseURL string
	host    string
}

// Client is the Tank01 sports statistics API client
type Client struct {
	apiKey      string
	endpoints   map[models.League]endpoint
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	maxAttempts int
	retryDelay  time.Duration
	loc         *time.Location

	// sleep waits between attempts; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new API client. Zero values in cfg fall back to defaults.
func NewClient(cfg Config) *Client {
	if cfg.MLBBaseURL == "" {
		cfg.MLBBaseURL = DefaultMLBBaseURL
	}
	if cfg.MLBHost == "" {
		cfg.MLBHost = DefaultMLBHost
	}
	if cfg.NBABaseURL == "" {
		cfg.NBABaseURL = DefaultNBABaseURL
	}
	if cfg.NBAHost == "" {
		cfg.NBAHost = DefaultNBAHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	rateLimiter := make(chan struct{}, cfg.MaxConcurrent)
	for i := 0; i < cfg.MaxConcurrent; i++ {
		rateLimiter <- struct{}{}
	}

	return &Client{
		apiKey: cfg.APIKey,
		endpoints: map[models.League]endpoint{
			models.LeagueMLB: {baseURL: strings.TrimRight(cfg.MLBBaseURL, "/"), host: cfg.MLBHost},
			models.LeagueNBA: {baseURL: strings.TrimRight(cfg.NBABaseURL, "/"), host: cfg.NBAHost},
		},
		rateLimiter: rateLimiter,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		loc:         cfg.Location,
		sleep:       sleepContext,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Location returns the time zone the client formats dates in
func (c *Client) Location() *time.Location {
	return c.loc
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchSchedule retrieves and decodes the raw game records for one league and
// calendar day. Decode failures consume attempts just like HTTP failures.
func (c *Client) FetchSchedule(ctx context.Context, league models.League, date time.Time) ([]models.GameRecord, error) {
	path := "getMLBGamesForDate"
	if league == models.LeagueNBA {
		path = "getNBAGamesForDate"
	}
	params := map[string]string{"gameDate": date.In(c.loc).Format("20060102")}

	var (
		records []models.GameRecord
		shape   Shape
	)
	err := c.get(ctx, league, path, params, func(body []byte) error {
		r, s, err := DecodeRecords(body)
		if err != nil {
			return err
		}
		records, shape = r, s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s schedule: %w", league, err)
	}

	metrics.RecordDecode(league.String(), shape.String())
	log.Debug().
		Str("league", league.String()).
		Str("date", params["gameDate"]).
		Str("shape", shape.String()).
		Int("records", len(records)).
		Msg("Schedule decoded")

	return records, nil
}

// get performs a GET request with bounded exponential backoff. accept is
// called with every non-empty 2xx body; a non-nil result counts as a failed
// attempt. Retry k (k >= 1) waits retryDelay * 2^(k-1) first.
func (c *Client) get(ctx context.Context, league models.League, path string, params map[string]string, accept func([]byte) error) error {
	ep, ok := c.endpoints[league]
	if !ok {
		return fmt.Errorf("no endpoint configured for league %q", league)
	}
	url := fmt.Sprintf("%s/%s", ep.baseURL, path)

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			if err := c.sleep(ctx, backoff); err != nil {
				return err
			}
		}

		reason := ""
		body, status, err := c.request(ctx, ep, url, path, params, attempt)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("API request failed: %w", err)
			reason = "transport"
		case status < 200 || status > 299:
			lastErr = fmt.Errorf("API returned status %d", status)
			reason = "status"
		case len(bytes.TrimSpace(body)) == 0:
			lastErr = errors.New("API returned an empty body")
			reason = "empty"
		default:
			if err := accept(body); err != nil {
				lastErr = err
				reason = "decode"
			} else {
				return nil
			}
		}

		if attempt < c.maxAttempts-1 {
			metrics.RecordRetry(path, reason)
			log.Warn().
				Err(lastErr).
				Str("url", url).
				Str("reason", reason).
				Int("attempt", attempt+1).
				Msg("API request failed, will retry")
		}
	}

	log.Warn().
		Err(lastErr).
		Str("url", url).
		Int("attempts", c.maxAttempts).
		Msg("No more retry attempts left")
	return fmt.Errorf("%w after %d attempts: %v", ErrNoData, c.maxAttempts, lastErr)
}

// request performs a single HTTP round trip
func (c *Client) request(ctx context.Context, ep endpoint, url, path string, params map[string]string, attempt int) ([]byte, int, error) {
	// Rate limiting: acquire semaphore
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case <-c.rateLimiter:
	}
	defer func() { c.rateLimiter <- struct{}{} }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", ep.host)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "HitRivals-Schedule/1.0")

	if len(params) > 0 {
		q := req.URL.Query()
		for key, value := range params {
			q.Add(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}

	log.Debug().
		Str("url", url).
		Str("method", req.Method).
		Int("attempt", attempt+1).
		Msg("Making API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(path, "error", time.Since(start).Seconds())
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordAPICall(path, fmt.Sprintf("%d", resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("size", len(body)).
		Msg("API request complete")

	return body, resp.StatusCode, nil
}
