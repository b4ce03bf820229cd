package dwd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const (
	// DefaultStationListURL is the DWD station directory page, a
	// semi-structured HTML table refreshed roughly once a day.
	DefaultStationListURL = "https://www.dwd.de/DE/leistungen/klimadatendeutschland/statliste/statlex_html.html?view=nasPublication&nn=16102"

	// DefaultForecastURL is the stationOverviewExtended JSON endpoint.
	DefaultForecastURL = "https://dwd.api.proxy.bund.dev/v30/stationOverviewExtended"
)

// ErrUpstream marks failures of the DWD endpoints (network, non-2xx,
// open circuit). The routing layer maps it to a gateway error.
var ErrUpstream = errors.New("dwd upstream error")

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
)

// ForecastDayPayload is one raw day entry as served upstream.
// Temperatures are integers in tenths of a degree Celsius.
type ForecastDayPayload struct {
	DayDate        string  `json:"dayDate"`
	TemperatureMin int     `json:"temperatureMin"`
	TemperatureMax int     `json:"temperatureMax"`
	Precipitation  float64 `json:"precipitation"`
	Icon           int     `json:"icon"`
}

// ForecastPayload is the raw per-station forecast document.
type ForecastPayload struct {
	Days []ForecastDayPayload `json:"days"`
}

// BackoffConfig controls retry behaviour for upstream calls.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Config bundles the client settings.
type Config struct {
	StationListURL string
	ForecastURL    string
	// ListTTL bounds how long the raw station-list HTML is reused
	// before a fresh upstream fetch.
	ListTTL time.Duration
	Backoff BackoffConfig
}

// Client fetches the raw station-list HTML and forecast JSON from DWD.
// It owns transport-level concerns: retries, circuit breaking, charset
// decoding and freshness caching of the list document.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.SugaredLogger

	listCircuit     *gobreaker.CircuitBreaker
	forecastCircuit *gobreaker.CircuitBreaker

	// cached raw list document
	listMu        sync.Mutex
	listHTML      string
	listFetchedAt time.Time
}

// NewClient creates a Client. Zero config fields fall back to defaults.
func NewClient(httpClient *http.Client, cfg Config, log *zap.SugaredLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.StationListURL == "" {
		cfg.StationListURL = DefaultStationListURL
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = DefaultForecastURL
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 24 * time.Hour
	}
	if cfg.Backoff.MaxRetries == 0 && cfg.Backoff.InitialInterval == 0 {
		cfg.Backoff = BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}
	}

	newCircuit := func(name string) *gobreaker.CircuitBreaker {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})
	}

	return &Client{
		cfg:             cfg,
		httpClient:      httpClient,
		log:             log,
		listCircuit:     newCircuit("dwd-station-list"),
		forecastCircuit: newCircuit("dwd-forecast"),
	}
}

// StationListHTML returns the raw station directory page. The page is
// served as ISO-8859-1 and decoded to UTF-8 here. The body is reused
// for ListTTL; concurrent callers during a refresh share one fetch.
func (c *Client) StationListHTML(ctx context.Context) (string, error) {
	c.listMu.Lock()
	defer c.listMu.Unlock()

	if c.listHTML != "" && time.Since(c.listFetchedAt) < c.cfg.ListTTL {
		return c.listHTML, nil
	}

	resp, err := c.doWithResilience(ctx, c.listCircuit, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.cfg.StationListURL, nil)
	})
	if err != nil {
		return "", fmt.Errorf("%w: station list: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	decoded := transform.NewReader(resp.Body, charmap.ISO8859_1.NewDecoder())
	body, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("%w: reading station list body: %v", ErrUpstream, err)
	}

	c.listHTML = string(body)
	c.listFetchedAt = time.Now()
	c.log.Debugw("refreshed station list", "bytes", len(body))

	return c.listHTML, nil
}

// RefreshStationList forces a fetch regardless of freshness. Used by
// the prewarm scheduler.
func (c *Client) RefreshStationList(ctx context.Context) error {
	c.listMu.Lock()
	c.listFetchedAt = time.Time{}
	c.listMu.Unlock()

	_, err := c.StationListHTML(ctx)
	return err
}

// ForecastsByCodes fetches the raw forecast documents for the given
// station codes in a single upstream call. The returned map is keyed
// by station code; codes unknown upstream are simply absent.
func (c *Client) ForecastsByCodes(ctx context.Context, codes []string) (map[string]ForecastPayload, error) {
	if len(codes) == 0 {
		return map[string]ForecastPayload{}, nil
	}

	resp, err := c.doWithResilience(ctx, c.forecastCircuit, func() (*http.Request, error) {
		values := url.Values{}
		values.Set("stationIds", strings.Join(codes, ","))
		u := fmt.Sprintf("%s?%s", c.cfg.ForecastURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: forecasts: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	var payload map[string]ForecastPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding forecast response: %v", ErrUpstream, err)
	}

	return payload, nil
}

// doWithResilience executes the request with retries, exponential
// backoff and a circuit breaker.
func (c *Client) doWithResilience(
	ctx context.Context,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := c.httpClient.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, errServerError
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}

			return resp, nil
		})

		if err == nil {
			return result.(*http.Response), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, err
		}

		lastErr = err
		if attempt >= c.cfg.Backoff.MaxRetries {
			return nil, lastErr
		}

		delay := c.cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if c.cfg.Backoff.MaxInterval > 0 && delay > c.cfg.Backoff.MaxInterval {
			delay = c.cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}
