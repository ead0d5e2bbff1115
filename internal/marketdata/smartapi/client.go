// Package smartapi is a minimal client for Angel One SmartAPI-style brokers:
// TOTP session login plus historical candle retrieval. Order, portfolio and
// GTT endpoints are deliberately out of scope.
//
// Pairs use the "EXCHANGE:TOKEN" form, e.g. "NSE:3045".
package smartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"signal-enginev1/internal/model"
)

const (
	defaultRoot    = "https://apiconnect.angelone.in"
	defaultTimeout = 7 * time.Second

	loginRoute   = "/rest/auth/angelbroking/user/v1/loginByPassword"
	candlesRoute = "/rest/secure/angelbroking/historical/v1/getCandleData"
)

// intervals maps engine timeframes to SmartAPI interval names.
var intervals = map[string]string{
	"1m":  "ONE_MINUTE",
	"5m":  "FIVE_MINUTE",
	"15m": "FIFTEEN_MINUTE",
	"30m": "THIRTY_MINUTE",
	"1h":  "ONE_HOUR",
	"1d":  "ONE_DAY",
}

// durations maps engine timeframes to bar durations, used to size the
// historical window for a requested bar count.
var durations = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"1d":  24 * time.Hour,
}

// Config holds SmartAPI credentials and connection settings.
type Config struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string // base32 secret; a fresh code is generated per login
	RootURL    string
	Timeout    time.Duration
}

// Client fetches historical candles from a SmartAPI-compatible endpoint.
// The session token is established lazily on first use and refreshed after
// an authorization failure.
type Client struct {
	cfg  Config
	http *http.Client

	mu       sync.Mutex
	jwtToken string
}

// New creates a client. Returns an error when credentials are incomplete.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.ClientCode == "" || cfg.Password == "" || cfg.TOTPSecret == "" {
		return nil, fmt.Errorf("smartapi: api key, client code, password and totp secret are all required")
	}
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return "smartapi" }

// Bars fetches up to limit most recent candles, oldest first.
func (c *Client) Bars(ctx context.Context, pair, timeframe string, limit int) ([]model.Bar, error) {
	exchange, token, ok := strings.Cut(pair, ":")
	if !ok {
		return nil, fmt.Errorf("smartapi: pair %q must be EXCHANGE:TOKEN", pair)
	}
	interval, ok := intervals[timeframe]
	if !ok {
		return nil, fmt.Errorf("smartapi: unsupported timeframe %q", timeframe)
	}

	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	now := time.Now()
	from := now.Add(-durations[timeframe] * time.Duration(limit+1))
	payload := map[string]string{
		"exchange":    exchange,
		"symboltoken": token,
		"interval":    interval,
		"fromdate":    from.Format("2006-01-02 15:04"),
		"todate":      now.Format("2006-01-02 15:04"),
	}

	// Rows mix types: a timestamp string followed by five numbers, so each
	// field is decoded individually from its raw form.
	var out struct {
		Status  bool                `json:"status"`
		Message string              `json:"message"`
		Data    [][]json.RawMessage `json:"data"`
	}
	if err := c.post(ctx, candlesRoute, c.token(), payload, &out); err != nil {
		if err == errSessionRejected {
			c.clearToken()
		}
		return nil, fmt.Errorf("smartapi candles %s: %w", pair, err)
	}
	if !out.Status {
		return nil, fmt.Errorf("smartapi candles %s: %s", pair, out.Message)
	}

	bars := make([]model.Bar, 0, len(out.Data))
	for i, row := range out.Data {
		bar, err := parseCandle(row)
		if err != nil {
			return nil, fmt.Errorf("smartapi candles %s: row %d: %w", pair, i, err)
		}
		bars = append(bars, bar)
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// ensureSession logs in once; concurrent callers share the token.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jwtToken != "" {
		return nil
	}

	code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("smartapi: totp: %w", err)
	}

	var out struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			JWTToken string `json:"jwtToken"`
		} `json:"data"`
	}
	payload := map[string]string{
		"clientcode": c.cfg.ClientCode,
		"password":   c.cfg.Password,
		"totp":       code,
	}
	if err := c.post(ctx, loginRoute, "", payload, &out); err != nil {
		return fmt.Errorf("smartapi: login: %w", err)
	}
	if !out.Status || out.Data.JWTToken == "" {
		return fmt.Errorf("smartapi: login rejected: %s", out.Message)
	}

	c.jwtToken = out.Data.JWTToken
	return nil
}

// token reads the session token under the lock.
func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jwtToken
}

// clearToken drops the session so the next call logs in again.
func (c *Client) clearToken() {
	c.mu.Lock()
	c.jwtToken = ""
	c.mu.Unlock()
}

// errSessionRejected marks an authorization failure; the caller clears the
// cached token.
var errSessionRejected = fmt.Errorf("smartapi: session rejected")

// post sends an authenticated JSON request mirroring the SmartAPI header
// contract. The token is passed explicitly so the caller's locking discipline
// stays out of the transport.
func (c *Client) post(ctx context.Context, route, jwtToken string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RootURL+route, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")
	req.Header.Set("X-PrivateKey", c.cfg.APIKey)
	if jwtToken != "" {
		req.Header.Set("Authorization", "Bearer "+jwtToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return errSessionRejected
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// parseCandle converts one candle row: [ "2024-01-15T10:30:00+05:30", o, h, l, c, v ].
func parseCandle(row []json.RawMessage) (model.Bar, error) {
	if len(row) < 6 {
		return model.Bar{}, fmt.Errorf("candle has %d fields, need 6", len(row))
	}

	var tsRaw string
	if err := json.Unmarshal(row[0], &tsRaw); err != nil {
		return model.Bar{}, fmt.Errorf("timestamp: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, tsRaw)
	if err != nil {
		return model.Bar{}, fmt.Errorf("timestamp: %w", err)
	}

	var fields [5]float64
	for i := 1; i <= 5; i++ {
		if err := json.Unmarshal(row[i], &fields[i-1]); err != nil {
			return model.Bar{}, fmt.Errorf("field %d: %w", i, err)
		}
	}

	return model.Bar{
		TS:     ts.UTC(),
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}
