// Package binance fetches OHLCV klines from the Binance public REST API.
//
// Klines come back as JSON arrays of mixed types:
//
//	[ openTimeMs, "open", "high", "low", "close", "volume", closeTimeMs, ... ]
//
// Only the first six fields are consumed.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"signal-enginev1/internal/model"
)

const (
	defaultBaseURL = "https://api.binance.com"
	defaultTimeout = 10 * time.Second

	// Binance caps the klines endpoint at 1000 rows per request.
	maxLimit = 1000
)

// Client is a Binance REST market data client. No API key is required for
// kline data.
type Client struct {
	http *resty.Client
}

// New creates a client. An empty baseURL selects the public endpoint.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return "binance" }

// Bars fetches up to limit most recent klines for the pair and timeframe
// (Binance interval notation: "1m", "1h", "4h", "1d", ...), oldest first.
func (c *Client) Bars(ctx context.Context, pair, timeframe string, limit int) ([]model.Bar, error) {
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	var raw [][]any
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   pair,
			"interval": timeframe,
			"limit":    strconv.Itoa(limit),
		}).
		SetResult(&raw).
		Get("/api/v3/klines")
	if err != nil {
		return nil, fmt.Errorf("binance klines %s/%s: %w", pair, timeframe, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("binance klines %s/%s: status %s", pair, timeframe, resp.Status())
	}

	bars := make([]model.Bar, 0, len(raw))
	for i, k := range raw {
		bar, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s/%s: row %d: %w", pair, timeframe, i, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// parseKline converts one kline row. Open time is a millisecond epoch number;
// the four prices and the volume arrive as strings.
func parseKline(k []any) (model.Bar, error) {
	if len(k) < 6 {
		return model.Bar{}, fmt.Errorf("kline has %d fields, need 6", len(k))
	}

	openMs, ok := k[0].(float64)
	if !ok {
		return model.Bar{}, fmt.Errorf("open time is %T, want number", k[0])
	}

	fields := [5]float64{}
	for i := 1; i <= 5; i++ {
		s, ok := k[i].(string)
		if !ok {
			return model.Bar{}, fmt.Errorf("field %d is %T, want string", i, k[i])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Bar{}, fmt.Errorf("field %d: %w", i, err)
		}
		fields[i-1] = v
	}

	return model.Bar{
		TS:     time.UnixMilli(int64(openMs)).UTC(),
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}
