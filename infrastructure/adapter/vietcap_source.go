// Package adapter holds outer-layer implementations of application/port
// interfaces that talk to the outside world (exchanges, brokers).
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"swingref/application/port"
	"swingref/domain/aggregate/bar"
)

const (
	vietcapBaseURL   = "https://trading.vietcap.com.vn/api"
	defaultRateLimit = 15 // requests per minute
)

// vietcapOHLCRequest is the request body for OHLC chart data.
type vietcapOHLCRequest struct {
	TimeFrame string   `json:"timeFrame"`
	Symbols   []string `json:"symbols"`
	From      int64    `json:"from"`
	To        int64    `json:"to"`
}

// vietcapOHLCItem represents a single stock's OHLC data in the response.
// Timestamps arrive as strings; prices may be integral or decimal.
type vietcapOHLCItem struct {
	Symbol string    `json:"symbol"`
	O      []float64 `json:"o"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	C      []float64 `json:"c"`
	T      []string  `json:"t"`
}

// VietCapBarSource implements port.BarSource against the VietCap Trading
// REST API, assigning sequential Bar.Index values starting just past the
// afterIndex each NextBatch call receives, since the upstream API
// addresses bars by date range, not by index.
type VietCapBarSource struct {
	httpClient  *http.Client
	baseURL     string
	symbol      string
	timeFrame   string
	rateLimiter chan struct{}
}

var _ port.BarSource = (*VietCapBarSource)(nil)

// NewVietCapBarSource creates a new VietCap-backed bar source for symbol
// at the given timeframe. httpClient should carry the retry transport
// from infrastructure/http for resilience against 429s.
func NewVietCapBarSource(httpClient *http.Client, symbol, timeFrame string, requestsPerMinute int) *VietCapBarSource {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRateLimit
	}

	rateLimiter := make(chan struct{}, requestsPerMinute)
	for i := 0; i < requestsPerMinute; i++ {
		rateLimiter <- struct{}{}
	}
	go func() {
		ticker := time.NewTicker(time.Minute / time.Duration(requestsPerMinute))
		defer ticker.Stop()
		for range ticker.C {
			select {
			case rateLimiter <- struct{}{}:
			default:
			}
		}
	}()

	return &VietCapBarSource{
		httpClient:  httpClient,
		baseURL:     vietcapBaseURL,
		symbol:      symbol,
		timeFrame:   timeFrame,
		rateLimiter: rateLimiter,
	}
}

// NextBatch fetches up to limit bars whose index is strictly greater
// than afterIndex. It pulls a rolling window ending at the current time
// and discards anything not past afterIndex, relying on the caller's
// replay driver to poll on a schedule rather than the source tracking
// cursor state itself.
func (g *VietCapBarSource) NextBatch(ctx context.Context, afterIndex int64, limit int) ([]bar.Bar, error) {
	select {
	case <-g.rateLimiter:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	now := time.Now()
	lookback := 24 * time.Hour * time.Duration(limit+5)

	reqBody := vietcapOHLCRequest{
		TimeFrame: g.timeFrame,
		Symbols:   []string{g.symbol},
		From:      now.Add(-lookback).Unix(),
		To:        now.Unix(),
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chart/OHLCChart/gap", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("VietCap API error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var items []vietcapOHLCItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse OHLCV response: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	bars, err := transformOHLCV(items[0], afterIndex)
	if err != nil {
		return nil, err
	}
	if len(bars) > limit {
		bars = bars[:limit]
	}
	return bars, nil
}

func transformOHLCV(item vietcapOHLCItem, afterIndex int64) ([]bar.Bar, error) {
	n := len(item.T)
	if n == 0 || len(item.O) != n || len(item.H) != n || len(item.L) != n || len(item.C) != n {
		return nil, nil
	}

	out := make([]bar.Bar, 0, n)
	for i := 0; i < n; i++ {
		ts, err := strconv.ParseInt(item.T[i], 10, 64)
		if err != nil {
			continue
		}
		// Index follows the delivered sequence, not the upstream slot, so
		// a skipped unparseable entry never leaves a hole the session's
		// contiguity check would reject.
		idx := afterIndex + 1 + int64(len(out))
		b, err := bar.New(idx, ts, item.O[i], item.H[i], item.L[i], item.C[i])
		if err != nil {
			return nil, fmt.Errorf("vietcap source: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}
