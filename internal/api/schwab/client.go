package schwab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/weathervane/internal/model"
	platformhttp "github.com/quantfold/weathervane/internal/platform/http"
)

// Client is the Schwab market data API client.
type Client struct {
	baseURL    string
	auth       *AuthManager
	httpClient *platformhttp.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Schwab client.
type ClientOptions struct {
	BaseURL         string
	Auth            *AuthManager
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new Schwab market data client.
func NewClient(options ClientOptions) *Client {
	httpOpts := platformhttp.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}

	base := options.BaseURL
	if base == "" {
		base = "https://api.schwabapi.com"
	}

	return &Client{
		baseURL:    base + "/marketdata/v1",
		auth:       options.Auth,
		httpClient: platformhttp.NewClient(httpOpts),
		logger:     log.With().Str("component", "schwab_client").Logger(),
	}
}

type quoteResponse map[string]struct {
	Quote struct {
		LastPrice float64 `json:"lastPrice"`
	} `json:"quote"`
}

// GetQuote fetches the current quote for a symbol and returns its last price.
func (c *Client) GetQuote(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/quotes/%s?fields=quote", c.baseURL, url.PathEscape(symbol))

	c.logger.Debug().Str("symbol", symbol).Msg("Fetching quote")

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return 0, fmt.Errorf("fetching quote for %s: %w", symbol, err)
	}

	var data quoteResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return 0, fmt.Errorf("parsing quote response: %w", err)
	}

	entry, ok := data[symbol]
	if !ok {
		return 0, fmt.Errorf("symbol %s not found in quote response", symbol)
	}

	return entry.Quote.LastPrice, nil
}

type priceHistoryResponse struct {
	Symbol  string `json:"symbol"`
	Empty   bool   `json:"empty"`
	Candles []struct {
		Datetime int64   `json:"datetime"`
		Open     float64 `json:"open"`
		High     float64 `json:"high"`
		Low      float64 `json:"low"`
		Close    float64 `json:"close"`
		Volume   int64   `json:"volume"`
	} `json:"candles"`
}

// GetPriceHistory fetches recent intraday candles for a symbol at the given
// minute frequency and returns them ordered oldest first.
func (c *Client) GetPriceHistory(ctx context.Context, symbol string, frequencyMinutes, daysBack int) ([]model.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("periodType", "day")
	params.Set("period", strconv.Itoa(daysBack))
	params.Set("frequencyType", "minute")
	params.Set("frequency", strconv.Itoa(frequencyMinutes))
	params.Set("needExtendedHoursData", "true")

	endpoint := c.baseURL + "/pricehistory?" + params.Encode()

	c.logger.Debug().
		Str("symbol", symbol).
		Int("frequency", frequencyMinutes).
		Int("days", daysBack).
		Msg("Fetching price history")

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching price history for %s: %w", symbol, err)
	}

	var data priceHistoryResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parsing price history response: %w", err)
	}

	if data.Empty || len(data.Candles) == 0 {
		return nil, fmt.Errorf("no candles returned for %s", symbol)
	}

	// Oldest first for proper rolling-window calculations.
	sort.Slice(data.Candles, func(i, j int) bool {
		return data.Candles[i].Datetime < data.Candles[j].Datetime
	})

	candles := make([]model.Candle, 0, len(data.Candles))
	for _, v := range data.Candles {
		candles = append(candles, model.Candle{
			Open:      v.Open,
			High:      v.High,
			Low:       v.Low,
			Close:     v.Close,
			Volume:    v.Volume,
			Timestamp: time.UnixMilli(v.Datetime).UTC(),
		})
	}

	c.logger.Debug().Int("count", len(candles)).Msg("Fetched candles")
	return candles, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return body, nil
}
