// Package monobank is the HTTP client for the bank API: the public currency
// endpoint that feeds the rate table and the personal webhook registration.
// Calls go through a circuit breaker so a flapping bank API fails fast
// instead of stalling every ingestion.
package monobank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"kasa/internal/core"
)

const DefaultBaseURL = "https://api.monobank.ua"

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	settings := gobreaker.Settings{
		Name: "monobank",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
		},
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

type bankRate struct {
	CurrencyCodeA int     `json:"currencyCodeA"`
	CurrencyCodeB int     `json:"currencyCodeB"`
	RateSell      float64 `json:"rateSell"`
	RateBuy       float64 `json:"rateBuy"`
	RateCross     float64 `json:"rateCross"`
}

// Rates implements rates.Source against the public /bank/currency endpoint.
// Pairs with a currency code outside the mapping table are skipped.
func (c *Client) Rates(ctx context.Context) ([]core.RateEntry, error) {
	body, err := c.get(ctx, "/bank/currency", "")
	if err != nil {
		return nil, fmt.Errorf("fetch currency rates: %w", err)
	}

	var raw []bankRate
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode currency rates: %w", err)
	}

	entries := make([]core.RateEntry, 0, len(raw))
	for _, r := range raw {
		a, okA := AlphaCode(r.CurrencyCodeA)
		b, okB := AlphaCode(r.CurrencyCodeB)
		if !okA || !okB {
			slog.DebugContext(ctx, "Skipping unknown currency pair",
				"code_a", r.CurrencyCodeA, "code_b", r.CurrencyCodeB)
			continue
		}
		entries = append(entries, core.RateEntry{
			CurrencyA: a,
			CurrencyB: b,
			RateSell:  r.RateSell,
			RateBuy:   r.RateBuy,
			RateCross: r.RateCross,
		})
	}
	return entries, nil
}

// SetupWebhook points the user's personal webhook at our statement endpoint.
func (c *Client) SetupWebhook(ctx context.Context, apiKey, webhookURL string) error {
	payload, err := json.Marshal(map[string]string{"webHookUrl": webhookURL})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	_, err = c.execute(ctx, http.MethodPost, "/personal/webhook", apiKey, payload)
	if err != nil {
		return fmt.Errorf("setup webhook: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path, apiKey string) ([]byte, error) {
	return c.execute(ctx, http.MethodGet, path, apiKey, nil)
}

func (c *Client) execute(ctx context.Context, method, path, apiKey string, payload []byte) ([]byte, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		if apiKey != "" {
			req.Header.Set("X-Token", apiKey)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}
