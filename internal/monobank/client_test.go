package monobank

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bank/currency" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"currencyCodeA":840,"currencyCodeB":980,"rateBuy":40.0,"rateSell":41.0,"rateCross":0},
			{"currencyCodeA":978,"currencyCodeB":840,"rateBuy":0,"rateSell":0,"rateCross":1.09},
			{"currencyCodeA":999,"currencyCodeB":980,"rateCross":5.0}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	entries, err := client.Rates(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// the pair with the unknown code 999 is skipped
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].CurrencyA != "USD" || entries[0].CurrencyB != "UAH" || entries[0].RateBuy != 40.0 {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[1].CurrencyA != "EUR" || entries[1].CurrencyB != "USD" || entries[1].RateCross != 1.09 {
		t.Fatalf("second entry = %+v", entries[1])
	}
}

func TestRatesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	if _, err := client.Rates(context.Background()); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestSetupWebhook(t *testing.T) {
	var gotToken, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/personal/webhook" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotToken = r.Header.Get("X-Token")
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	if err := client.SetupWebhook(context.Background(), "secret", "https://example.com/hooks/u1"); err != nil {
		t.Fatal(err)
	}
	if gotToken != "secret" {
		t.Fatalf("X-Token = %q", gotToken)
	}
	if gotBody != `{"webHookUrl":"https://example.com/hooks/u1"}` {
		t.Fatalf("body = %s", gotBody)
	}
}

func TestAlphaCode(t *testing.T) {
	if code, ok := AlphaCode(980); !ok || code != "UAH" {
		t.Fatalf("AlphaCode(980) = %q, %v", code, ok)
	}
	if _, ok := AlphaCode(1); ok {
		t.Fatal("unknown numeric code must not resolve")
	}
}
