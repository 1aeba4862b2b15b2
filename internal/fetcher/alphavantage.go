package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"BreakoutSentinel/internal/model"
)

// AlphaVantageSource fetches daily adjusted bars from the Alpha Vantage API.
// Requires an API key; callers skip constructing this source when none is
// configured.
type AlphaVantageSource struct {
	APIKey  string
	Client  *http.Client
	BaseURL string
}

// NewAlphaVantageSource creates an Alpha Vantage source with optional proxy
// support.
func NewAlphaVantageSource(apiKey, proxyURL string) *AlphaVantageSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &AlphaVantageSource{
		APIKey: apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: "https://www.alphavantage.co",
	}
}

func (f *AlphaVantageSource) Name() string { return "alpha_vantage" }

// avDaily is one day's entry from the TIME_SERIES_DAILY_ADJUSTED payload.
// The provider labels fields "1. open" .. "6. volume"; they are mapped to the
// canonical bar fields here, before anything downstream sees them.
type avDaily struct {
	Open     string `json:"1. open"`
	High     string `json:"2. high"`
	Low      string `json:"3. low"`
	Close    string `json:"4. close"`
	AdjClose string `json:"5. adjusted close"`
	Volume   string `json:"6. volume"`
}

type avResponse struct {
	Series       map[string]avDaily `json:"Time Series (Daily)"`
	ErrorMessage string             `json:"Error Message"`
	Note         string             `json:"Note"`
}

func (f *AlphaVantageSource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, error) {
	u := fmt.Sprintf("%s/query?function=TIME_SERIES_DAILY_ADJUSTED&symbol=%s&outputsize=full&apikey=%s",
		f.BaseURL, url.QueryEscape(ticker), url.QueryEscape(f.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alpha vantage fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage: status %d", resp.StatusCode)
	}

	var payload avResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("alpha vantage decode: %w", err)
	}
	if payload.ErrorMessage != "" {
		return nil, fmt.Errorf("alpha vantage api error: %s", payload.ErrorMessage)
	}
	if payload.Note != "" {
		return nil, fmt.Errorf("alpha vantage throttled: %s", payload.Note)
	}
	if len(payload.Series) == 0 {
		return nil, fmt.Errorf("alpha vantage: no data returned")
	}

	// outputsize=full returns the whole history; keep only [start, end].
	bars := make([]model.Bar, 0, len(payload.Series))
	for rawDate, d := range payload.Series {
		date, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			return nil, fmt.Errorf("alpha vantage date %q: %w", rawDate, err)
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		b := model.Bar{Date: date}
		if b.Open, err = strconv.ParseFloat(d.Open, 64); err != nil {
			return nil, fmt.Errorf("alpha vantage open %q: %w", d.Open, err)
		}
		if b.High, err = strconv.ParseFloat(d.High, 64); err != nil {
			return nil, fmt.Errorf("alpha vantage high %q: %w", d.High, err)
		}
		if b.Low, err = strconv.ParseFloat(d.Low, 64); err != nil {
			return nil, fmt.Errorf("alpha vantage low %q: %w", d.Low, err)
		}
		if b.Close, err = strconv.ParseFloat(d.Close, 64); err != nil {
			return nil, fmt.Errorf("alpha vantage close %q: %w", d.Close, err)
		}
		if b.AdjClose, err = strconv.ParseFloat(d.AdjClose, 64); err != nil {
			return nil, fmt.Errorf("alpha vantage adjusted close %q: %w", d.AdjClose, err)
		}
		if b.Volume, err = strconv.ParseFloat(d.Volume, 64); err != nil {
			return nil, fmt.Errorf("alpha vantage volume %q: %w", d.Volume, err)
		}
		bars = append(bars, b)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
