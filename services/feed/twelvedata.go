package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

const DefaultTwelveDataURL = "https://api.twelvedata.com"

// TwelveData fetches the latest 1min candle from the time_series endpoint
type TwelveData struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewTwelveData(apiKey string) *TwelveData {
	return &TwelveData{
		BaseURL: DefaultTwelveDataURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type tdResponse struct {
	Status  string    `json:"status"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Values  []tdValue `json:"values"`
}

type tdValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
}

func (c *TwelveData) LatestBar(ctx context.Context, symbol string) (engine.Bar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", "1min")
	q.Set("outputsize", "1")
	q.Set("timezone", "UTC")
	q.Set("apikey", c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/time_series?"+q.Encode(), nil)
	if err != nil {
		return engine.Bar{}, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return engine.Bar{}, Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return engine.Bar{}, Transient(fmt.Errorf("twelvedata %s: HTTP %d", symbol, resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return engine.Bar{}, fmt.Errorf("twelvedata %s: HTTP %d", symbol, resp.StatusCode)
	}
	var body tdResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return engine.Bar{}, Transient(fmt.Errorf("twelvedata %s: decode: %w", symbol, err))
	}
	if body.Status == "error" {
		err := fmt.Errorf("twelvedata %s: %d %s", symbol, body.Code, body.Message)
		if body.Code == http.StatusTooManyRequests || body.Code >= 500 {
			return engine.Bar{}, Transient(err)
		}
		return engine.Bar{}, err
	}
	if len(body.Values) == 0 {
		return engine.Bar{}, Transient(fmt.Errorf("twelvedata %s: no values", symbol))
	}
	return body.Values[0].bar()
}

func (v tdValue) bar() (engine.Bar, error) {
	ts, err := ParseTimestamp(v.Datetime)
	if err != nil {
		return engine.Bar{}, err
	}
	var p [4]float64
	for i, s := range []string{v.Open, v.High, v.Low, v.Close} {
		if p[i], err = strconv.ParseFloat(s, 64); err != nil {
			return engine.Bar{}, fmt.Errorf("twelvedata: bad price %q: %w", s, err)
		}
	}
	return engine.Bar{Timestamp: ts, Open: p[0], High: p[1], Low: p[2], Close: p[3]}, nil
}
