package fetch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"orbsim/internal/model"
)

// HTTPTransport fetches daily bars from a REST bar service.
type HTTPTransport struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Loc     *time.Location

	events    chan BarEvent
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewHTTPTransport creates a transport against the given base URL.
// Dates in responses are interpreted in loc.
func NewHTTPTransport(baseURL, apiKey string, loc *time.Location) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Loc:     loc,
		events:  make(chan BarEvent, 16),
		done:    make(chan struct{}),
	}
}

func (t *HTTPTransport) Name() string { return "http" }

func (t *HTTPTransport) Events() <-chan BarEvent { return t.events }

// apiBar is the expected JSON shape from the bar API.
type apiBar struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
}

// Request issues the fetch asynchronously; the response arrives on the
// event channel tagged with reqID. Responses landing after Close are
// dropped.
func (t *HTTPTransport) Request(reqID int, symbol string, days int) error {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		bars, err := t.fetch(symbol, days)
		ev := BarEvent{ReqID: reqID, Bars: bars, Done: true}
		if err != nil {
			ev = BarEvent{ReqID: reqID, Err: err}
		}
		select {
		case t.events <- ev:
		case <-t.done:
		}
	}()
	return nil
}

func (t *HTTPTransport) fetch(symbol string, days int) ([]model.DailyBar, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&limit=%d", t.BaseURL, symbol, days)
	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	if t.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.APIKey)
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch daily bars: status %d", resp.StatusCode)
	}

	var raw []apiBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode daily bars: %w", err)
	}
	bars := make([]model.DailyBar, 0, len(raw))
	for _, b := range raw {
		date, err := time.ParseInLocation("2006-01-02", b.Date, t.Loc)
		if err != nil {
			return nil, fmt.Errorf("decode daily bars: bad date %q", b.Date)
		}
		sym := b.Symbol
		if sym == "" {
			sym = symbol
		}
		bars = append(bars, model.DailyBar{
			Symbol: sym,
			Date:   date,
			Open:   b.Open, High: b.High, Low: b.Low, Close: b.Close,
		})
	}
	return bars, nil
}

// Close stops delivery, waits out in-flight fetches, then closes the
// event channel. Callers must not issue requests afterwards.
func (t *HTTPTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.wg.Wait()
		close(t.events)
	})
	return nil
}
