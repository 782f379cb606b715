package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
)

// DefaultAPIURL is the public Frankfurter endpoint.
const DefaultAPIURL = "https://api.frankfurter.app"

// FrankfurterClient fetches rates from a Frankfurter compatible API
// (GET {base}/latest?from=X&to=Y).
type FrankfurterClient struct {
	baseURL    string
	httpClient *http.Client
}

type frankfurterResponse struct {
	Amount json.Number            `json:"amount"`
	Base   string                 `json:"base"`
	Date   string                 `json:"date"`
	Rates  map[string]json.Number `json:"rates"`
}

// NewFrankfurterClient creates a client. An empty baseURL uses DefaultAPIURL.
func NewFrankfurterClient(baseURL string, timeout time.Duration) *FrankfurterClient {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FrankfurterClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Latest returns the latest published rate for base -> target.
func (c *FrankfurterClient) Latest(ctx context.Context, base, target string) (Quote, error) {
	q := url.Values{}
	q.Set("from", base)
	q.Set("to", target)
	endpoint := c.baseURL + "/latest?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, core.Internal("build rate request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, core.Upstream("fetch rate", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Quote{}, core.Upstream("fetch rate",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var payload frankfurterResponse
	if err := dec.Decode(&payload); err != nil {
		return Quote{}, core.Upstream("decode rate response", err)
	}

	raw, ok := payload.Rates[target]
	if !ok {
		return Quote{}, core.Upstream("fetch rate", fmt.Errorf("response has no rate for %s", target))
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil || !rate.IsPositive() {
		return Quote{}, core.Upstream("fetch rate", fmt.Errorf("invalid rate %q for %s", raw, target))
	}

	quote := Quote{Base: base, Target: target, Rate: rate}
	if d, err := core.ParseDate(payload.Date); err == nil {
		quote.Date = d
	}
	return quote, nil
}
