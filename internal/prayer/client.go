package prayer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client calls the Aladhan timings API.
type Client struct {
	baseURL string
	method  int
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient returns a client for baseURL (e.g. "https://api.aladhan.com")
// using calculation method. Outbound calls are limited to rps per second.
func NewClient(baseURL string, method int, rps float64, burst int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		method:  method,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type timingsResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Timings Timings `json:"timings"`
	} `json:"data"`
}

// Timings fetches the timings of the day containing at for a location.
func (c *Client) Timings(ctx context.Context, at time.Time, lat, lon float64, timezone string) (Timings, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("method", strconv.Itoa(c.method))
	if timezone != "" {
		q.Set("timezonestring", timezone)
	}
	endpoint := fmt.Sprintf("%s/v1/timings/%d?%s", c.baseURL, at.Unix(), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prayer api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prayer api: unexpected status %d", resp.StatusCode)
	}

	var body timingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("prayer api: decode: %w", err)
	}
	if len(body.Data.Timings) == 0 {
		return nil, ErrNoTimings
	}
	return body.Data.Timings, nil
}
