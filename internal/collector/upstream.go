package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PriceTracker/internal/model"
)

// ratesPath is the product-rate listing endpoint of the upstream source.
const ratesPath = "/products/productrate/metadata/get-all"

// UpstreamFetcher implements Fetcher against the jewellery pricing API.
type UpstreamFetcher struct {
	BaseURL string
	Branch  string
	Client  *http.Client
}

// NewUpstreamFetcher creates a fetcher with optional proxy support. A zero
// timeout leaves the transport defaults in place.
func NewUpstreamFetcher(baseURL, branch, proxyURL string, timeout time.Duration) *UpstreamFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &UpstreamFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Branch:  branch,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *UpstreamFetcher) Name() string { return "upstream" }

// filterPayload is the JSON document passed in the filters query parameter.
type filterPayload struct {
	Branch        string `json:"branch"`
	CreatedAtFrom string `json:"createdAtFrom"`
	CreatedAtTo   string `json:"createdAtTo"`
}

// FetchRaw issues one GET for the whole window and returns the body
// unmodified. Network failures and non-2xx statuses wrap
// model.ErrUpstreamTransport.
func (f *UpstreamFetcher) FetchRaw(ctx context.Context, w model.Window) ([]byte, error) {
	filters, err := json.Marshal(filterPayload{
		Branch:        f.Branch,
		CreatedAtFrom: w.FromString(),
		CreatedAtTo:   w.ToString(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal filters: %w", err)
	}
	endpoint := fmt.Sprintf("%s%s?filters=%s", f.BaseURL, ratesPath, url.QueryEscape(string(filters)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUpstreamTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", model.ErrUpstreamTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d, body: %s", model.ErrUpstreamTransport, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
