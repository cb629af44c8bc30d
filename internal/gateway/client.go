// Package gateway implements the payment gateway protocol: direct debit
// sale, reconciliation by correlation id, the paginated chargeback export,
// and callback authenticity checks.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"recoup/internal/config"
)

var (
	// ErrUnavailable marks network-level failures: the outcome is unknown
	// and callers must defer, never treat it as a decline.
	ErrUnavailable = errors.New("gateway unavailable")
	ErrBadResponse = errors.New("gateway returned malformed response")
)

// Client is the gateway operation surface. Services depend on this
// interface so tests can substitute a mock.
type Client interface {
	Sale(ctx context.Context, req SaleRequest) (*SaleResponse, error)
	Reconcile(ctx context.Context, correlationID string) (*ReconcileResponse, error)
	Chargebacks(ctx context.Context, from, to time.Time, page int) (*ChargebackPage, error)
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient builds the HTTP gateway client with connect and read timeouts
// so no call blocks indefinitely.
func NewClient(cfg config.GatewaySettings) Client {
	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.ReadTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: cfg.ConnectTimeout,
				}).DialContext,
			},
		},
	}
}

func (c *httpClient) Sale(ctx context.Context, req SaleRequest) (*SaleResponse, error) {
	var resp SaleResponse
	if err := c.post(ctx, "/sale", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) Reconcile(ctx context.Context, correlationID string) (*ReconcileResponse, error) {
	var resp ReconcileResponse
	path := "/transactions/" + url.PathEscape(correlationID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) Chargebacks(ctx context.Context, from, to time.Time, page int) (*ChargebackPage, error) {
	query := url.Values{}
	query.Set("from", from.Format("2006-01-02"))
	query.Set("to", to.Format("2006-01-02"))
	query.Set("page", fmt.Sprintf("%d", page))

	var resp ChargebackPage
	if err := c.get(ctx, "/chargebacks", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway request rejected: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}
