package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tomnomnom/linkheader"

	"storesync/internal/logger"
	"storesync/internal/metrics"
)

// PageSize is the largest page the Admin REST API returns.
const PageSize = 250

var ErrRetriesExhausted = errors.New("shopify request retries exhausted")

// APIError is a non-2xx response from the Admin API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed: %d - %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type ClientOptions struct {
	// BaseURL replaces https://{shop}. Used for tests and proxies.
	BaseURL         string
	APIVersion      string
	Timeout         time.Duration
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type Client struct {
	baseURL     string
	apiVersion  string
	accessToken string
	httpClient  *http.Client
	logger      *logger.Logger
	maxRetries  int
	initial     time.Duration
	maxInterval time.Duration
}

func NewClient(shopDomain, accessToken string, logger *logger.Logger, opts ClientOptions) *Client {
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://" + NormalizeShopDomain(shopDomain)
	}
	if opts.APIVersion == "" {
		opts.APIVersion = "2023-10"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxInterval == 0 {
		opts.MaxInterval = 15 * time.Second
	}

	return &Client{
		baseURL:     baseURL,
		apiVersion:  opts.APIVersion,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger:      logger,
		maxRetries:  opts.MaxRetries,
		initial:     opts.InitialInterval,
		maxInterval: opts.MaxInterval,
	}
}

// ListCustomers fetches every customer of the shop, following the Link
// header page by page. Any failed page aborts the whole fetch.
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	return fetchAll[Customer](ctx, c, "customers.json", "customers")
}

// ListWebhooks fetches every webhook subscription of the shop.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	return fetchAll[Webhook](ctx, c, "webhooks.json", "webhooks")
}

// CreateWebhook subscribes address to topic with JSON payloads.
func (c *Client) CreateWebhook(ctx context.Context, topic, address string) (*Webhook, error) {
	payload := struct {
		Webhook Webhook `json:"webhook"`
	}{
		Webhook: Webhook{Topic: topic, Address: address, Format: "json"},
	}

	resp, err := c.do(ctx, http.MethodPost, c.endpoint("webhooks.json"), payload)
	if err != nil {
		return nil, err
	}

	var webhookResp struct {
		Webhook Webhook `json:"webhook"`
	}
	if err := json.Unmarshal(resp.body, &webhookResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &webhookResp.Webhook, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, c.endpoint(fmt.Sprintf("webhooks/%d.json", id)), nil)
	return err
}

// GetShopInfo fetches shop information
func (c *Client) GetShopInfo(ctx context.Context) (*Shop, error) {
	resp, err := c.do(ctx, http.MethodGet, c.endpoint("shop.json"), nil)
	if err != nil {
		return nil, err
	}

	var shopResp struct {
		Shop Shop `json:"shop"`
	}
	if err := json.Unmarshal(resp.body, &shopResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &shopResp.Shop, nil
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/admin/api/%s/%s", c.baseURL, c.apiVersion, path)
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do performs one API call, retrying transport errors, 429 and 5xx with
// exponential backoff. Other statuses fail immediately.
func (c *Client) do(ctx context.Context, method, rawURL string, body interface{}) (*response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var (
		result    *response
		attempts  int
		permanent bool
	)

	operation := func() error {
		attempts++

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			permanent = true
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		// Add authentication header
		req.Header.Set("X-Shopify-Access-Token", c.accessToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.ObserveShopifyRequest(method, 0)
			if ctx.Err() != nil {
				permanent = true
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("failed to make request: %w", err)
		}
		defer resp.Body.Close()

		metrics.ObserveShopifyRequest(method, resp.StatusCode)

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
			if apiErr.Temporary() {
				return apiErr
			}
			permanent = true
			return backoff.Permanent(apiErr)
		}

		result = &response{status: resp.StatusCode, header: resp.Header, body: data}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initial
	bo.MaxInterval = c.maxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()

	notify := func(err error, wait time.Duration) {
		metrics.IncShopifyRetry()
		c.logger.Warn("Shopify %s %s failed, retrying in %s: %v", method, redact(rawURL), wait, err)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxRetries)), ctx), notify)
	if err != nil {
		if permanent {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
	}

	return result, nil
}

// fetchAll walks a list endpoint until the Link header has no rel="next".
func fetchAll[T any](ctx context.Context, c *Client, path, key string) ([]T, error) {
	next := c.endpoint(path) + "?" + url.Values{"limit": {strconv.Itoa(PageSize)}}.Encode()
	visited := make(map[string]bool)

	var records []T
	for next != "" {
		if visited[next] {
			return nil, fmt.Errorf("pagination loop detected at %s", redact(next))
		}
		visited[next] = true

		resp, err := c.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}

		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(resp.body, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		var page []T
		if raw, ok := envelope[key]; ok {
			if err := json.Unmarshal(raw, &page); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", key, err)
			}
		}
		records = append(records, page...)

		next = nextPageURL(resp.header.Get("Link"))
	}

	return records, nil
}

func nextPageURL(header string) string {
	if header == "" {
		return ""
	}
	links := linkheader.Parse(header).FilterByRel("next")
	if len(links) == 0 {
		return ""
	}
	return links[0].URL
}

// redact drops the query string, which carries opaque cursors.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
