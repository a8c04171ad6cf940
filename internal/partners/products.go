// Package partners holds the HTTP clients for the collaborator services the
// ledger consults before mutating counters: the product catalog and the shop
// registry. Both are consulted outside any storage transaction.
package partners

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/mateovidal/stocklane-backend/pkg/errors"
)

const defaultRequestTimeout = 5 * time.Second

var errBaseURLRequired = errors.New("partner base url is required")

// ProductChecker reports whether a product exists in the upstream catalog.
type ProductChecker interface {
	ProductExists(ctx context.Context, productID int64) (bool, error)
}

// ProductClient talks to the product catalog service.
type ProductClient struct {
	httpClient   *http.Client
	baseURL      string
	serviceToken string
}

// Option configures optional client behavior.
type Option func(*clientConfig)

type clientConfig struct {
	httpClient   *http.Client
	serviceToken string
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithServiceToken sets the bearer token attached to partner requests.
func WithServiceToken(token string) Option {
	return func(c *clientConfig) {
		c.serviceToken = strings.TrimSpace(token)
	}
}

func applyOptions(timeout time.Duration, opts []Option) clientConfig {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	cfg := clientConfig{httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: timeout}
	}
	return cfg
}

// NewProductClient builds a product catalog client for the given base URL.
func NewProductClient(baseURL string, timeout time.Duration, opts ...Option) (*ProductClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	cfg := applyOptions(timeout, opts)
	return &ProductClient{
		httpClient:   cfg.httpClient,
		baseURL:      trimmed,
		serviceToken: cfg.serviceToken,
	}, nil
}

// ProductExists probes the catalog for the given product id. A 200 means the
// product exists, a 404 means it does not; anything else is an upstream error.
func (c *ProductClient) ProductExists(ctx context.Context, productID int64) (bool, error) {
	if c == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "product client not configured")
	}
	if productID <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}

	url := fmt.Sprintf("%s/api/v1/products/%d", c.baseURL, productID)
	status, err := doProbe(ctx, c.httpClient, url, c.serviceToken)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "product lookup failed")
	}

	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("product service returned status %d", status))
	}
}

func doProbe(ctx context.Context, client *http.Client, url, token string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode, nil
}
