package partners

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/mateovidal/stocklane-backend/pkg/errors"
)

// OwnershipChecker reports whether a caller owns a shop. Implementations must
// fail closed: an unreachable registry means no ownership.
type OwnershipChecker interface {
	IsOwner(ctx context.Context, callerID string, shopID int64) (bool, error)
}

// ShopClient talks to the shop registry service.
type ShopClient struct {
	httpClient   *http.Client
	baseURL      string
	serviceToken string
}

// NewShopClient builds a shop registry client for the given base URL.
func NewShopClient(baseURL string, timeout time.Duration, opts ...Option) (*ShopClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	cfg := applyOptions(timeout, opts)
	return &ShopClient{
		httpClient:   cfg.httpClient,
		baseURL:      trimmed,
		serviceToken: cfg.serviceToken,
	}, nil
}

// IsOwner probes the registry's ownership endpoint. A 200 confirms ownership,
// a 404 denies it; anything else is an upstream error and the caller must
// treat the answer as "no".
func (c *ShopClient) IsOwner(ctx context.Context, callerID string, shopID int64) (bool, error) {
	if c == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "shop client not configured")
	}
	caller := strings.TrimSpace(callerID)
	if caller == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "caller id is required")
	}
	if shopID <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "shop id must be positive")
	}

	endpoint := fmt.Sprintf("%s/api/v1/shops/%d/owners/%s", c.baseURL, shopID, url.PathEscape(caller))
	status, err := doProbe(ctx, c.httpClient, endpoint, c.serviceToken)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ownership lookup failed")
	}

	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("shop service returned status %d", status))
	}
}
