// Package storefront wraps the subset of the storefront HTTP API that
// churn-prevention components call back into: coupon assignment and
// product catalog retrieval. It follows server/ghclient/client.go's
// shape — a narrow Client interface, a clientImpl delegating to a plain
// *http.Client, and a constructor that can be pointed at an httptest
// server for tests.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/quickmart/churnguard/internal/domain"
)

// AssignCouponRequest is the body of POST /api/coupons/internal/assign-nudge-coupon.
type AssignCouponRequest struct {
	UserID          string  `json:"user_id"`
	CouponCode      string  `json:"coupon_code"`
	DiscountPercent float64 `json:"discount_percent,omitempty"`
	ValidDays       int     `json:"valid_days"`
}

// AssignCouponResponse is the storefront's acknowledgement.
type AssignCouponResponse struct {
	UserCouponID string `json:"user_coupon_id"`
	Code         string `json:"code"`
}

// Client is the storefront HTTP collaborator surface used by the actions
// package and the recommendations workflow.
type Client interface {
	// AssignCoupon assigns a coupon to a user via the storefront's internal
	// endpoint, per §4.6.1.
	AssignCoupon(ctx context.Context, req AssignCouponRequest) (*AssignCouponResponse, error)

	// ListProducts returns up to limit products from the catalog, per
	// §4.7's indexing source.
	ListProducts(ctx context.Context, limit int) ([]domain.Product, error)
}

type clientImpl struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a storefront Client pointed at baseURL.
func NewClient(baseURL string) Client {
	return &clientImpl{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// NewClientWithHTTPClient injects a custom *http.Client, used in tests to
// point at an httptest server with a short timeout.
func NewClientWithHTTPClient(baseURL string, httpClient *http.Client) Client {
	return &clientImpl{baseURL: baseURL, httpClient: httpClient}
}

func (c *clientImpl) AssignCoupon(ctx context.Context, req AssignCouponRequest) (*AssignCouponResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "storefront: marshal assign-coupon request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/coupons/internal/assign-nudge-coupon", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "storefront: build assign-coupon request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "storefront: assign-coupon request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "storefront: read assign-coupon response")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.Errorf("storefront: assign-coupon returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out AssignCouponResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, errors.Wrap(err, "storefront: decode assign-coupon response")
	}
	return &out, nil
}

func (c *clientImpl) ListProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	reqURL := fmt.Sprintf("%s/api/products?limit=%d", c.baseURL, limit)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "storefront: build list-products request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "storefront: list-products request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "storefront: read list-products response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("storefront: list-products returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, errors.Wrap(err, "storefront: decode list-products response")
	}
	return out.Products, nil
}
