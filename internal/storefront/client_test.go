package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssignCoupon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/coupons/internal/assign-nudge-coupon", r.URL.Path)
		var req AssignCouponRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "user-1", req.UserID)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(AssignCouponResponse{UserCouponID: "uc-1", Code: req.CouponCode})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.AssignCoupon(context.Background(), AssignCouponRequest{
		UserID:          "user-1",
		CouponCode:      "WELCOME20",
		DiscountPercent: 20,
		ValidDays:       7,
	})
	require.NoError(t, err)
	require.Equal(t, "uc-1", resp.UserCouponID)
	require.Equal(t, "WELCOME20", resp.Code)
}

func TestAssignCouponErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.AssignCoupon(context.Background(), AssignCouponRequest{UserID: "user-1"})
	require.Error(t, err)
}

func TestListProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/products", r.URL.Path)
		require.Equal(t, "1000", r.URL.Query().Get("limit"))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"products": []map[string]any{
				{"product_id": "p1", "name": "Widget"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	products, err := c.ListProducts(context.Background(), 1000)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "p1", products[0].ProductID)
}
