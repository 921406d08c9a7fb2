package actions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quickmart/churnguard/internal/domain"
	"github.com/quickmart/churnguard/internal/kvstore"
	"github.com/quickmart/churnguard/internal/logging"
	"github.com/quickmart/churnguard/internal/storefront"
)

func newTestExecutor(t *testing.T, assignCalls *int) (*Executor, kvstore.Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*assignCalls++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"user_coupon_id":"uc-1","code":"WELCOME20"}`))
	}))
	t.Cleanup(srv.Close)

	kv := kvstore.NewMemoryClient()
	sf := storefront.NewClient(srv.URL)
	return NewExecutor(kv, sf, logging.Nop{}), kv
}

func TestExecuteCustomMessagePersistsNudgeAndMessage(t *testing.T) {
	calls := 0
	e, kv := newTestExecutor(t, &calls)

	action := domain.NudgeAction{Type: domain.ActionCustomMessage, Channel: domain.ChannelSMS, Priority: 1}
	err := e.Execute(context.Background(), "user-1", action, 0.8, []string{"inactive"}, "come back!")
	require.NoError(t, err)

	count, err := kv.Count(nudgesSet)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = kv.Count(messagesSet)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, 0, calls)
}

func TestExecuteDiscountCouponAssignsOnce(t *testing.T) {
	calls := 0
	e, kv := newTestExecutor(t, &calls)

	action := domain.NudgeAction{Type: domain.ActionDiscountCoupon, Channel: domain.ChannelApp, Priority: 1, CouponCode: "WELCOME20"}

	require.NoError(t, e.Execute(context.Background(), "user-1", action, 0.8, []string{"inactive"}, ""))
	require.NoError(t, e.Execute(context.Background(), "user-1", action, 0.8, []string{"inactive"}, ""))

	require.Equal(t, 1, calls, "second assignment should be idempotent and skip the storefront call")

	count, err := kv.Count(userCouponsSet)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = kv.Count(couponsSet)
	require.NoError(t, err)
	require.Equal(t, 1, count, "catalog entry is keyed by code so repeat assignment upserts rather than duplicates")

	var coupon domain.Coupon
	ok, err := kvstore.GetWrapped(kv, couponsSet, "WELCOME20", &coupon)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "WELCOME20", coupon.Code)
	require.True(t, coupon.IsActive)
}

func TestExecuteDiscountCouponFallsBackToBucketWhenNoCode(t *testing.T) {
	calls := 0
	e, _ := newTestExecutor(t, &calls)

	action := domain.NudgeAction{Type: domain.ActionDiscountCoupon, Channel: domain.ChannelApp, Priority: 1}
	require.NoError(t, e.Execute(context.Background(), "user-1", action, 0.5, []string{"cart abandonment"}, ""))
	require.Equal(t, 1, calls)
}
