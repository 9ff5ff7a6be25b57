package shopify_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storesync/internal/logger"
	"storesync/internal/services/shopify"
	"storesync/internal/services/shopify/shopifytest"
)

func newClient(srv *shopifytest.Server, retries int) *shopify.Client {
	return shopify.NewClient("test-shop", shopifytest.Token, logger.Nop(), shopify.ClientOptions{
		BaseURL:         srv.URL,
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	})
}

func makeCustomers(n int) []shopify.Customer {
	customers := make([]shopify.Customer, n)
	for i := range customers {
		customers[i] = shopify.Customer{ID: int64(i + 1), FirstName: "Customer", Email: "c@example.com"}
	}
	return customers
}

func TestListCustomers_FollowsPagesInOrder(t *testing.T) {
	srv := shopifytest.NewServer()
	defer srv.Close()
	srv.SetCustomers(makeCustomers(612))

	customers, err := newClient(srv, 0).ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 612)

	seen := make(map[int64]bool)
	for i, c := range customers {
		assert.Equal(t, int64(i+1), c.ID)
		assert.False(t, seen[c.ID], "duplicate customer %d", c.ID)
		seen[c.ID] = true
	}
	// 250 + 250 + 112
	assert.Equal(t, 3, srv.Requests())
}

func TestListCustomers_EmptyStore(t *testing.T) {
	srv := shopifytest.NewServer()
	defer srv.Close()

	customers, err := newClient(srv, 0).ListCustomers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestListCustomers_RetriesTransientFailures(t *testing.T) {
	srv := shopifytest.NewServer()
	defer srv.Close()
	srv.SetCustomers(makeCustomers(3))
	srv.FailNext(http.StatusServiceUnavailable, http.StatusTooManyRequests)

	customers, err := newClient(srv, 3).ListCustomers(context.Background())
	require.NoError(t, err)
	assert.Len(t, customers, 3)
	assert.Equal(t, 3, srv.Requests())
}

func TestListCustomers_ExhaustedRetriesIsTerminal(t *testing.T) {
	srv := shopifytest.NewServer()
	defer srv.Close()
	srv.SetCustomers(makeCustomers(3))
	srv.FailNext(500, 500, 500, 500, 500)

	customers, err := newClient(srv, 2).ListCustomers(context.Background())
	require.Error(t, err)
	assert.Nil(t, customers)
	assert.True(t, errors.Is(err, shopify.ErrRetriesExhausted))

	var apiErr *shopify.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Equal(t, 3, srv.Requests())
}

func TestListCustomers_PermanentFailureAbortsWithoutRetry(t *testing.T) {
	srv := shopifytest.NewServer()
	defer srv.Close()
	srv.SetCustomers(makeCustomers(600))

	client := shopify.NewClient("test-shop", "wrong-token", logger.Nop(), shopify.ClientOptions{
		BaseURL:         srv.URL,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
	})

	customers, err := client.ListCustomers(context.Background())
	require.Error(t, err)
	assert.Nil(t, customers)
	assert.False(t, errors.Is(err, shopify.ErrRetriesExhausted))

	var apiErr *shopify.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "API request failed: 401")
	assert.Equal(t, 1, srv.Requests())
}

func TestListCustomers_FailureOnLaterPageReturnsNoPartialResult(t *testing.T) {
	srv := shopifytest.NewServer()
	defer srv.Close()
	srv.SetCustomers(makeCustomers(300))

	client := newClient(srv, 0)
	// First page succeeds, second page fails.
	srv.FailNext(0, http.StatusBadRequest)

	customers, err := client.ListCustomers(context.Background())
	require.Error(t, err)
	assert.Nil(t, customers)
}

func TestListCustomers_ContextCancelled(t *testing.T) {
	srv := shopifytest.NewServer()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(srv, 3).ListCustomers(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWebhookCRUD(t *testing.T) {
	srv := shopifytest.NewServer()
	defer srv.Close()
	client := newClient(srv, 0)
	ctx := context.Background()

	created, err := client.CreateWebhook(ctx, shopify.TopicCustomersCreate, "https://erp.example.com/hook")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "json", created.Format)

	webhooks, err := client.ListWebhooks(ctx)
	require.NoError(t, err)
	require.Len(t, webhooks, 1)

	require.NoError(t, client.DeleteWebhook(ctx, created.ID))

	err = client.DeleteWebhook(ctx, created.ID)
	var apiErr *shopify.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestGetShopInfo(t *testing.T) {
	srv := shopifytest.NewServer()
	defer srv.Close()

	shop, err := newClient(srv, 0).GetShopInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Test Shop", shop.Name)
}
