package shopify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storesync/internal/config"
	"storesync/internal/logger"
)

func TestGenerateAuthURL(t *testing.T) {
	svc := NewOAuthService(&config.Config{ShopifyClientID: "client-123"}, logger.Nop())

	authURL, state, err := svc.GenerateAuthURL("acme", "https://erp.example.com/api/v1/shopify/callback")
	require.NoError(t, err)
	assert.Len(t, state, 64)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "acme.myshopify.com", u.Host)
	assert.Equal(t, "/admin/oauth/authorize", u.Path)
	assert.Equal(t, "client-123", u.Query().Get("client_id"))
	assert.Equal(t, OAuthScopes, u.Query().Get("scope"))
	assert.Equal(t, state, u.Query().Get("state"))
}

func TestValidateCallback(t *testing.T) {
	svc := NewOAuthService(&config.Config{ShopifyClientSecret: "app-secret"}, logger.Nop())

	query := url.Values{"code": {"abc"}, "shop": {"acme.myshopify.com"}, "state": {"xyz"}, "timestamp": {"1700000000"}}
	query.Set("hmac", SignQuery(query, "app-secret"))
	assert.True(t, svc.ValidateCallback(query))

	query.Set("code", "tampered")
	assert.False(t, svc.ValidateCallback(query))

	query.Del("hmac")
	assert.False(t, svc.ValidateCallback(query))
}

func TestExchangeCodeForToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.URL.Path != "/admin/oauth/access_token" || r.Form.Get("code") != "good" {
			http.Error(w, "bad code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"shpat_new","scope":"read_customers"}`))
	}))
	defer srv.Close()

	svc := NewOAuthService(&config.Config{ShopifyClientID: "id", ShopifyClientSecret: "secret", ShopifyBaseURL: srv.URL}, logger.Nop())

	token, err := svc.ExchangeCodeForToken(context.Background(), "acme", "good")
	require.NoError(t, err)
	assert.Equal(t, "shpat_new", token.AccessToken)

	_, err = svc.ExchangeCodeForToken(context.Background(), "acme", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
