package shopify

import (
	"context"
	"errors"
	"strings"

	"storesync/internal/config"
	"storesync/internal/logger"
	"storesync/internal/models"
)

var (
	ErrNotEnabled         = errors.New("shopify integration is not enabled")
	ErrMissingCredentials = errors.New("shopify URL or access token is not set")
)

// Sessions hands out authenticated clients for connectors.
type Sessions struct {
	logger *logger.Logger
	opts   ClientOptions
}

func NewSessions(logger *logger.Logger, opts ClientOptions) *Sessions {
	return &Sessions{
		logger: logger,
		opts:   opts,
	}
}

// OptionsFromConfig reads the client settings from cfg.
func OptionsFromConfig(cfg *config.Config) ClientOptions {
	return ClientOptions{
		BaseURL:    cfg.ShopifyBaseURL,
		APIVersion: cfg.ShopifyAPIVersion,
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.ShopifyMaxRetries,
	}
}

// Client builds a client for the connector without checking that it is enabled.
func (s *Sessions) Client(conn *models.Connector) (*Client, error) {
	if conn.ShopDomain == "" || conn.AccessToken == "" {
		s.logger.Error("Shopify auth error for connector %s: missing shop URL or access token", conn.ID)
		return nil, ErrMissingCredentials
	}
	return NewClient(conn.ShopDomain, conn.AccessToken, s.logger.With("shop", conn.ShopDomain), s.opts), nil
}

// With runs fn with a client scoped to this call. It refuses disabled connectors.
func (s *Sessions) With(ctx context.Context, conn *models.Connector, fn func(ctx context.Context, client *Client) error) error {
	if !conn.Enabled {
		return ErrNotEnabled
	}

	client, err := s.Client(conn)
	if err != nil {
		return err
	}

	s.logger.Debug("Opening Shopify session for %s (api %s)", conn.ShopDomain, client.apiVersion)
	return fn(ctx, client)
}

// NormalizeShopDomain reduces user input to a bare shop host such as
// "acme.myshopify.com".
func NormalizeShopDomain(shop string) string {
	s := strings.ToLower(strings.TrimSpace(shop))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if s != "" && !strings.Contains(s, ".") {
		s += ".myshopify.com"
	}
	return s
}
