package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"storesync/internal/logger"
)

var ErrNoWebhooksRegistered = errors.New("failed to register webhooks with Shopify")

// Registrar keeps the shop's subscriptions for this deployment's callback
// host equal to its topic list. Register is not atomic: if it fails after
// the unregister step the shop is left without subscriptions.
type Registrar struct {
	callbackURL string
	topics      []string
	logger      *logger.Logger
}

func NewRegistrar(callbackURL string, topics []string, logger *logger.Logger) *Registrar {
	return &Registrar{
		callbackURL: callbackURL,
		topics:      topics,
		logger:      logger,
	}
}

func (r *Registrar) CallbackURL() string {
	return r.callbackURL
}

// Register drops every subscription pointing at our host, then creates one
// per topic. A topic that fails to register is logged and skipped.
func (r *Registrar) Register(ctx context.Context, client *Client) ([]Webhook, error) {
	if _, err := r.Unregister(ctx, client); err != nil {
		return nil, err
	}

	var created []Webhook
	for _, topic := range r.topics {
		webhook, err := client.CreateWebhook(ctx, topic, r.callbackURL)
		if err != nil {
			r.logger.Error("Failed to register webhook %s: %v", topic, err)
			continue
		}
		created = append(created, *webhook)
	}

	if len(created) == 0 {
		return nil, ErrNoWebhooksRegistered
	}

	r.logger.Info("Registered %d webhooks for %s", len(created), r.callbackURL)
	return created, nil
}

// Unregister deletes the subscriptions whose address is on our callback host
// and leaves the others alone. It returns how many were deleted.
func (r *Registrar) Unregister(ctx context.Context, client *Client) (int, error) {
	webhooks, err := client.ListWebhooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch webhooks: %w", err)
	}

	deleted := 0
	for _, webhook := range webhooks {
		if !r.owns(webhook.Address) {
			continue
		}
		if err := client.DeleteWebhook(ctx, webhook.ID); err != nil {
			return deleted, fmt.Errorf("failed to unregister webhook %d: %w", webhook.ID, err)
		}
		deleted++
	}

	r.logger.Debug("Unregistered %d webhooks for %s", deleted, r.callbackURL)
	return deleted, nil
}

func (r *Registrar) owns(address string) bool {
	ours := hostOf(r.callbackURL)
	return ours != "" && hostOf(address) == ours
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
