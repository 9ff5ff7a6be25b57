// Package connectors manages connector settings and keeps the shop's
// webhook subscriptions in step with the enabled flag.
package connectors

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"storesync/internal/logger"
	"storesync/internal/models"
	"storesync/internal/services/shopify"
)

var ErrNotFound = errors.New("connector not found")

type Service struct {
	db        *gorm.DB
	logger    *logger.Logger
	sessions  *shopify.Sessions
	registrar *shopify.Registrar
}

func NewService(db *gorm.DB, logger *logger.Logger, sessions *shopify.Sessions, registrar *shopify.Registrar) *Service {
	return &Service{
		db:        db,
		logger:    logger,
		sessions:  sessions,
		registrar: registrar,
	}
}

func (s *Service) Get(ctx context.Context, id string) (*models.Connector, error) {
	var conn models.Connector
	err := s.db.WithContext(ctx).Preload("Webhooks").First(&conn, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (s *Service) GetByShop(ctx context.Context, shopDomain string) (*models.Connector, error) {
	var conn models.Connector
	err := s.db.WithContext(ctx).Where("shop_domain = ?", shopify.NormalizeShopDomain(shopDomain)).First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// Save normalizes and stores the connector. An enabled connector with no
// recorded subscriptions registers them first; a disabled one drops them.
// Nothing is stored when that step fails.
func (s *Service) Save(ctx context.Context, conn *models.Connector) error {
	conn.ShopDomain = shopify.NormalizeShopDomain(conn.ShopDomain)
	if conn.ShopDomain == "" {
		return errors.New("shop domain is required")
	}
	if conn.Name == "" {
		conn.Name = conn.ShopDomain
	}
	conn.ApplyDefaults()

	if err := s.applyWebhookState(ctx, conn); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Webhooks").Save(conn).Error; err != nil {
			return fmt.Errorf("failed to save connector: %w", err)
		}
		if err := tx.Where("connector_id = ?", conn.ID).Delete(&models.ConnectorWebhook{}).Error; err != nil {
			return fmt.Errorf("failed to clear webhooks: %w", err)
		}
		for i := range conn.Webhooks {
			conn.Webhooks[i].ID = ""
			conn.Webhooks[i].ConnectorID = conn.ID
		}
		if len(conn.Webhooks) > 0 {
			if err := tx.Create(&conn.Webhooks).Error; err != nil {
				return fmt.Errorf("failed to save webhooks: %w", err)
			}
		}
		return nil
	})
}

// Reregister drops the recorded subscriptions and registers them again.
func (s *Service) Reregister(ctx context.Context, conn *models.Connector) error {
	if !conn.Enabled {
		return shopify.ErrNotEnabled
	}
	conn.Webhooks = nil
	return s.Save(ctx, conn)
}

// Delete unregisters the connector's subscriptions and removes it.
func (s *Service) Delete(ctx context.Context, conn *models.Connector) error {
	if conn.AccessToken != "" {
		client, err := s.sessions.Client(conn)
		if err != nil {
			return err
		}
		if _, err := s.registrar.Unregister(ctx, client); err != nil {
			return err
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("connector_id = ?", conn.ID).Delete(&models.ConnectorWebhook{}).Error; err != nil {
			return err
		}
		return tx.Delete(conn).Error
	})
}

func (s *Service) applyWebhookState(ctx context.Context, conn *models.Connector) error {
	switch {
	case conn.Enabled && len(conn.Webhooks) == 0:
		client, err := s.sessions.Client(conn)
		if err != nil {
			return err
		}
		created, err := s.registrar.Register(ctx, client)
		if err != nil {
			conn.Status = models.ConnectorStatusError
			return fmt.Errorf("%w. Please check credentials and retry", err)
		}

		conn.Webhooks = make([]models.ConnectorWebhook, 0, len(created))
		for _, webhook := range created {
			conn.Webhooks = append(conn.Webhooks, models.ConnectorWebhook{
				WebhookID: shopify.FormatID(webhook.ID),
				Method:    webhook.Topic,
			})
		}
		conn.Status = models.ConnectorStatusActive
		s.logger.Info("Registered %d webhooks for %s", len(created), conn.ShopDomain)

	case !conn.Enabled:
		// A connector that never had credentials has nothing to unregister.
		if conn.AccessToken != "" {
			client, err := s.sessions.Client(conn)
			if err != nil {
				return err
			}
			if _, err := s.registrar.Unregister(ctx, client); err != nil {
				return err
			}
		}
		conn.Webhooks = nil
		conn.Status = models.ConnectorStatusInactive
	}
	return nil
}
