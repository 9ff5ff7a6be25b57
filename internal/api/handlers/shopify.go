package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storesync/internal/config"
	"storesync/internal/logger"
	"storesync/internal/metrics"
	"storesync/internal/models"
	"storesync/internal/services/connectors"
	"storesync/internal/services/shopify"
)

// maxWebhookBytes caps the body read on the unauthenticated webhook route.
const maxWebhookBytes = 2 << 20

type ShopifyHandler struct {
	db           *gorm.DB
	logger       *logger.Logger
	config       *config.Config
	oauthService *shopify.OAuthService
	sessions     *shopify.Sessions
	connectors   *connectors.Service
	jobs         *JobQueue
}

func NewShopifyHandler(db *gorm.DB, logger *logger.Logger, config *config.Config, sessions *shopify.Sessions, service *connectors.Service, jobs *JobQueue) *ShopifyHandler {
	return &ShopifyHandler{
		db:           db,
		logger:       logger,
		config:       config,
		oauthService: shopify.NewOAuthService(config, logger),
		sessions:     sessions,
		connectors:   service,
		jobs:         jobs,
	}
}

// Install initiates the Shopify OAuth flow
func (h *ShopifyHandler) Install(c *gin.Context) {
	var request struct {
		ShopDomain  string `json:"shop_domain" binding:"required"`
		RedirectURI string `json:"redirect_uri"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	redirectURI := request.RedirectURI
	if redirectURI == "" {
		redirectURI = h.config.OAuthRedirectURL()
	}

	// Generate OAuth URL
	authURL, state, err := h.oauthService.GenerateAuthURL(request.ShopDomain, redirectURI)
	if err != nil {
		h.logger.Error("Failed to generate auth URL: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authorization URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"auth_url": authURL,
		"state":    state,
		"message":  "Redirect user to the auth_url to complete OAuth flow",
	})
}

// Callback handles the OAuth callback. A new shop gets an enabled
// connector, which registers its webhooks on save.
func (h *ShopifyHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Query("code")
	state := c.Query("state")
	shop := shopify.NormalizeShopDomain(c.Query("shop"))

	if code == "" || state == "" || shop == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	if !h.oauthService.ValidateCallback(c.Request.URL.Query()) {
		h.logger.Warn("Rejected OAuth callback for %s: bad hmac", shop)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid callback signature"})
		return
	}

	// Exchange code for access token
	tokenResp, err := h.oauthService.ExchangeCodeForToken(ctx, shop, code)
	if err != nil {
		h.logger.Error("Failed to exchange code for token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to exchange authorization code"})
		return
	}

	client, err := h.sessions.Client(&models.Connector{ShopDomain: shop, AccessToken: tokenResp.AccessToken})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	shopInfo, err := client.GetShopInfo(ctx)
	if err != nil {
		h.logger.Error("Failed to get shop info: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get shop information"})
		return
	}

	connector, err := h.connectors.GetByShop(ctx, shop)
	switch {
	case errors.Is(err, connectors.ErrNotFound):
		connector = &models.Connector{
			Name:         shopInfo.Name,
			ShopDomain:   shop,
			SharedSecret: h.config.ShopifyClientSecret,
			Enabled:      true,
		}
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch connector"})
		return
	}
	connector.AccessToken = tokenResp.AccessToken

	if err := h.connectors.Save(ctx, connector); err != nil {
		h.logger.Error("Failed to save connector: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save connector"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Shopify store connected successfully",
		"connector_id": connector.ID,
		"shop_name":    shopInfo.Name,
	})
}

// Webhook verifies a Shopify webhook, logs it and queues the job for its
// topic. Processing happens in the worker; this handler only acknowledges.
func (h *ShopifyHandler) Webhook(c *gin.Context) {
	ctx := c.Request.Context()
	topic := c.GetHeader(shopify.HeaderTopic)
	label := shopify.TopicLabel(topic)
	shopDomain := c.GetHeader(shopify.HeaderShopDomain)
	signature := c.GetHeader(shopify.HeaderHmac)

	if topic == "" || shopDomain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required headers"})
		return
	}

	// The signature covers the raw body, so it is read before any parsing.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	payload, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.IncWebhookReceived(label, "too_large")
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}

	connector, err := h.connectors.GetByShop(ctx, shopDomain)
	if err != nil {
		if errors.Is(err, connectors.ErrNotFound) {
			h.logger.Warn("Webhook %s from unknown shop %s", topic, shopDomain)
			metrics.IncWebhookReceived(label, "unknown_shop")
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown shop"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch connector"})
		return
	}

	if err := shopify.VerifySignature(payload, signature, connector.SharedSecret); err != nil {
		h.logger.Error("Unverified webhook %s from %s", topic, shopDomain)
		h.recordInvalid(c, connector, topic, payload)
		metrics.IncWebhookReceived(label, "invalid")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unverified Webhook Data"})
		return
	}

	method, ok := shopify.EventMethods[topic]
	if !ok {
		h.logger.Debug("Unhandled webhook topic: %s", topic)
		metrics.IncWebhookReceived(label, "ignored")
		c.JSON(http.StatusOK, gin.H{"message": "Webhook received but not processed"})
		return
	}

	if !json.Valid(payload) {
		metrics.IncWebhookReceived(label, "invalid")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	if !connector.Enabled {
		metrics.IncWebhookReceived(label, "ignored")
		c.JSON(http.StatusOK, gin.H{"message": "Shopify integration is not enabled, webhook ignored"})
		return
	}

	entry, err := h.jobs.Submit(ctx, connector.ID, method, payload)
	if err != nil {
		metrics.IncWebhookReceived(label, "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue webhook"})
		return
	}

	metrics.IncWebhookReceived(label, "queued")
	c.JSON(http.StatusOK, gin.H{
		"message": "Webhook queued",
		"log_id":  entry.ID,
	})
}

func (h *ShopifyHandler) recordInvalid(c *gin.Context, connector *models.Connector, topic string, payload []byte) {
	entry := &models.IntegrationLog{
		ConnectorID: connector.ID,
		Method:      shopify.EventMethods[topic],
		Status:      models.LogStatusInvalid,
		RequestData: string(payload),
		Message:     "Unverified Webhook Data (" + topic + ")",
	}
	if err := h.db.WithContext(c.Request.Context()).Create(entry).Error; err != nil {
		h.logger.Error("Failed to record invalid webhook: %v", err)
	}
}
