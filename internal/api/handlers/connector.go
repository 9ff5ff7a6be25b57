package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storesync/internal/logger"
	"storesync/internal/models"
	"storesync/internal/services/connectors"
	"storesync/internal/services/shopify"
)

type ConnectorHandler struct {
	db      *gorm.DB
	service *connectors.Service
	jobs    *JobQueue
	logger  *logger.Logger
}

func NewConnectorHandler(db *gorm.DB, service *connectors.Service, jobs *JobQueue, logger *logger.Logger) *ConnectorHandler {
	return &ConnectorHandler{
		db:      db,
		service: service,
		jobs:    jobs,
		logger:  logger,
	}
}

// connectorRequest carries the settings a client may change. Credentials
// are write-only and never returned.
type connectorRequest struct {
	Name          string `json:"name"`
	ShopDomain    string `json:"shop_domain"`
	AccessToken   string `json:"access_token"`
	SharedSecret  string `json:"shared_secret"`
	Enabled       *bool  `json:"enabled"`
	CustomerGroup string `json:"customer_group"`
	Territory     string `json:"territory"`
}

func (r *connectorRequest) apply(conn *models.Connector) {
	if r.Name != "" {
		conn.Name = r.Name
	}
	if r.ShopDomain != "" {
		conn.ShopDomain = r.ShopDomain
	}
	if r.AccessToken != "" {
		conn.AccessToken = r.AccessToken
	}
	if r.SharedSecret != "" {
		conn.SharedSecret = r.SharedSecret
	}
	if r.Enabled != nil {
		conn.Enabled = *r.Enabled
	}
	if r.CustomerGroup != "" {
		conn.CustomerGroup = r.CustomerGroup
	}
	if r.Territory != "" {
		conn.Territory = r.Territory
	}
}

func (h *ConnectorHandler) List(c *gin.Context) {
	var list []models.Connector

	if err := h.db.Preload("Webhooks").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch connectors"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *ConnectorHandler) Get(c *gin.Context) {
	connector, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": connector})
}

func (h *ConnectorHandler) Create(c *gin.Context) {
	var request connectorRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if request.ShopDomain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shop_domain is required"})
		return
	}

	var connector models.Connector
	request.apply(&connector)

	if err := h.service.Save(c.Request.Context(), &connector); err != nil {
		h.saveError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": connector})
}

func (h *ConnectorHandler) Update(c *gin.Context) {
	connector, ok := h.load(c)
	if !ok {
		return
	}

	var request connectorRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	request.apply(connector)

	if err := h.service.Save(c.Request.Context(), connector); err != nil {
		h.saveError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": connector})
}

func (h *ConnectorHandler) Delete(c *gin.Context) {
	connector, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), connector); err != nil {
		h.logger.Error("Failed to delete connector %s: %v", connector.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to delete connector: " + err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// Sync queues a full customer import on the long queue.
func (h *ConnectorHandler) Sync(c *gin.Context) {
	connector, ok := h.load(c)
	if !ok {
		return
	}

	if !connector.Enabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Shopify integration is not enabled"})
		return
	}

	entry, err := h.jobs.Submit(c.Request.Context(), connector.ID, shopify.MethodCustomerSyncAll, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start customer import"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Customer import has been initiated in the background.",
		"log_id":  entry.ID,
	})
}

// RegisterWebhooks replaces the shop's subscriptions for this deployment.
func (h *ConnectorHandler) RegisterWebhooks(c *gin.Context) {
	connector, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.service.Reregister(c.Request.Context(), connector); err != nil {
		h.saveError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": connector})
}

func (h *ConnectorHandler) load(c *gin.Context) (*models.Connector, bool) {
	connector, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, connectors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Connector not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch connector"})
		return nil, false
	}
	return connector, true
}

// saveError reports settings the shop rejected as a client error.
func (h *ConnectorHandler) saveError(c *gin.Context, err error) {
	h.logger.Error("Failed to save connector: %v", err)

	var apiErr *shopify.APIError
	switch {
	case errors.Is(err, shopify.ErrMissingCredentials),
		errors.Is(err, shopify.ErrNotEnabled),
		errors.Is(err, shopify.ErrNoWebhooksRegistered),
		errors.As(err, &apiErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save connector"})
	}
}
