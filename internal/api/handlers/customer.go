package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storesync/internal/logger"
	"storesync/internal/models"
)

type CustomerHandler struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewCustomerHandler(db *gorm.DB, logger *logger.Logger) *CustomerHandler {
	return &CustomerHandler{
		db:     db,
		logger: logger,
	}
}

func (h *CustomerHandler) List(c *gin.Context) {
	var customers []models.Customer

	page, limit, offset := pagination(c)

	// Filters
	connectorID := c.Query("connector_id")
	disabled := c.Query("disabled")
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))

	query := h.db.Model(&models.Customer{})

	if connectorID != "" {
		query = query.Where("connector_id = ?", connectorID)
	}

	if disabled != "" {
		if value, err := strconv.ParseBool(disabled); err == nil {
			query = query.Where("disabled = ?", value)
		}
	}

	if search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(customer_name) LIKE ? OR LOWER(email_id) LIKE ? OR phone LIKE ?", like, like, like)
	}

	var total int64
	query.Count(&total)

	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&customers).Error; err != nil {
		h.logger.Error("Failed to fetch customers: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch customers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": customers,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (h *CustomerHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var customer models.Customer
	err := h.db.Preload("Addresses").Preload("Contact").
		Where("id = ? OR shopify_customer_id = ?", id, id).First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch customer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": customer})
}

// pagination reads page and limit, capping limit at 100.
func pagination(c *gin.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}
