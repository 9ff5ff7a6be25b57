package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storesync/internal/logger"
	"storesync/internal/models"
)

type LogHandler struct {
	db     *gorm.DB
	jobs   *JobQueue
	logger *logger.Logger
}

func NewLogHandler(db *gorm.DB, jobs *JobQueue, logger *logger.Logger) *LogHandler {
	return &LogHandler{
		db:     db,
		jobs:   jobs,
		logger: logger,
	}
}

func (h *LogHandler) List(c *gin.Context) {
	var entries []models.IntegrationLog

	page, limit, offset := pagination(c)

	// Filters
	status := c.Query("status")
	method := c.Query("method")
	connectorID := c.Query("connector_id")

	query := h.db.Model(&models.IntegrationLog{})

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if method != "" {
		query = query.Where("method = ?", method)
	}

	if connectorID != "" {
		query = query.Where("connector_id = ?", connectorID)
	}

	var total int64
	query.Count(&total)

	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		h.logger.Error("Failed to fetch logs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": entries,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (h *LogHandler) Get(c *gin.Context) {
	entry, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entry})
}

// Retry queues a failed job again with its original payload.
func (h *LogHandler) Retry(c *gin.Context) {
	entry, ok := h.load(c)
	if !ok {
		return
	}

	if entry.Status != models.LogStatusError || entry.Method == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "Only failed jobs can be retried"})
		return
	}

	if err := h.jobs.Resubmit(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": entry})
}

func (h *LogHandler) load(c *gin.Context) (*models.IntegrationLog, bool) {
	id := c.Param("id")

	var entry models.IntegrationLog
	if err := h.db.First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Log not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch log"})
		return nil, false
	}
	return &entry, true
}
