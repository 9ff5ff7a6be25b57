package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IntegrationLog records one inbound event or sync run. Its ID travels with
// the queued job so the worker can report back.
type IntegrationLog struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ConnectorID string    `json:"connector_id" gorm:"type:varchar(36);index"`
	Integration string    `json:"integration" gorm:"default:shopify"`
	Method      string    `json:"method" gorm:"index"`
	Status      LogStatus `json:"status" gorm:"index;not null"`
	RequestData string    `json:"request_data" gorm:"type:text"`
	Message     string    `json:"message" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type LogStatus string

const (
	LogStatusQueued  LogStatus = "Queued"
	LogStatusSuccess LogStatus = "Success"
	LogStatusError   LogStatus = "Error"
	LogStatusInvalid LogStatus = "Invalid"
)

func (l *IntegrationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Integration == "" {
		l.Integration = "shopify"
	}
	return nil
}
