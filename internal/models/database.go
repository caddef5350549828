package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel provides common fields for all database models
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// KeyValue is one persisted device-local setting
type KeyValue struct {
	Key       string    `json:"key" gorm:"column:storage_key;primaryKey;size:191"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// ScheduledNotification is a locally scheduled reminder
type ScheduledNotification struct {
	BaseModel

	Identifier string `json:"identifier" gorm:"not null;size:100;uniqueIndex"`
	Title      string `json:"title" gorm:"not null"`
	Body       string `json:"body" gorm:"type:text"`

	// Trigger: daily at Hour:Minute when Repeats, otherwise fire once as soon as possible
	Hour    int  `json:"hour"`
	Minute  int  `json:"minute"`
	Repeats bool `json:"repeats"`

	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`
}
