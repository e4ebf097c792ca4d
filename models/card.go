package models

import (
	"time"

	"gorm.io/gorm"
)

type Card struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	SetID     uint           `json:"set_id" gorm:"not null"`
	Front     string         `json:"front" gorm:"not null"`
	Back      string         `json:"back" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Set Set `json:"set,omitempty"`
}
