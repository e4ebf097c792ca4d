package models

import (
	"time"

	"gorm.io/gorm"
)

type Set struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"not null"`
	UserID    uint           `json:"user_id" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	User  User   `json:"user,omitempty"`
	Cards []Card `json:"cards,omitempty" gorm:"foreignKey:SetID"`
}
