package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review belongs to exactly one product and is removed together with it.
// UserID records the author; update and delete are restricted to the
// author or an admin.
type Review struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Rating    int       `gorm:"not null" json:"rating"`
	ProductID string    `gorm:"type:varchar(36);not null;index" json:"productId"`
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Review) TableName() string {
	return "reviews"
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
