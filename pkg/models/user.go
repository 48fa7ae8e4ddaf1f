package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reserved role group names.
const (
	GroupUser  = "user"
	GroupAdmin = "admin"
)

type User struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username    string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"type:varchar(255);not null" json:"-"`
	IsStaff     bool      `gorm:"not null;default:false" json:"isStaff"`
	IsSuperuser bool      `gorm:"not null;default:false" json:"isSuperuser"`
	Groups      []Group   `gorm:"many2many:user_groups" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// GroupNames returns the user's role names in assignment order.
func (u *User) GroupNames() []string {
	names := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		names = append(names, g.Name)
	}
	return names
}

// Group is a named role. "user" and "admin" are reserved and seeded at
// startup; membership is replaced, not accumulated, by role mutations.
type Group struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Group) TableName() string {
	return "groups"
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
