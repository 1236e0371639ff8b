package model

import "time"

// Roles a user account can hold.
const (
	RoleChild  = "CHILD"
	RoleParent = "PARENT"
	RoleAdmin  = "ADMIN"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	return r == RoleChild || r == RoleParent || r == RoleAdmin
}

type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null;size:255" json:"name"`
	Email        string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Role         string    `gorm:"not null;size:20;default:CHILD" json:"role"`
	ParentID     *int64    `json:"parentId,omitempty"`
	Provider     string    `gorm:"size:20" json:"-"`
	ProviderID   string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
