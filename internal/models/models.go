package models

import "time"

const (
	StatusActive = "active"
	StatusLocked = "locked"
)

type Account struct {
	ID           uint       `gorm:"primaryKey;autoIncrement"   json:"id"`
	Username     string     `gorm:"uniqueIndex;not null"       json:"username"`
	PasswordHash string     `gorm:"not null"                   json:"-"`
	FullName     string     `gorm:"not null"                   json:"full_name"`
	Email        string     `gorm:"uniqueIndex;not null"       json:"email"`
	Status       string     `gorm:"not null;default:active"    json:"status"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	RoleID       uint       `gorm:"index"                      json:"role_id"`
	Role         Role       `gorm:"foreignKey:RoleID"          json:"-"`
}

type Role struct {
	ID          uint         `gorm:"primaryKey"          json:"id"`
	Name        string       `gorm:"uniqueIndex;not null" json:"name"`
	Description string       `json:"description"`
	Color       string       `json:"color"`
	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
}

type Permission struct {
	ID   uint   `gorm:"primaryKey"           json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// RefreshToken holds one issued refresh credential. Only the sha-256 hex of
// the signed token is stored, never the raw value. Rows are revoked, not
// deleted; deleting an account cascades to its tokens.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	JTI       string    `gorm:"uniqueIndex;not null" json:"jti"`
	AccountID uint      `gorm:"index;not null"       json:"account_id"`
	Account   Account   `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"index;not null"       json:"expires_at"`
	Revoked   bool      `gorm:"default:false"        json:"revoked"`
}
