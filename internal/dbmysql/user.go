package dbmysql

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	UserID       uint64         `gorm:"primaryKey;column:user_id;autoIncrement" json:"user_id"`
	Handle       string         `gorm:"column:handle;uniqueIndex;size:50;not null" json:"handle"`
	PasswordHash string         `gorm:"column:password_hash;size:255;not null" json:"-"`
	Email        string         `gorm:"column:email;size:255" json:"email"`
	Role         string         `gorm:"column:role;size:20;not null" json:"role"`
	Status       string         `gorm:"column:status;size:20;not null" json:"status"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// UserPresence is the persisted online flag. Connections counts live sessions so
// a user with two tabs open stays online until the last one closes.
type UserPresence struct {
	UserID       uint64    `gorm:"primaryKey;column:user_id;autoIncrement:false" json:"user_id"`
	IsOnline     bool      `gorm:"column:is_online;not null;index" json:"is_online"`
	Connections  int       `gorm:"column:connections;not null" json:"-"`
	LastActivity time.Time `gorm:"column:last_activity" json:"last_activity"`
	IPAddress    string    `gorm:"column:ip_address;size:45" json:"-"`
	UserAgent    string    `gorm:"column:user_agent;size:255" json:"-"`
}
