package account

import (
	"time"
)

// User is the credit account holder. Credits is a non-negative balance and
// every mutation goes through the atomic Reserve/Grant primitives, never a
// read-then-write.
type User struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	Email        string    `gorm:"column:email;uniqueIndex" json:"email"`
	Name         string    `gorm:"column:name" json:"name"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	Credits      int64     `gorm:"column:credits;not null;default:0" json:"credits"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
