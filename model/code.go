package model

import "time"

// UserCode is a single-use 6 digit login confirmation code. Only the
// newest code for a user is meaningful, older ones get replaced on
// every login
type UserCode struct {
	ID        int    `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"index;not null"`
	Code      int    `gorm:"not null"`
	CreatedAt time.Time
}
