package model

import "time"

type User struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsRegister   bool      `gorm:"default:false" json:"isRegister"`
	IsConfirmed  bool      `gorm:"default:false" json:"isConfirmed"`
	CreatedAt    time.Time `json:"createdAt"`

	Codes []UserCode `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Tasks []Task     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
