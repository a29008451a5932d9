package models

import "gorm.io/gorm"

// User represents an application account that owns a catalog of materials
// and recipes.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
}
