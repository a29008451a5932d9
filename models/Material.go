package models

import (
	"gorm.io/gorm"
)

// Material is a raw material tracked by the stock catalog. Soft deletion
// retires the material: historical recipes and production records keep
// referencing it, but it is excluded from new selection and treated as
// unavailable during resolution.
type Material struct {
	gorm.Model
	Name       string  `gorm:"not null;index" json:"name"`
	Unit       string  `gorm:"not null;default:ml" json:"unit"`
	Quantity   float64 `gorm:"not null;default:0" json:"quantity"`
	Price      float64 `gorm:"not null;default:0" json:"price"`
	PackAmount float64 `gorm:"not null;default:1" json:"pack_amount"`
	MinStock   float64 `gorm:"not null;default:0" json:"min_stock"`
	OwnerID    uint    `gorm:"not null;index" json:"owner_id"`
	Owner      *User   `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// Retired reports whether the material has been soft-deleted.
func (m *Material) Retired() bool {
	return m.DeletedAt.Valid
}

// BelowMinStock reports whether current stock has fallen to or under the
// configured reorder threshold.
func (m *Material) BelowMinStock() bool {
	return m.Quantity <= m.MinStock
}
