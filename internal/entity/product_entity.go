package entity

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SKU         string
	Name        string
	Brand       string
	Category    string
	Description string
	Price       float64
	Stock       int
	// Attributes holds the technical specs (current, sensitivity, poles...)
	// keyed the same way the knowledge base extracts them.
	Attributes map[string]string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}

type ProductEmbedding struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Document       string
	EmbeddingValue []float32
	ProductId      uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
