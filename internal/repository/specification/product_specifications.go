package specification

import "gorm.io/gorm"

// ByBrand filters products by brand (case-insensitive).
type ByBrand struct {
	Brand string
}

func (s ByBrand) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("brand ILIKE ?", s.Brand)
}

// ByCategory filters products by category (case-insensitive).
type ByCategory struct {
	Category string
}

func (s ByCategory) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("category ILIKE ?", s.Category)
}

// InStock keeps only products with units available.
type InStock struct{}

func (s InStock) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("stock > 0")
}

// BySKU filters by the exact catalog reference.
type BySKU struct {
	SKU string
}

func (s BySKU) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("sku = ?", s.SKU)
}
