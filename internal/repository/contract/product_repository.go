package contract

import (
	"context"

	"github.com/google/uuid"

	"shop-assistant-be/internal/entity"
	"shop-assistant-be/internal/repository/specification"
)

// ScoredProduct wraps a Product with its retrieval score.
type ScoredProduct struct {
	Product *entity.Product
	Score   float64 // 0.0 to 1.0 (1.0 = best match)
}

// ProductFilter narrows a search at the SQL level.
type ProductFilter struct {
	Brand       string
	Category    string
	InStockOnly bool
}

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	CreateBulk(ctx context.Context, products []*entity.Product) error
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Product, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Product, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// Advanced
	SearchText(ctx context.Context, query string, filter ProductFilter, limit int) ([]*ScoredProduct, error)
	// SearchVector returns products by embedding similarity, filtered by
	// threshold and deduplicated per product (best chunk wins).
	SearchVector(ctx context.Context, embedding []float32, filter ProductFilter, limit int, threshold float64) ([]*ScoredProduct, error)
	SearchHybrid(ctx context.Context, query string, embedding []float32, filter ProductFilter, limit int) ([]*ScoredProduct, error)
}

type ProductEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.ProductEmbedding) error
	CreateBulk(ctx context.Context, embeddings []*entity.ProductEmbedding) error
	DeleteByProductId(ctx context.Context, productId uuid.UUID) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
