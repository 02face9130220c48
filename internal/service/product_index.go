package service

import (
	"context"

	"shop-assistant-be/internal/entity"
	"shop-assistant-be/internal/repository/contract"
	"shop-assistant-be/pkg/assistant/search"
	"shop-assistant-be/pkg/store"
)

// vectorThreshold drops weak similarity matches before they reach the
// orchestrator.
const vectorThreshold = 0.35

// ProductIndex adapts the product repository to the retrieval
// orchestrator's index contract.
type ProductIndex struct {
	products contract.ProductRepository
}

func NewProductIndex(products contract.ProductRepository) *ProductIndex {
	return &ProductIndex{products: products}
}

func (x *ProductIndex) SearchText(ctx context.Context, query string, filters search.Filters, limit int) ([]store.Candidate, error) {
	scored, err := x.products.SearchText(ctx, query, toProductFilter(filters), limit)
	if err != nil {
		return nil, err
	}
	return toCandidates(scored), nil
}

func (x *ProductIndex) SearchVector(ctx context.Context, vector []float32, filters search.Filters, limit int) ([]store.Candidate, error) {
	scored, err := x.products.SearchVector(ctx, vector, toProductFilter(filters), limit, vectorThreshold)
	if err != nil {
		return nil, err
	}
	return toCandidates(scored), nil
}

func (x *ProductIndex) SearchHybrid(ctx context.Context, query string, vector []float32, filters search.Filters, limit int) ([]store.Candidate, error) {
	scored, err := x.products.SearchHybrid(ctx, query, vector, toProductFilter(filters), limit)
	if err != nil {
		return nil, err
	}
	return toCandidates(scored), nil
}

func toProductFilter(filters search.Filters) contract.ProductFilter {
	return contract.ProductFilter{
		Brand:       filters.Brand,
		Category:    filters.Category,
		InStockOnly: filters.InStockOnly,
	}
}

func toCandidates(scored []*contract.ScoredProduct) []store.Candidate {
	out := make([]store.Candidate, 0, len(scored))
	for _, s := range scored {
		out = append(out, toCandidate(s.Product, s.Score))
	}
	return out
}

func toCandidate(p *entity.Product, score float64) store.Candidate {
	specs := make(map[string]string, len(p.Attributes))
	for key, value := range p.Attributes {
		specs[key] = value
	}
	return store.Candidate{
		ID:       p.SKU,
		Name:     p.Name,
		Brand:    p.Brand,
		Category: p.Category,
		Price:    p.Price,
		Stock:    p.Stock,
		Specs:    specs,
		Score:    score,
	}
}
