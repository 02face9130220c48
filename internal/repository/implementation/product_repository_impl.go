package implementation

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"shop-assistant-be/internal/entity"
	"shop-assistant-be/internal/mapper"
	"shop-assistant-be/internal/model"
	"shop-assistant-be/internal/repository/contract"
	"shop-assistant-be/internal/repository/specification"
)

const (
	defaultSearchLimit = 20
	// hybrid weighting: vector similarity carries more signal than the
	// lexical token overlap.
	hybridVectorWeight = 0.6
	hybridTextWeight   = 0.4
)

type ProductRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ProductMapper
}

func NewProductRepository(db *gorm.DB) contract.ProductRepository {
	return &ProductRepositoryImpl{
		db:     db,
		mapper: mapper.NewProductMapper(),
	}
}

func (r *ProductRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ProductRepositoryImpl) Create(ctx context.Context, product *entity.Product) error {
	m := r.mapper.ToModel(product)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*product = *r.mapper.ToEntity(m)
	return nil
}

func (r *ProductRepositoryImpl) CreateBulk(ctx context.Context, products []*entity.Product) error {
	models := make([]*model.Product, len(products))
	for i, p := range products {
		models[i] = r.mapper.ToModel(p)
	}
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*products[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ProductRepositoryImpl) Update(ctx context.Context, product *entity.Product) error {
	m := r.mapper.ToModel(product)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*product = *r.mapper.ToEntity(m)
	return nil
}

func (r *ProductRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Product{}, id).Error
}

func (r *ProductRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Product, error) {
	var m model.Product
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ProductRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Product, error) {
	var models []*model.Product
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Product, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *ProductRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Product{}).Count(&count).Error
	return count, err
}

// SearchText matches any query token against name, description, brand
// and category with ILIKE, then scores by token coverage in Go.
func (r *ProductRepositoryImpl) SearchText(ctx context.Context, query string, filter contract.ProductFilter, limit int) ([]*contract.ScoredProduct, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	tokens := searchTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	clauses := make([]string, 0, len(tokens))
	args := make([]interface{}, 0, len(tokens)*4)
	for _, token := range tokens {
		pattern := "%" + token + "%"
		clauses = append(clauses, "(name ILIKE ? OR description ILIKE ? OR brand ILIKE ? OR category ILIKE ?)")
		args = append(args, pattern, pattern, pattern, pattern)
	}

	q := r.applyFilter(r.db.WithContext(ctx), filter).
		Model(&model.Product{}).
		Where("("+strings.Join(clauses, " OR ")+")", args...)

	var models []*model.Product
	// Over-fetch so coverage scoring decides the final cut, not the DB.
	if err := q.Limit(limit * 3).Find(&models).Error; err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredProduct, 0, len(models))
	for _, m := range models {
		p := r.mapper.ToEntity(m)
		scored = append(scored, &contract.ScoredProduct{
			Product: p,
			Score:   tokenCoverage(p, tokens),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// SearchVector ranks products by cosine similarity against their best
// embedding chunk. Cosine distance in pgvector is 1 - similarity.
func (r *ProductRepositoryImpl) SearchVector(ctx context.Context, embedding []float32, filter contract.ProductFilter, limit int, threshold float64) ([]*contract.ScoredProduct, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	type result struct {
		model.Product
		Score float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	q := r.db.WithContext(ctx).
		Table("products").
		Select("products.*, MAX(1 - (embedding_value <=> ?)) as score", queryVector).
		Joins("JOIN product_embeddings ON product_embeddings.product_id = products.id").
		Where("products.deleted_at IS NULL").
		Where("product_embeddings.deleted_at IS NULL")

	q = r.applyFilterAliased(q, filter)

	err := q.Group("products.id").
		Having("MAX(1 - (embedding_value <=> ?)) >= ?", queryVector, threshold).
		Order("score DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredProduct, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredProduct{
			Product: r.mapper.ToEntity(&res.Product),
			Score:   res.Score,
		}
	}
	return scored, nil
}

// SearchHybrid merges lexical and vector rankings with a weighted sum,
// keeping each product's best combined score.
func (r *ProductRepositoryImpl) SearchHybrid(ctx context.Context, query string, embedding []float32, filter contract.ProductFilter, limit int) ([]*contract.ScoredProduct, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	textScored, err := r.SearchText(ctx, query, filter, limit)
	if err != nil {
		return nil, err
	}
	vectorScored, err := r.SearchVector(ctx, embedding, filter, limit, 0)
	if err != nil {
		// Lexical results alone still serve the query.
		vectorScored = nil
	}

	combined := make(map[uuid.UUID]*contract.ScoredProduct)
	for _, s := range textScored {
		combined[s.Product.Id] = &contract.ScoredProduct{
			Product: s.Product,
			Score:   s.Score * hybridTextWeight,
		}
	}
	for _, s := range vectorScored {
		if existing, ok := combined[s.Product.Id]; ok {
			existing.Score += s.Score * hybridVectorWeight
			continue
		}
		combined[s.Product.Id] = &contract.ScoredProduct{
			Product: s.Product,
			Score:   s.Score * hybridVectorWeight,
		}
	}

	scored := make([]*contract.ScoredProduct, 0, len(combined))
	for _, s := range combined {
		scored = append(scored, s)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (r *ProductRepositoryImpl) applyFilter(db *gorm.DB, filter contract.ProductFilter) *gorm.DB {
	if filter.Brand != "" {
		db = db.Where("brand ILIKE ?", filter.Brand)
	}
	if filter.Category != "" {
		db = db.Where("category ILIKE ?", filter.Category)
	}
	if filter.InStockOnly {
		db = db.Where("stock > 0")
	}
	return db
}

// applyFilterAliased qualifies columns for the joined vector query.
func (r *ProductRepositoryImpl) applyFilterAliased(db *gorm.DB, filter contract.ProductFilter) *gorm.DB {
	if filter.Brand != "" {
		db = db.Where("products.brand ILIKE ?", filter.Brand)
	}
	if filter.Category != "" {
		db = db.Where("products.category ILIKE ?", filter.Category)
	}
	if filter.InStockOnly {
		db = db.Where("products.stock > 0")
	}
	return db
}

func searchTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// tokenCoverage is the fraction of query tokens present in the product's
// searchable text.
func tokenCoverage(p *entity.Product, tokens []string) float64 {
	var haystack strings.Builder
	haystack.WriteString(strings.ToLower(p.Name))
	haystack.WriteString(" ")
	haystack.WriteString(strings.ToLower(p.Description))
	haystack.WriteString(" ")
	haystack.WriteString(strings.ToLower(p.Brand))
	haystack.WriteString(" ")
	haystack.WriteString(strings.ToLower(p.Category))
	for _, value := range p.Attributes {
		haystack.WriteString(" ")
		haystack.WriteString(strings.ToLower(value))
	}
	text := haystack.String()

	matched := 0
	for _, token := range tokens {
		if strings.Contains(text, token) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}
