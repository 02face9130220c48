package service

import (
	"context"
	"fmt"

	"shop-assistant-be/internal/dto"
	"shop-assistant-be/internal/repository/specification"
	"shop-assistant-be/internal/repository/unitofwork"
)

// ICatalogService exposes read-only access to the product catalog.
// Ingestion happens out of band through the seed tooling.
type ICatalogService interface {
	GetProducts(ctx context.Context, request *dto.GetProductsRequest) (*dto.GetProductsResponse, error)
	GetProductBySKU(ctx context.Context, sku string) (*dto.GetProductDetailResponse, error)
}

type catalogService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewCatalogService(uowFactory unitofwork.RepositoryFactory) ICatalogService {
	return &catalogService{uowFactory: uowFactory}
}

const defaultPageSize = 20

func (cs *catalogService) GetProducts(ctx context.Context, request *dto.GetProductsRequest) (*dto.GetProductsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	page := request.Page
	if page < 1 {
		page = 1
	}
	pageSize := request.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	filterSpecs := []specification.Specification{}
	if request.Brand != "" {
		filterSpecs = append(filterSpecs, specification.ByBrand{Brand: request.Brand})
	}
	if request.Category != "" {
		filterSpecs = append(filterSpecs, specification.ByCategory{Category: request.Category})
	}
	if request.InStockOnly {
		filterSpecs = append(filterSpecs, specification.InStock{})
	}

	total, err := uow.ProductRepository().Count(ctx, filterSpecs...)
	if err != nil {
		return nil, err
	}

	listSpecs := append(filterSpecs,
		specification.OrderBy{Field: "name", Desc: false},
		specification.Pagination{Limit: pageSize, Offset: (page - 1) * pageSize},
	)
	products, err := uow.ProductRepository().FindAll(ctx, listSpecs...)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ProductDTO, 0, len(products))
	for _, p := range products {
		items = append(items, dto.ProductDTO{
			SKU:      p.SKU,
			Name:     p.Name,
			Brand:    p.Brand,
			Category: p.Category,
			Price:    p.Price,
			Stock:    p.Stock,
			Specs:    p.Attributes,
		})
	}

	return &dto.GetProductsResponse{
		Products: items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (cs *catalogService) GetProductBySKU(ctx context.Context, sku string) (*dto.GetProductDetailResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	product, err := uow.ProductRepository().FindOne(ctx, specification.BySKU{SKU: sku})
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("product not found or access denied")
	}

	return &dto.GetProductDetailResponse{
		Id:          product.Id,
		SKU:         product.SKU,
		Name:        product.Name,
		Brand:       product.Brand,
		Category:    product.Category,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		Specs:       product.Attributes,
	}, nil
}
