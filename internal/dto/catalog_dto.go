package dto

import (
	"github.com/google/uuid"
)

type GetProductsRequest struct {
	Brand       string `query:"brand"`
	Category    string `query:"category"`
	InStockOnly bool   `query:"in_stock_only"`
	Page        int    `query:"page" validate:"omitempty,min=1"`
	PageSize    int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

type GetProductsResponse struct {
	Products []ProductDTO `json:"products"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

type GetProductDetailResponse struct {
	Id          uuid.UUID         `json:"id"`
	SKU         string            `json:"sku"`
	Name        string            `json:"name"`
	Brand       string            `json:"brand"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	Stock       int               `json:"stock"`
	Specs       map[string]string `json:"specs,omitempty"`
}
