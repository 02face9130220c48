package controller

import (
	"shop-assistant-be/internal/dto"
	"shop-assistant-be/internal/pkg/serverutils"
	"shop-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICatalogController interface {
	RegisterRoutes(r fiber.Router)
	GetProducts(ctx *fiber.Ctx) error
	GetProduct(ctx *fiber.Ctx) error
}

type catalogController struct {
	catalogService service.ICatalogService
}

func NewCatalogController(catalogService service.ICatalogService) ICatalogController {
	return &catalogController{
		catalogService: catalogService,
	}
}

func (c *catalogController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/catalog/v1")
	h.Get("/product", c.GetProducts)
	h.Get("/product/:sku", c.GetProduct)
}

func (c *catalogController) GetProducts(ctx *fiber.Ctx) error {
	var req dto.GetProductsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.catalogService.GetProducts(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get products", res))
}

func (c *catalogController) GetProduct(ctx *fiber.Ctx) error {
	sku := ctx.Params("sku")
	if sku == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing product sku")
	}

	res, err := c.catalogService.GetProductBySKU(ctx.Context(), sku)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get product", res))
}
