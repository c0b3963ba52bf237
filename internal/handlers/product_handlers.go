package handlers

import (
	"net/http"

	"stockd/internal/common"
	"stockd/internal/models"
	"stockd/internal/services"

	"github.com/labstack/echo/v4"
)

// ProductHandlers handles product and unit of measure HTTP requests.
type ProductHandlers struct {
	catalogService services.CatalogService
}

func NewProductHandlers(catalogService services.CatalogService) *ProductHandlers {
	return &ProductHandlers{catalogService: catalogService}
}

// CreateProductRequest represents the product creation payload.
type CreateProductRequest struct {
	Name         string  `json:"name"`
	Code         *string `json:"code"`
	DefaultUomID string  `json:"default_uom_id"`
	Consumable   bool    `json:"consumable"`
}

func (h *ProductHandlers) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}

	var req CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name is required")
	}
	defaultUomID, err := common.ValidateUUID(req.DefaultUomID, "default_uom_id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	product := &models.Product{
		CompanyID:    companyID,
		Name:         req.Name,
		Code:         req.Code,
		DefaultUomID: defaultUomID,
		Consumable:   req.Consumable,
		Active:       true,
	}
	if err := h.catalogService.CreateProduct(ctx, product); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandlers) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	productID, err := common.ValidateUUID(c.Param("id"), "product id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	product, err := h.catalogService.GetProduct(ctx, companyID, productID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, product)
}

// ListProductsRequest represents query parameters for listing products.
type ListProductsRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

func (h *ProductHandlers) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}

	var req ListProductsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	limit, offset := common.ValidatePaginationParams(req.Limit, req.Offset)

	products, err := h.catalogService.ListProducts(ctx, companyID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"products": products,
		"limit":    limit,
		"offset":   offset,
	})
}

// UpdateProductRequest represents the product update payload.
type UpdateProductRequest struct {
	Name       *string `json:"name"`
	Code       *string `json:"code"`
	Consumable *bool   `json:"consumable"`
	Active     *bool   `json:"active"`
}

func (h *ProductHandlers) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	productID, err := common.ValidateUUID(c.Param("id"), "product id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req UpdateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	product, err := h.catalogService.GetProduct(ctx, companyID, productID)
	if err != nil {
		return httpError(err)
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Code != nil {
		product.Code = req.Code
	}
	if req.Consumable != nil {
		product.Consumable = *req.Consumable
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := h.catalogService.UpdateProduct(ctx, product); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandlers) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	productID, err := common.ValidateUUID(c.Param("id"), "product id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.catalogService.DeleteProduct(ctx, companyID, productID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Product deleted successfully",
	})
}

// CreateUomRequest represents the unit of measure creation payload.
type CreateUomRequest struct {
	Name       string  `json:"name"`
	Symbol     string  `json:"symbol"`
	CategoryID string  `json:"category_id"`
	Factor     float64 `json:"factor"`
	Rounding   float64 `json:"rounding"`
	Digits     int     `json:"digits"`
}

func (h *ProductHandlers) CreateUom(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateUomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name is required")
	}
	categoryID, err := common.ValidateUUID(req.CategoryID, "category_id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Factor <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Factor must be positive")
	}
	if req.Rounding <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Rounding must be positive")
	}

	uom := &models.UoM{
		Name:       req.Name,
		Symbol:     req.Symbol,
		CategoryID: categoryID,
		Factor:     req.Factor,
		Rounding:   req.Rounding,
		Digits:     req.Digits,
	}
	if err := h.catalogService.CreateUom(ctx, uom); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, uom)
}

// ListUomsRequest represents query parameters for listing units.
type ListUomsRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

func (h *ProductHandlers) ListUoms(c echo.Context) error {
	ctx := c.Request().Context()

	var req ListUomsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	limit, offset := common.ValidatePaginationParams(req.Limit, req.Offset)

	uoms, err := h.catalogService.ListUoms(ctx, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"uoms":   uoms,
		"limit":  limit,
		"offset": offset,
	})
}
