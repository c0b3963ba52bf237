package handlers

import (
	"net/http"

	"stockd/internal/common"
	"stockd/internal/models"
	"stockd/internal/services"

	"github.com/labstack/echo/v4"
)

// LocationHandlers handles location tree HTTP requests.
type LocationHandlers struct {
	catalogService services.CatalogService
}

func NewLocationHandlers(catalogService services.CatalogService) *LocationHandlers {
	return &LocationHandlers{catalogService: catalogService}
}

// CreateLocationRequest represents the location creation payload.
type CreateLocationRequest struct {
	Name       string  `json:"name"`
	Code       *string `json:"code"`
	Type       string  `json:"type"`
	ParentID   *string `json:"parent_id"`
	FlatChilds bool    `json:"flat_childs"`
}

func (h *LocationHandlers) CreateLocation(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}

	var req CreateLocationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name is required")
	}
	locType := models.LocationType(req.Type)
	if !locType.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid location type")
	}

	location := &models.Location{
		CompanyID:  companyID,
		Name:       req.Name,
		Code:       req.Code,
		Type:       locType,
		FlatChilds: req.FlatChilds,
	}
	if req.ParentID != nil {
		parentID, err := common.ValidateUUID(*req.ParentID, "parent_id")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		location.ParentID = &parentID
	}

	if err := h.catalogService.CreateLocation(ctx, location); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, location)
}

func (h *LocationHandlers) GetLocation(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	locationID, err := common.ValidateUUID(c.Param("id"), "location id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	location, err := h.catalogService.GetLocation(ctx, companyID, locationID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, location)
}

// ListLocationsRequest represents query parameters for listing locations.
type ListLocationsRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

func (h *LocationHandlers) ListLocations(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}

	var req ListLocationsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	limit, offset := common.ValidatePaginationParams(req.Limit, req.Offset)

	locations, err := h.catalogService.ListLocations(ctx, companyID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"locations": locations,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetSubtree returns the location and all its descendants, parents first.
func (h *LocationHandlers) GetSubtree(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	locationID, err := common.ValidateUUID(c.Param("id"), "location id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	locations, err := h.catalogService.Subtree(ctx, companyID, locationID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"locations": locations,
	})
}

// UpdateLocationRequest represents the location update payload.
type UpdateLocationRequest struct {
	Name       *string `json:"name"`
	Code       *string `json:"code"`
	ParentID   *string `json:"parent_id"`
	FlatChilds *bool   `json:"flat_childs"`
}

func (h *LocationHandlers) UpdateLocation(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	locationID, err := common.ValidateUUID(c.Param("id"), "location id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req UpdateLocationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	location, err := h.catalogService.GetLocation(ctx, companyID, locationID)
	if err != nil {
		return httpError(err)
	}
	if req.Name != nil {
		location.Name = *req.Name
	}
	if req.Code != nil {
		location.Code = req.Code
	}
	if req.ParentID != nil {
		parentID, err := common.ValidateUUID(*req.ParentID, "parent_id")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		location.ParentID = &parentID
	}
	if req.FlatChilds != nil {
		location.FlatChilds = *req.FlatChilds
	}

	if err := h.catalogService.UpdateLocation(ctx, location); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, location)
}

func (h *LocationHandlers) DeleteLocation(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	locationID, err := common.ValidateUUID(c.Param("id"), "location id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.catalogService.DeleteLocation(ctx, companyID, locationID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Location deleted successfully",
	})
}
