package handlers

import (
	"net/http"
	"strings"

	"stockd/internal/common"
	"stockd/internal/repositories"
	"stockd/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// QuantityHandlers exposes the aggregation engine over HTTP.
type QuantityHandlers struct {
	quantityService services.QuantityService
	repos           repositories.Repos
}

func NewQuantityHandlers(quantityService services.QuantityService, repos repositories.Repos) *QuantityHandlers {
	return &QuantityHandlers{quantityService: quantityService, repos: repos}
}

// QuantitiesRequest represents query parameters for a quantity query.
// Dates are YYYY-MM-DD; list parameters are comma separated.
type QuantitiesRequest struct {
	LocationIDs    string `query:"location_ids"`
	ProductIDs     string `query:"product_ids"`
	ShipmentIDs    string `query:"shipment_ids"`
	Grouping       string `query:"grouping"`
	AsOf           string `query:"as_of"`
	DeltaFrom      string `query:"delta_from"`
	WithChilds     bool   `query:"with_childs"`
	AssignedAsDone bool   `query:"assigned_as_done"`
}

// QuantityBucket is one row of the aggregation result.
type QuantityBucket struct {
	LocationID uuid.UUID  `json:"location_id"`
	ProductID  uuid.UUID  `json:"product_id"`
	ShipmentID *uuid.UUID `json:"shipment_id,omitempty"`
	Quantity   float64    `json:"quantity"`
}

// GetQuantities computes net stock per location and grouping key, as of an
// optional date. A future as_of yields a forecast including planned moves.
func (h *QuantityHandlers) GetQuantities(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}

	var req QuantitiesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}

	locationIDs, err := common.ParseUUIDList(req.LocationIDs, "location_ids")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(locationIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "location_ids is required")
	}
	productIDs, err := common.ParseUUIDList(req.ProductIDs, "product_ids")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	shipmentIDs, err := common.ParseUUIDList(req.ShipmentIDs, "shipment_ids")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	asOf, err := common.ParseDate(req.AsOf, "as_of")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	deltaFrom, err := common.ParseDate(req.DeltaFrom, "delta_from")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var grouping []string
	if req.Grouping != "" {
		grouping = strings.Split(req.Grouping, ",")
	}

	window := services.QueryWindow{
		CompanyID:    companyID,
		AsOf:         asOf,
		DeltaFrom:    deltaFrom,
		AssignAsDone: req.AssignedAsDone,
	}
	opts := services.QuantityOptions{
		Grouping:    grouping,
		ProductIDs:  productIDs,
		ShipmentIDs: shipmentIDs,
		WithChilds:  req.WithChilds,
	}

	buckets, err := h.quantityService.ComputeQuantities(ctx, h.repos, window, locationIDs, opts)
	if err != nil {
		return httpError(err)
	}

	rows := make([]QuantityBucket, 0, len(buckets))
	for key, qty := range buckets {
		row := QuantityBucket{
			LocationID: key.LocationID,
			ProductID:  key.ProductID,
			Quantity:   qty,
		}
		if key.ShipmentID != uuid.Nil {
			shipmentID := key.ShipmentID
			row.ShipmentID = &shipmentID
		}
		rows = append(rows, row)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"quantities": rows,
		"count":      len(rows),
	})
}
