package handlers

import (
	"net/http"
	"time"

	"stockd/internal/common"
	"stockd/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PeriodHandlers handles stock period HTTP requests.
type PeriodHandlers struct {
	periodService services.PeriodService
	exportService services.ExportService
}

func NewPeriodHandlers(periodService services.PeriodService, exportService services.ExportService) *PeriodHandlers {
	return &PeriodHandlers{
		periodService: periodService,
		exportService: exportService,
	}
}

// CreatePeriodRequest represents the period creation payload.
type CreatePeriodRequest struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

func (h *PeriodHandlers) CreatePeriod(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}

	var req CreatePeriodRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name is required")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be in YYYY-MM-DD format")
	}

	period, err := h.periodService.Create(ctx, companyID, req.Name, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, period)
}

func (h *PeriodHandlers) GetPeriod(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	periodID, err := common.ValidateUUID(c.Param("id"), "period id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	period, err := h.periodService.GetByID(ctx, companyID, periodID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, period)
}

// ListPeriodsRequest represents query parameters for listing periods.
type ListPeriodsRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

func (h *PeriodHandlers) ListPeriods(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}

	var req ListPeriodsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	limit, offset := common.ValidatePaginationParams(req.Limit, req.Offset)

	periods, err := h.periodService.List(ctx, companyID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"periods": periods,
		"limit":   limit,
		"offset":  offset,
	})
}

// ClosePeriodsRequest represents the close request payload.
type ClosePeriodsRequest struct {
	PeriodIDs []string `json:"period_ids"`
}

// ClosePeriods snapshots and closes the given periods atomically. A 409
// means the move table is locked by a concurrent operation.
func (h *PeriodHandlers) ClosePeriods(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}

	var req ClosePeriodsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if len(req.PeriodIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "period_ids is required")
	}

	periodIDs := make([]uuid.UUID, 0, len(req.PeriodIDs))
	for _, raw := range req.PeriodIDs {
		id, err := common.ValidateUUID(raw, "period_ids")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		periodIDs = append(periodIDs, id)
	}

	if err := h.periodService.Close(ctx, companyID, periodIDs); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Periods closed successfully",
	})
}

// DraftPeriod reopens a closed period and discards its cached snapshot.
func (h *PeriodHandlers) DraftPeriod(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	periodID, err := common.ValidateUUID(c.Param("id"), "period id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.periodService.Draft(ctx, companyID, periodID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Period reopened successfully",
	})
}

// ExportPeriod uploads the period snapshot as CSV and returns a download URL.
func (h *PeriodHandlers) ExportPeriod(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	periodID, err := common.ValidateUUID(c.Param("id"), "period id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	url, err := h.exportService.ExportPeriod(ctx, companyID, periodID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"download_url": url,
	})
}
