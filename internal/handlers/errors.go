package handlers

import (
	"errors"
	"net/http"

	"stockd/internal/models"
	"stockd/internal/repositories"
	"stockd/internal/services"

	"github.com/labstack/echo/v4"
)

// httpError maps service and repository errors onto HTTP status codes.
// Lock contention surfaces as 409 so callers know to retry.
func httpError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case errors.Is(err, repositories.ErrLockNotAvailable):
		return echo.NewHTTPError(http.StatusConflict, "Resource locked by a concurrent operation, retry later")
	case errors.Is(err, services.ErrUnknownGroupingField),
		errors.Is(err, services.ErrProductGroupRequired),
		errors.Is(err, models.ErrNegativeQuantity),
		errors.Is(err, models.ErrSameLocation),
		errors.Is(err, models.ErrEffectiveRequired),
		errors.Is(err, models.ErrUnitPriceRequired),
		errors.Is(err, models.ErrIncompatibleUoms):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrMoveNotDraft),
		errors.Is(err, services.ErrMoveImmutable),
		errors.Is(err, services.ErrMoveInClosedPeriod),
		errors.Is(err, services.ErrPeriodNotBeforeToday),
		errors.Is(err, services.ErrPeriodAlreadyClosed),
		errors.Is(err, services.ErrPeriodNotClosed),
		errors.Is(err, services.ErrAssignedMoveBeforeClose):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}
