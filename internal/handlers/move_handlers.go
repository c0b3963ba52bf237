package handlers

import (
	"net/http"
	"time"

	"stockd/internal/common"
	"stockd/internal/models"
	"stockd/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// MoveHandlers handles stock move HTTP requests.
type MoveHandlers struct {
	moveService   services.MoveService
	assignService services.AssignService
}

func NewMoveHandlers(moveService services.MoveService, assignService services.AssignService) *MoveHandlers {
	return &MoveHandlers{
		moveService:   moveService,
		assignService: assignService,
	}
}

// CreateMoveRequest represents the move creation payload.
type CreateMoveRequest struct {
	ProductID      string           `json:"product_id"`
	UomID          string           `json:"uom_id"`
	Quantity       float64          `json:"quantity"`
	FromLocationID string           `json:"from_location_id"`
	ToLocationID   string           `json:"to_location_id"`
	State          string           `json:"state"`
	PlannedDate    string           `json:"planned_date"`
	ShipmentID     *string          `json:"shipment_id"`
	Origin         *string          `json:"origin"`
	UnitPrice      *decimal.Decimal `json:"unit_price"`
	Currency       *string          `json:"currency"`
}

func (h *MoveHandlers) CreateMove(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}

	var req CreateMoveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	productID, err := common.ValidateUUID(req.ProductID, "product_id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	uomID, err := common.ValidateUUID(req.UomID, "uom_id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	fromID, err := common.ValidateUUID(req.FromLocationID, "from_location_id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	toID, err := common.ValidateUUID(req.ToLocationID, "to_location_id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	plannedDate, err := common.ParseDate(req.PlannedDate, "planned_date")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	state := models.MoveState(req.State)
	switch state {
	case "", models.MoveStaging, models.MoveDraft:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "New moves must start in staging or draft")
	}

	move := &models.StockMove{
		CompanyID:      companyID,
		ProductID:      productID,
		UomID:          uomID,
		Quantity:       req.Quantity,
		FromLocationID: fromID,
		ToLocationID:   toID,
		State:          state,
		PlannedDate:    plannedDate,
		Origin:         req.Origin,
		UnitPrice:      req.UnitPrice,
		Currency:       req.Currency,
	}
	if req.ShipmentID != nil {
		shipmentID, err := common.ValidateUUID(*req.ShipmentID, "shipment_id")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		move.ShipmentID = &shipmentID
	}

	if err := h.moveService.Create(ctx, move); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, move)
}

func (h *MoveHandlers) GetMove(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	moveID, err := common.ValidateUUID(c.Param("id"), "move id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	move, err := h.moveService.GetByID(ctx, companyID, moveID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, move)
}

// ListMovesRequest represents query parameters for listing moves.
type ListMovesRequest struct {
	State  string `query:"state"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

func (h *MoveHandlers) ListMoves(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}

	var req ListMovesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	limit, offset := common.ValidatePaginationParams(req.Limit, req.Offset)

	var states []models.MoveState
	if req.State != "" {
		states = append(states, models.MoveState(req.State))
	}

	moves, err := h.moveService.List(ctx, companyID, states, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"moves":  moves,
		"limit":  limit,
		"offset": offset,
	})
}

// UpdateMoveRequest represents the move update payload. Only provided
// fields change.
type UpdateMoveRequest struct {
	Quantity       *float64         `json:"quantity"`
	UomID          *string          `json:"uom_id"`
	FromLocationID *string          `json:"from_location_id"`
	ToLocationID   *string          `json:"to_location_id"`
	PlannedDate    *string          `json:"planned_date"`
	Origin         *string          `json:"origin"`
	UnitPrice      *decimal.Decimal `json:"unit_price"`
	Currency       *string          `json:"currency"`
	CostPrice      *decimal.Decimal `json:"cost_price"`
}

func (h *MoveHandlers) UpdateMove(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	moveID, err := common.ValidateUUID(c.Param("id"), "move id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req UpdateMoveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	move, err := h.moveService.GetByID(ctx, companyID, moveID)
	if err != nil {
		return httpError(err)
	}

	if req.Quantity != nil {
		move.Quantity = *req.Quantity
	}
	if req.UomID != nil {
		uomID, err := common.ValidateUUID(*req.UomID, "uom_id")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		move.UomID = uomID
	}
	if req.FromLocationID != nil {
		fromID, err := common.ValidateUUID(*req.FromLocationID, "from_location_id")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		move.FromLocationID = fromID
	}
	if req.ToLocationID != nil {
		toID, err := common.ValidateUUID(*req.ToLocationID, "to_location_id")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		move.ToLocationID = toID
	}
	if req.PlannedDate != nil {
		plannedDate, err := common.ParseDate(*req.PlannedDate, "planned_date")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		move.PlannedDate = plannedDate
	}
	if req.Origin != nil {
		move.Origin = req.Origin
	}
	if req.UnitPrice != nil {
		move.UnitPrice = req.UnitPrice
	}
	if req.Currency != nil {
		move.Currency = req.Currency
	}
	if req.CostPrice != nil {
		move.CostPrice = req.CostPrice
	}

	if err := h.moveService.Update(ctx, move); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, move)
}

func (h *MoveHandlers) DeleteMove(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	moveID, err := common.ValidateUUID(c.Param("id"), "move id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.moveService.Delete(ctx, companyID, moveID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Move deleted successfully",
	})
}

func (h *MoveHandlers) DoMove(c echo.Context) error {
	return h.transition(c, func(ctx echo.Context, companyID, moveID uuid.UUID) (*models.StockMove, error) {
		return h.moveService.Do(ctx.Request().Context(), companyID, moveID)
	})
}

func (h *MoveHandlers) DraftMove(c echo.Context) error {
	return h.transition(c, func(ctx echo.Context, companyID, moveID uuid.UUID) (*models.StockMove, error) {
		return h.moveService.Draft(ctx.Request().Context(), companyID, moveID)
	})
}

func (h *MoveHandlers) CancelMove(c echo.Context) error {
	return h.transition(c, func(ctx echo.Context, companyID, moveID uuid.UUID) (*models.StockMove, error) {
		return h.moveService.Cancel(ctx.Request().Context(), companyID, moveID)
	})
}

func (h *MoveHandlers) transition(c echo.Context, fn func(echo.Context, uuid.UUID, uuid.UUID) (*models.StockMove, error)) error {
	companyID, ok := common.GetCompanyIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}
	moveID, err := common.ValidateUUID(c.Param("id"), "move id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	move, err := fn(c, companyID, moveID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, move)
}

// AssignMovesRequest represents the assignment request payload.
type AssignMovesRequest struct {
	MoveIDs    []string `json:"move_ids"`
	WithChilds bool     `json:"with_childs"`
	Grouping   []string `json:"grouping"`
}

// AssignMoves runs the assignment engine over the given draft moves. A 409
// means another assignment or a period close holds the stock, retry later.
func (h *MoveHandlers) AssignMoves(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, ok := common.GetCompanyIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Company not found")
	}

	var req AssignMovesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if len(req.MoveIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "move_ids is required")
	}

	moveIDs := make([]uuid.UUID, 0, len(req.MoveIDs))
	for _, raw := range req.MoveIDs {
		id, err := common.ValidateUUID(raw, "move_ids")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		moveIDs = append(moveIDs, id)
	}

	start := time.Now()
	fullyAssigned, err := h.assignService.AssignTry(ctx, companyID, moveIDs, req.WithChilds, req.Grouping)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"fully_assigned": fullyAssigned,
		"elapsed_ms":     time.Since(start).Milliseconds(),
	})
}
