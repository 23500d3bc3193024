package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/core/service"
	apperrors "github.com/rl1809/fulfillment/pkg/errors"
)

type OrderUseCase interface {
	CreateOrder(ctx context.Context, cmd service.CreateOrderCommand) (*service.CreateOrderResult, error)
	GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, cmd service.UpdateOrderStatusCommand) (domain.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID, cancelledBy string) (domain.Order, error)
	BulkUpdateOrders(ctx context.Context, cmd service.BulkUpdateCommand) (*service.BulkUpdateResult, error)
}

type InventoryUseCase interface {
	ValidateStock(ctx context.Context, productID string, quantity int) (domain.StockValidationResult, error)
	AdjustStock(ctx context.Context, cmd service.AdjustStockCommand) (domain.InventoryRecord, error)
}

type HTTPHandler struct {
	orders    OrderUseCase
	inventory InventoryUseCase
	logger    *zap.Logger
}

func NewHTTPHandler(orders OrderUseCase, inventory InventoryUseCase, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{orders: orders, inventory: inventory, logger: logger}
}

func (h *HTTPHandler) Register(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")
	api.POST("/orders", h.CreateOrder)
	api.POST("/orders/bulk-update", h.BulkUpdate)
	api.GET("/orders/:id", h.GetOrder)
	api.PATCH("/orders/:id/status", h.UpdateStatus)
	api.POST("/orders/:id/cancel", h.CancelOrder)
	api.GET("/inventory/:product_id/validate", h.ValidateStock)
	api.POST("/inventory/:product_id/adjust", h.AdjustStock)
}

func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperrors.NewInvalidRequest("invalid request body"))
		return
	}

	result, err := h.orders.CreateOrder(c.Request.Context(), req.command())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateOrderResponse{
		Order:        toOrderResponse(result.Order),
		Availability: toAvailability(result.Availability),
		ConsumerName: result.ConsumerName,
		FacilityName: result.FacilityName,
	})
}

func (h *HTTPHandler) GetOrder(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *HTTPHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperrors.NewInvalidRequest("invalid request body"))
		return
	}

	cmd := service.UpdateOrderStatusCommand{OrderID: id, Notes: req.Notes, UpdatedBy: req.UpdatedBy}
	if req.Status != nil {
		status, ok := domain.ParseOrderStatus(*req.Status)
		if !ok {
			h.writeError(c, apperrors.NewValidationError("unknown status "+*req.Status, "status"))
			return
		}
		cmd.Status = &status
	}

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *HTTPHandler) CancelOrder(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	// The body is optional.
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(c, apperrors.NewInvalidRequest("invalid request body"))
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), id, req.CancelledBy)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *HTTPHandler) BulkUpdate(c *gin.Context) {
	var req BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperrors.NewInvalidRequest("invalid request body"))
		return
	}

	result, err := h.orders.BulkUpdateOrders(c.Request.Context(), req.command())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBulkResponse(result))
}

func (h *HTTPHandler) ValidateStock(c *gin.Context) {
	quantity := 0
	if q := c.Query("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			h.writeError(c, apperrors.NewValidationError("quantity must be an integer", "quantity"))
			return
		}
		quantity = n
	}

	result, err := h.inventory.ValidateStock(c.Request.Context(), c.Param("product_id"), quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStockResult(result))
}

func (h *HTTPHandler) AdjustStock(c *gin.Context) {
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperrors.NewInvalidRequest("invalid request body"))
		return
	}

	record, err := h.inventory.AdjustStock(c.Request.Context(), service.AdjustStockCommand{
		ProductID: c.Param("product_id"),
		Delta:     req.Delta,
		Kind:      domain.MovementKind(strings.ToUpper(req.Kind)),
		Reason:    req.Reason,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(record))
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.writeError(c, apperrors.NewValidationError("not a valid order id", "id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	std := toStandardError(err)
	if std.HTTPStatus() >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(std.HTTPStatus(), std)
}
