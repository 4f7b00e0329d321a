package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	"github.com/JamesxFarris/Sixxer/internal/server/http/dto"
	"github.com/JamesxFarris/Sixxer/internal/usecase"
)

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// List handles GET /api/orders?status=new,failed.
func (h *OrderHandler) List(c *gin.Context) {
	statuses, err := usecase.ParseStatusFilter(c.Query("status"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	orders, err := h.facade.Orders(c.Request.Context(), statuses...)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	response := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, dto.NewOrderResponse(o))
	}
	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/orders/:ref.
func (h *OrderHandler) Get(c *gin.Context) {
	order, messages, err := h.facade.Order(c.Request.Context(), c.Param("ref"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderDetailResponse(*order, messages))
}

// Retry handles POST /api/orders/:ref/retry.
func (h *OrderHandler) Retry(c *gin.Context) {
	h.respond(c)(h.facade.RetryOrder(c.Request.Context(), c.Param("ref")))
}

// Cancel handles POST /api/orders/:ref/cancel with an optional {"reason": ...} body.
func (h *OrderHandler) Cancel(c *gin.Context) {
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.respond(c)(h.facade.CancelOrder(c.Request.Context(), c.Param("ref"), req.Reason))
}

// Complete handles POST /api/orders/:ref/complete.
func (h *OrderHandler) Complete(c *gin.Context) {
	h.respond(c)(h.facade.CompleteOrder(c.Request.Context(), c.Param("ref")))
}

func (h *OrderHandler) respond(c *gin.Context) func(*model.Order, error) {
	return func(order *model.Order, err error) {
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewOrderResponse(*order))
	}
}
