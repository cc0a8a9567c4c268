package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/pixelmint/pixelmint/internal/payment/domain"
)

type createOrderRequest struct {
	PlanID string `json:"plan_id"`
	Amount string `json:"amount"`
	Title  string `json:"title"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.paymentsvc.Checkout(c.Request.Context(), paymentdomain.CheckoutRequest{
		UserID: currentUserID(c),
		PlanID: req.PlanID,
		Amount: req.Amount,
		Title:  req.Title,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	orders, err := s.orders.ListByUser(c.Request.Context(), s.db, currentUserID(c), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
