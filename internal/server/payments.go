package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/pixelmint/pixelmint/internal/payment/domain"
	"go.uber.org/zap"
)

// PaymentNotify is the asynchronous provider callback. The provider expects a
// plain text body: "success" stops redelivery, anything else triggers a retry.
func (s *Server) PaymentNotify(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.String(http.StatusBadRequest, "fail")
		return
	}

	err = s.paymentsvc.HandleNotification(c.Request.Context(), body, c.ContentType())
	if err == nil {
		c.String(http.StatusOK, "success")
		return
	}

	switch {
	case errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrMissingTradeRef):
		c.String(http.StatusBadRequest, "fail")
	case errors.Is(err, paymentdomain.ErrOrderNotFound):
		c.String(http.StatusNotFound, "fail")
	default:
		s.log.Error("payment notification processing failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "fail")
	}
}
