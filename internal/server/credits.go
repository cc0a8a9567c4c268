package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/pixelmint/pixelmint/internal/credit/domain"
)

type creditsResponse struct {
	Account             creditdomain.Account `json:"account"`
	FreeGenerationsLeft int                  `json:"free_generations_left"`
}

func (s *Server) GetCredits(c *gin.Context) {
	account, err := s.creditsvc.GetOrInit(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	used := creditdomain.EffectiveDailyCount(account, s.clock.Now())
	left := creditdomain.DailyFreeLimit - used
	if left < 0 {
		left = 0
	}

	c.JSON(http.StatusOK, creditsResponse{
		Account:             account,
		FreeGenerationsLeft: left,
	})
}

func (s *Server) ListCreditTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	transactions, err := s.creditsvc.ListTransactions(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
