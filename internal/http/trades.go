package http

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/dhumphrey11/comoda-backend/internal/domain"
	"github.com/dhumphrey11/comoda-backend/internal/models"
)

type tradeRequest struct {
	Ticker   string  `json:"ticker" binding:"required"`
	Action   string  `json:"action" binding:"required,oneof=buy sell"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

type tradesResponse struct {
	Rows []models.Trade `json:"rows"`
}

func (s *Server) executeTrade(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "ticker, action (buy|sell) and quantity (> 0) are required")
		return
	}
	action, ok := domain.ParseAction(req.Action)
	if !ok {
		s.badRequest(c, "invalid action (use 'buy' or 'sell')")
		return
	}

	res, err := s.deps.Executor.ExecuteTrade(c.Request.Context(), req.Ticker, action, req.Quantity)
	if err != nil {
		if s.deps.Events != nil {
			_ = s.deps.Events.TradeFailed(c.Request.Context(), req.Ticker, req.Action, err)
		}
		s.internalError(c, "trade_execute", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) getTrades(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 100, 1, 1000)

	rows, err := s.deps.Reader.RecentTrades(c.Request.Context(), limit)
	if err != nil {
		s.internalError(c, "trades_list", err)
		return
	}
	if rows == nil {
		rows = []models.Trade{}
	}
	c.JSON(http.StatusOK, tradesResponse{Rows: rows})
}

func (s *Server) getPortfolio(c *gin.Context) {
	p, err := s.deps.Reader.Portfolio(c.Request.Context())
	if err != nil {
		s.internalError(c, "portfolio_get", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) getPositions(c *gin.Context) {
	rows, err := s.deps.Reader.Positions(c.Request.Context())
	if err != nil {
		s.internalError(c, "positions_get", err)
		return
	}
	if rows == nil {
		rows = []models.Position{}
	}
	c.JSON(http.StatusOK, rows)
}
