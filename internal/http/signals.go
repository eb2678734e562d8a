package http

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"github.com/dhumphrey11/comoda-backend/internal/cache"
)

func (s *Server) getSignals(c *gin.Context) {
	ticker := strings.TrimSpace(c.Query("ticker"))
	lookbackDays := parseLimit(c.Query("lookback_days"), 7, 1, 365)

	key := cache.SignalsKey{Ticker: ticker, LookbackDays: lookbackDays}
	signals, ok := s.signalsCache.Get(key)
	if !ok {
		var err error
		signals, err = s.deps.Signals.FetchSignals(c.Request.Context(), ticker, lookbackDays)
		if err != nil {
			s.internalError(c, "signals_get", err)
			return
		}
		s.signalsCache.Set(key, signals)
	}

	resp := gin.H{"signals": signals, "analytics": nil}
	if c.Query("include_analytics") == "true" {
		if s.deps.Analytics == nil {
			c.JSON(http.StatusServiceUnavailable, apiError{Code: "analytics_unavailable", Message: "analytics backend not configured"})
			return
		}
		analytics, err := s.deps.Analytics.QuerySignalsAnalytics(c.Request.Context(), ticker, lookbackDays)
		if err != nil {
			s.internalError(c, "signals_analytics", err)
			return
		}
		resp["analytics"] = analytics
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) retrainModels(c *gin.Context) {
	detail, err := s.deps.Signals.TriggerRetraining(c.Request.Context())
	if err != nil {
		s.internalError(c, "admin_retrain", err)
		return
	}
	// Retraining invalidates cached scores.
	s.signalsCache.Clear()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "detail": detail})
}

func (s *Server) getMetrics(c *gin.Context) {
	if s.deps.Analytics == nil {
		c.JSON(http.StatusServiceUnavailable, apiError{Code: "analytics_unavailable", Message: "analytics backend not configured"})
		return
	}
	metrics, err := s.deps.Analytics.QueryPortfolioMetrics(c.Request.Context())
	if err != nil {
		s.internalError(c, "admin_metrics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": metrics})
}
