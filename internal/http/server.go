package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	gin "github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dhumphrey11/comoda-backend/internal/cache"
	"github.com/dhumphrey11/comoda-backend/internal/domain"
	"github.com/dhumphrey11/comoda-backend/internal/models"
)

type TradeExecutor interface {
	ExecuteTrade(ctx context.Context, ticker string, action domain.Action, quantity float64) (models.TradeResult, error)
}

type PortfolioReader interface {
	Portfolio(ctx context.Context) (models.Portfolio, error)
	Positions(ctx context.Context) ([]models.Position, error)
	RecentTrades(ctx context.Context, limit int) ([]models.Trade, error)
}

type TokenStore interface {
	List(ctx context.Context, ticker string, universe domain.Universe) ([]models.Token, error)
	Upsert(ctx context.Context, t models.Token) error
	Delete(ctx context.Context, ticker string) error
}

type PriceFetcher interface {
	FetchLivePrice(ctx context.Context, ticker string) (json.RawMessage, error)
}

type SocialFetcher interface {
	FetchSocialVolume(ctx context.Context, ticker string) (json.RawMessage, error)
}

type QuoteFetcher interface {
	FetchQuote(ctx context.Context, ticker string) (json.RawMessage, error)
}

type SignalsClient interface {
	FetchSignals(ctx context.Context, ticker string, lookbackDays int) (json.RawMessage, error)
	TriggerRetraining(ctx context.Context) (json.RawMessage, error)
}

type AnalyticsClient interface {
	QuerySignalsAnalytics(ctx context.Context, ticker string, lookbackDays int) ([]map[string]bigquery.Value, error)
	QueryPortfolioMetrics(ctx context.Context) ([]map[string]bigquery.Value, error)
}

type EventSink interface {
	TradeFailed(ctx context.Context, ticker, action string, cause error) error
}

type ErrorSink interface {
	Log(ctx context.Context, where, message string, extra map[string]any) error
}

// Deps are the collaborators the handlers call into. Analytics may be nil
// when no GCP project is configured.
type Deps struct {
	Executor  TradeExecutor
	Reader    PortfolioReader
	Tokens    TokenStore
	CoinAPI   PriceFetcher
	Santiment SocialFetcher
	Yahoo     QuoteFetcher
	Signals   SignalsClient
	Analytics AnalyticsClient
	Events    EventSink
	Errors    ErrorSink
	Logger    *zap.Logger
}

type Server struct {
	R            *gin.Engine
	deps         Deps
	signalsCache *cache.MapCache[cache.SignalsKey, json.RawMessage]
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewServer wires the router, middleware, and handlers.
func NewServer(deps Deps, corsOrigin string) *Server {
	g := gin.New()

	// Request logging
	g.Use(func(cn *gin.Context) {
		start := time.Now()
		cn.Next()
		deps.Logger.Info("http_request",
			zap.String("method", cn.Request.Method),
			zap.String("path", cn.Request.URL.Path),
			zap.Int("status", cn.Writer.Status()),
			zap.String("ip", cn.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	})

	g.Use(gin.Recovery())

	// CORS
	g.Use(func(cn *gin.Context) {
		origin := cn.GetHeader("Origin")
		cn.Writer.Header().Set("Vary", "Origin")
		cn.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		cn.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		cn.Writer.Header().Set("Access-Control-Max-Age", "86400")
		if corsOrigin == "*" {
			cn.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" && origin == corsOrigin {
			cn.Writer.Header().Set("Access-Control-Allow-Origin", corsOrigin)
		}
		if cn.Request.Method == http.MethodOptions {
			cn.AbortWithStatus(http.StatusNoContent)
			return
		}
		cn.Next()
	})

	s := &Server{
		R:            g,
		deps:         deps,
		signalsCache: cache.NewMapCache[cache.SignalsKey, json.RawMessage](),
	}

	g.GET("/health", func(cn *gin.Context) { cn.JSON(http.StatusOK, gin.H{"ok": true}) })

	g.POST("/api/trades", s.executeTrade)
	g.GET("/api/trades", s.getTrades)
	g.GET("/api/portfolio", s.getPortfolio)
	g.GET("/api/positions", s.getPositions)

	g.GET("/api/ingest", s.listTokens)
	g.POST("/api/ingest", s.createIngestion)
	g.PUT("/api/ingest", s.updateToken)
	g.DELETE("/api/ingest", s.deleteToken)

	g.GET("/api/signals", s.getSignals)
	g.POST("/api/admin/retrain", s.retrainModels)
	g.GET("/api/admin/metrics", s.getMetrics)

	return s
}

// --- Helpers ---

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Code: "bad_request", Message: msg})
}

func (s *Server) internalError(c *gin.Context, where string, err error) {
	s.deps.Logger.Error("internal_error", zap.String("where", where), zap.Error(err))
	if s.deps.Errors != nil {
		_ = s.deps.Errors.Log(c.Request.Context(), where, err.Error(), nil)
	}
	c.JSON(http.StatusInternalServerError, apiError{Code: "internal_server_error", Message: "internal server error"})
}

func parseLimit(v string, def, min, max int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || n > max {
		return def
	}
	return n
}
