package http

import (
	"encoding/json"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"github.com/dhumphrey11/comoda-backend/internal/domain"
	"github.com/dhumphrey11/comoda-backend/internal/models"
	"github.com/dhumphrey11/comoda-backend/internal/tokens"
)

func (s *Server) listTokens(c *gin.Context) {
	universe := domain.Universe("")
	if raw := strings.TrimSpace(c.Query("universe")); raw != "" {
		u, ok := domain.ParseUniverse(raw)
		if !ok {
			s.badRequest(c, "invalid universe (use 'portfolio', 'watchlist' or 'market')")
			return
		}
		universe = u
	}

	rows, err := s.deps.Tokens.List(c.Request.Context(), strings.TrimSpace(c.Query("ticker")), universe)
	if err != nil {
		s.internalError(c, "ingest_list", err)
		return
	}
	if rows == nil {
		rows = []models.Token{}
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) createIngestion(c *gin.Context) {
	ticker := strings.TrimSpace(c.Query("ticker"))
	if ticker == "" {
		s.badRequest(c, "ticker is required")
		return
	}
	universe, ok := domain.ParseUniverse(c.Query("universe"))
	if !ok {
		s.badRequest(c, "invalid universe (use 'portfolio', 'watchlist' or 'market')")
		return
	}

	selected := []domain.Source{domain.SourceCoinAPI}
	if raw := c.QueryArray("sources"); len(raw) > 0 {
		selected = selected[:0]
		for _, r := range raw {
			src, ok := domain.ParseSource(r)
			if !ok {
				s.badRequest(c, "invalid source (use 'coinapi', 'santiment' or 'yahoo')")
				return
			}
			selected = append(selected, src)
		}
	}

	ctx := c.Request.Context()
	if err := s.deps.Tokens.Upsert(ctx, models.Token{Ticker: ticker, Universe: universe.String()}); err != nil {
		s.internalError(c, "ingest_create", err)
		return
	}

	results := make(map[string]json.RawMessage, len(selected))
	for _, src := range selected {
		var (
			payload json.RawMessage
			err     error
		)
		switch src {
		case domain.SourceCoinAPI:
			payload, err = s.deps.CoinAPI.FetchLivePrice(ctx, ticker)
		case domain.SourceSantiment:
			payload, err = s.deps.Santiment.FetchSocialVolume(ctx, ticker)
		case domain.SourceYahoo:
			payload, err = s.deps.Yahoo.FetchQuote(ctx, ticker)
		}
		if err != nil {
			s.internalError(c, "ingest_create", err)
			return
		}
		results[src.String()] = payload
	}

	c.JSON(http.StatusOK, gin.H{"ticker": ticker, "universe": universe.String(), "results": results})
}

func (s *Server) updateToken(c *gin.Context) {
	ticker := strings.TrimSpace(c.Query("ticker"))
	if ticker == "" {
		s.badRequest(c, "ticker is required")
		return
	}
	universe, ok := domain.ParseUniverse(c.Query("universe"))
	if !ok {
		s.badRequest(c, "invalid universe (use 'portfolio', 'watchlist' or 'market')")
		return
	}

	t := models.Token{Ticker: ticker, Name: strings.TrimSpace(c.Query("name")), Universe: universe.String()}
	if err := s.deps.Tokens.Upsert(c.Request.Context(), t); err != nil {
		s.internalError(c, "ingest_update", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticker": ticker, "universe": universe.String()})
}

func (s *Server) deleteToken(c *gin.Context) {
	ticker := strings.TrimSpace(c.Query("ticker"))
	if ticker == "" {
		s.badRequest(c, "ticker is required")
		return
	}
	if err := s.deps.Tokens.Delete(c.Request.Context(), ticker); err != nil {
		if tokens.IsNotFound(err) {
			c.JSON(http.StatusNotFound, apiError{Code: "not_found", Message: "unknown ticker"})
			return
		}
		s.internalError(c, "ingest_delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": ticker})
}
