package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dhumphrey11/comoda-backend/internal/analytics"
	"github.com/dhumphrey11/comoda-backend/internal/cache"
	"github.com/dhumphrey11/comoda-backend/internal/config"
	"github.com/dhumphrey11/comoda-backend/internal/db"
	"github.com/dhumphrey11/comoda-backend/internal/events"
	httpserver "github.com/dhumphrey11/comoda-backend/internal/http"
	"github.com/dhumphrey11/comoda-backend/internal/ingest"
	"github.com/dhumphrey11/comoda-backend/internal/ratelimit"
	"github.com/dhumphrey11/comoda-backend/internal/signals"
	"github.com/dhumphrey11/comoda-backend/internal/tokens"
	"github.com/dhumphrey11/comoda-backend/internal/trading"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbpool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer dbpool.Close()
	if err := db.InitSchema(ctx, dbpool); err != nil {
		logger.Fatal("schema", zap.Error(err))
	}

	registry, err := ratelimit.NewRegistry(cfg.Sources())
	if err != nil {
		logger.Fatal("ratelimit", zap.Error(err))
	}

	payloads, err := cache.NewPayloadCache(1<<26 /* ~64MB */, cfg.CacheTTL)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}

	deps := ingest.Deps{
		HTTP:    &http.Client{Timeout: cfg.UpstreamTimeout},
		Limiter: registry,
		Cache:   payloads,
	}
	coinapi := ingest.NewCoinAPI(deps, cfg.CoinAPIKey, db.NewPriceRecorder(dbpool))
	santiment := ingest.NewSantiment(deps, cfg.SantimentAPIKey)
	yahoo := ingest.NewYahoo(deps)

	var emitter trading.Emitter
	var eventSink httpserver.EventSink
	if cfg.KafkaBrokers != "" {
		pub := events.NewPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic, logger)
		defer pub.Close()
		emitter, eventSink = pub, pub
	} else {
		nop := events.Nop{}
		emitter, eventSink = nop, nop
	}

	defaults := trading.DefaultDefaults()
	defaults.Cash = cfg.DefaultCash
	defaults.Price = cfg.DefaultPrice
	executor := trading.NewExecutor(trading.NewPgStore(dbpool), emitter, defaults)

	var bq httpserver.AnalyticsClient
	if cfg.GCPProjectID != "" {
		client, err := analytics.New(ctx, cfg.GCPProjectID, cfg.BQDataset)
		if err != nil {
			logger.Fatal("bigquery", zap.Error(err))
		}
		defer client.Close()
		bq = client
	}

	s := httpserver.NewServer(httpserver.Deps{
		Executor:  executor,
		Reader:    trading.NewReader(dbpool),
		Tokens:    tokens.New(dbpool),
		CoinAPI:   coinapi,
		Santiment: santiment,
		Yahoo:     yahoo,
		Signals:   signals.New(cfg.MLServiceBase, &http.Client{Timeout: cfg.MLServiceTimeout}),
		Analytics: bq,
		Events:    eventSink,
		Errors:    db.NewErrorLog(dbpool),
		Logger:    logger,
	}, cfg.CORSOrigin)

	server := &http.Server{Addr: ":" + cfg.Port, Handler: s.R}
	go func() {
		logger.Info("http listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http", zap.Error(err))
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = server.Shutdown(ctxShut)
	logger.Info("shutdown complete")
}
