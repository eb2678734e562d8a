// Package events publishes trade outcomes as JSON messages for downstream
// consumers (dashboards, alerting).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/dhumphrey11/comoda-backend/internal/models"
)

type tradeExecutedEvent struct {
	Event          string  `json:"event"`
	Ticker         string  `json:"ticker"`
	Action         string  `json:"action"`
	Quantity       float64 `json:"quantity"`
	Price          float64 `json:"price"`
	CashAvailable  float64 `json:"cash_available"`
	PriceDefaulted bool    `json:"price_defaulted,omitempty"`
}

type tradeFailedEvent struct {
	Event  string `json:"event"`
	Ticker string `json:"ticker"`
	Action string `json:"action"`
	Error  string `json:"error"`
}

// Publisher writes events to a kafka topic. Publishing is best effort:
// failures are logged, never propagated to the trade path.
type Publisher struct {
	w      *kafka.Writer
	logger *zap.Logger
}

func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
	})
	return &Publisher{w: w, logger: logger}
}

func (p *Publisher) Close() error { return p.w.Close() }

func (p *Publisher) TradeExecuted(ctx context.Context, res models.TradeResult) error {
	return p.emit(ctx, res.Ticker, tradeExecutedEvent{
		Event:          "trade_executed",
		Ticker:         res.Ticker,
		Action:         res.Action,
		Quantity:       res.Quantity,
		Price:          res.Price,
		CashAvailable:  res.CashAvailable,
		PriceDefaulted: res.PriceDefaulted,
	})
}

func (p *Publisher) TradeFailed(ctx context.Context, ticker, action string, cause error) error {
	return p.emit(ctx, ticker, tradeFailedEvent{
		Event:  "trade_failed",
		Ticker: ticker,
		Action: action,
		Error:  cause.Error(),
	})
}

func (p *Publisher) emit(ctx context.Context, key string, event any) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(key), Value: b, Time: time.Now().UTC()}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("event publish failed", zap.Error(err))
		return err
	}
	return nil
}

// Nop drops all events; used in tests and kafka-less deployments.
type Nop struct{}

func (Nop) TradeExecuted(context.Context, models.TradeResult) error  { return nil }
func (Nop) TradeFailed(context.Context, string, string, error) error { return nil }
func (Nop) Close() error                                             { return nil }
