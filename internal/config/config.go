package config

import (
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/dhumphrey11/comoda-backend/internal/ratelimit"
)

type Config struct {
	DatabaseURL string        `env:"DATABASE_URL,required"`
	Port        string        `env:"PORT" envDefault:"8080"`
	CORSOrigin  string        `env:"CORS_ORIGIN" envDefault:"*"`
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"60s"`

	CoinAPIKey      string        `env:"COINAPI_KEY"`
	SantimentAPIKey string        `env:"SANTIMENT_API_KEY"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"15s"`

	CoinAPIRatePerSec   float64 `env:"COINAPI_RATE_PER_SEC" envDefault:"1"`
	CoinAPIBurst        int     `env:"COINAPI_BURST" envDefault:"5"`
	SantimentRatePerSec float64 `env:"SANTIMENT_RATE_PER_SEC" envDefault:"0.5"`
	SantimentBurst      int     `env:"SANTIMENT_BURST" envDefault:"2"`
	YahooRatePerSec     float64 `env:"YAHOO_RATE_PER_SEC" envDefault:"2"`
	YahooBurst          int     `env:"YAHOO_BURST" envDefault:"10"`

	MLServiceBase    string        `env:"ML_SERVICE_BASE" envDefault:"http://ml:8080"`
	MLServiceTimeout time.Duration `env:"ML_SERVICE_TIMEOUT" envDefault:"30s"`

	GCPProjectID string `env:"GCP_PROJECT_ID"`
	BQDataset    string `env:"BQ_DATASET" envDefault:"comoda_analytics"`

	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC" envDefault:"trade-events"`

	// Fallbacks the trade executor substitutes when rows are absent.
	DefaultCash  float64 `env:"TRADE_DEFAULT_CASH" envDefault:"20000"`
	DefaultPrice float64 `env:"TRADE_DEFAULT_PRICE" envDefault:"100"`
}

func Load() (Config, error) {
	var cfg Config
	return cfg, env.Parse(&cfg)
}

// Sources maps the per-source bucket settings for the limiter registry.
func (c Config) Sources() map[string]ratelimit.SourceConfig {
	return map[string]ratelimit.SourceConfig{
		"coinapi":   {RatePerSec: c.CoinAPIRatePerSec, Burst: c.CoinAPIBurst},
		"santiment": {RatePerSec: c.SantimentRatePerSec, Burst: c.SantimentBurst},
		"yahoo":     {RatePerSec: c.YahooRatePerSec, Burst: c.YahooBurst},
	}
}
