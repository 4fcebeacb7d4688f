package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Venue connectivity.
	TargetVenue    string        `envconfig:"TARGET_VENUE" default:"simex"`
	VenueBaseURL   string        `envconfig:"VENUE_BASE_URL" default:"https://testnet-api.simex.example"`
	VenueFeedURL   string        `envconfig:"VENUE_FEED_URL" default:"wss://testnet-api.simex.example/ws"`
	VenueAPIKey    string        `envconfig:"VENUE_API_KEY"`
	VenueAPISecret string        `envconfig:"VENUE_API_SECRET"`
	VenueTimeout   time.Duration `envconfig:"VENUE_HTTP_TIMEOUT" default:"15s"`

	// Per-venue admission control.
	RateLimitCapacity int           `envconfig:"RATE_LIMIT_CAPACITY" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// Per-venue failure protection.
	BreakerFailureThreshold int           `envconfig:"BREAKER_FAILURE_THRESHOLD" default:"5"`
	BreakerFailureWindow    time.Duration `envconfig:"BREAKER_FAILURE_WINDOW" default:"1m"`
	BreakerCoolDown         time.Duration `envconfig:"BREAKER_COOL_DOWN" default:"30s"`

	// Risk collaborator.
	RiskBaseURL  string        `envconfig:"RISK_BASE_URL" default:"http://localhost:9090"`
	RiskDeadline time.Duration `envconfig:"RISK_DEADLINE" default:"50ms"`

	// Engine timing.
	SubmitAckTimeout  time.Duration `envconfig:"SUBMIT_ACK_TIMEOUT" default:"10s"`
	RequeueBaseDelay  time.Duration `envconfig:"REQUEUE_BASE_DELAY" default:"250ms"`
	RequeueMaxDelay   time.Duration `envconfig:"REQUEUE_MAX_DELAY" default:"15s"`
	MaxSubmitAttempts int           `envconfig:"MAX_SUBMIT_ATTEMPTS" default:"6"`
	FastFillLatency   time.Duration `envconfig:"FAST_FILL_LATENCY" default:"500ms"`
	EventBuffer       int           `envconfig:"EVENT_BUFFER" default:"1024"`

	// Tradable set: comma-separated symbol:minQty:maxQty triples.
	TradableSymbols string `envconfig:"TRADABLE_SYMBOLS" default:"BTCUSDT:0.001:100,ETHUSDT:0.01:1000,SOLUSDT:0.1:10000"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
