package session

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL                  string        `envconfig:"DERIV_WS_URL" default:"wss://ws.derivws.com/websockets/v3"`
	AppID                string        `envconfig:"DERIV_APP_ID" default:"1089"`
	Token                string        `envconfig:"DERIV_API_TOKEN"`
	RequestTimeout       time.Duration `envconfig:"DERIV_REQUEST_TIMEOUT" default:"30s"`
	ReconnectBaseDelay   time.Duration `envconfig:"DERIV_RECONNECT_BASE_DELAY" default:"1s"`
	MaxReconnectAttempts int           `envconfig:"DERIV_MAX_RECONNECT_ATTEMPTS" default:"5"`
	HandshakeTimeout     time.Duration `envconfig:"DERIV_HANDSHAKE_TIMEOUT" default:"15s"`
	PingInterval         time.Duration `envconfig:"DERIV_PING_INTERVAL" default:"30s"`
	RateLimit            float64       `envconfig:"DERIV_RATE_LIMIT" default:"20"` // frames per second, <= 0 disables
	RateBurst            int           `envconfig:"DERIV_RATE_BURST" default:"10"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// withDefaults fills zero values so a hand-built Config behaves like one loaded from env.
func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = time.Second
	}
	if c.MaxReconnectAttempts < 0 {
		c.MaxReconnectAttempts = 0
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 15 * time.Second
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	return c
}
