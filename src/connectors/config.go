package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DerivAPIToken    string `envconfig:"DERIV_API_TOKEN"`
	DerivAPITokenEnc string `envconfig:"DERIV_API_TOKEN_ENC"` // secretbox ciphertext, see security.EncryptString
	DerivCurrency    string `envconfig:"DERIV_CURRENCY" default:"USD"`

	SearchAPIURL     string        `envconfig:"SEARCH_API_URL" default:"https://api.tavily.com"`
	SearchAPIKey     string        `envconfig:"SEARCH_API_KEY"`
	SearchTimeout    time.Duration `envconfig:"SEARCH_TIMEOUT" default:"15s"`
	SearchMaxResults int           `envconfig:"SEARCH_MAX_RESULTS" default:"5"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
