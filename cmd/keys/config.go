package keys

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	EnvName string `envconfig:"KEYS_ENV_NAME" default:"DERIV_API_TOKEN_ENC"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
