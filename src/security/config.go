package security

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	CredentialsKey string `envconfig:"DERIV_CREDENTIALS_KEY"` // base64, 32 bytes
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
