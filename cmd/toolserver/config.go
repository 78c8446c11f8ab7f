package toolserver

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ConnectTimeout time.Duration `envconfig:"DERIV_CONNECT_TIMEOUT" default:"20s"`
	ConnectOnStart bool          `envconfig:"DERIV_CONNECT_ON_START" default:"true"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
