package logging

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LogLevel   string `envconfig:"LOG_LEVEL" default:"debug"`   // debug, info, warn, error
	LogFormat  string `envconfig:"LOG_FORMAT" default:"text"`   // text or json
	LogOutput  string `envconfig:"LOG_OUTPUT" default:"stdout"` // stdout, stderr or a file path
	LogMaxAge  int    `envconfig:"LOG_MAX_AGE_DAYS" default:"7"`
	LogMaxSize int    `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
