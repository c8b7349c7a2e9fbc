package config

import (
	"sync"

	"github.com/spf13/viper"
)

// ServerConfiguration holds the SDK-wide runtime settings
type ServerConfiguration struct {
	Environment string
	SentryDSN   string
}

var (
	serverDefaultsOnce sync.Once
	serverConfigOnce   sync.Once
	serverConfig       *ServerConfiguration
)

func initServerDefaults() {
	serverDefaultsOnce.Do(func() {
		viper.SetDefault("ENVIRONMENT", "development")
		viper.SetDefault("SENTRY_DSN", "")
	})
}

// ServerConfig returns the SDK-wide runtime configuration.
// The config is initialized once and cached to avoid concurrent map writes.
func ServerConfig() *ServerConfiguration {
	initServerDefaults()

	serverConfigOnce.Do(func() {
		serverConfig = &ServerConfiguration{
			Environment: viper.GetString("ENVIRONMENT"),
			SentryDSN:   viper.GetString("SENTRY_DSN"),
		}
	})
	return serverConfig
}

func init() {
	initServerDefaults()
}
