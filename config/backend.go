package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

// BackendConfiguration defines the KYC backend connection settings
type BackendConfiguration struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

var (
	backendDefaultsOnce sync.Once
	backendConfigOnce   sync.Once
	backendConfig       *BackendConfiguration
)

func initBackendDefaults() {
	backendDefaultsOnce.Do(func() {
		viper.SetDefault("BACKEND_BASE_URL", "https://staging.kycdao.xyz")
		viper.SetDefault("BACKEND_TIMEOUT", 30) // seconds
	})
}

// BackendConfig returns the KYC backend configuration.
func BackendConfig() *BackendConfiguration {
	initBackendDefaults()

	backendConfigOnce.Do(func() {
		backendConfig = &BackendConfiguration{
			BaseURL: viper.GetString("BACKEND_BASE_URL"),
			APIKey:  viper.GetString("BACKEND_API_KEY"),
			Timeout: time.Duration(viper.GetInt("BACKEND_TIMEOUT")) * time.Second,
		}
	})
	return backendConfig
}

func init() {
	initBackendDefaults()
}
