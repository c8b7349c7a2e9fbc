package config

import (
	"math/big"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// ChainConfiguration defines blockchain interaction settings.
// RPCURLOverrides is keyed by CAIP-2 chain id and takes precedence over the
// built-in default endpoints.
type ChainConfiguration struct {
	GasPriceFloor           *big.Int
	TransactionPollInterval time.Duration
	EmailPollInterval       time.Duration
	RPCURLOverrides         map[string]string
}

// defaultRPCURLs are the built-in JSON-RPC endpoints per supported network.
var defaultRPCURLs = map[string]string{
	"eip155:137":   "https://polygon-rpc.com",
	"eip155:80001": "https://rpc-mumbai.maticvigil.com",
	"eip155:42220": "https://forno.celo.org",
	"eip155:44787": "https://alfajores-forno.celo-testnet.org",
}

var (
	chainDefaultsOnce sync.Once
	chainConfigOnce   sync.Once
	chainConfig       *ChainConfiguration
)

func initChainDefaults() {
	chainDefaultsOnce.Do(func() {
		viper.SetDefault("GAS_PRICE_FLOOR_GWEI", 50)
		viper.SetDefault("TX_POLL_INTERVAL", 1) // seconds
		viper.SetDefault("EMAIL_POLL_INTERVAL", 3)
	})
}

// ChainConfig returns the blockchain configuration.
func ChainConfig() *ChainConfiguration {
	initChainDefaults()

	chainConfigOnce.Do(func() {
		floorGwei := viper.GetInt64("GAS_PRICE_FLOOR_GWEI")
		chainConfig = &ChainConfiguration{
			GasPriceFloor:           new(big.Int).Mul(big.NewInt(floorGwei), big.NewInt(1_000_000_000)),
			TransactionPollInterval: time.Duration(viper.GetInt("TX_POLL_INTERVAL")) * time.Second,
			EmailPollInterval:       time.Duration(viper.GetInt("EMAIL_POLL_INTERVAL")) * time.Second,
			RPCURLOverrides:         viper.GetStringMapString("RPC_URLS"),
		}
	})
	return chainConfig
}

// DefaultRPCURL returns the built-in endpoint for a CAIP-2 chain id.
func DefaultRPCURL(caip2 string) (string, bool) {
	url, ok := defaultRPCURLs[caip2]
	return url, ok
}

func init() {
	initChainDefaults()
}
