package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	// Chain settlement.
	ChainRPCURL      string `env:"CHAIN_RPC_URL,required"`
	TokenContract    string `env:"TOKEN_CONTRACT,required"`
	DepositAddress   string `env:"DEPOSIT_ADDRESS,required"`
	HotWalletKey     string `env:"HOT_WALLET_KEY,required"`
	MinConfirmations uint64 `env:"MIN_CONFIRMATIONS" envDefault:"5"`

	// Ledger behavior.
	IntentTTLHours      int    `env:"INTENT_TTL_HOURS" envDefault:"24"`
	WithdrawalFee       string `env:"WITHDRAWAL_FEE" envDefault:"0.4"`
	SettlePollIntervalS int    `env:"SETTLE_POLL_INTERVAL_S" envDefault:"15"`

	AdminAPIKey string `env:"ADMIN_API_KEY,required"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
