package config

import (
	"errors"
	"fmt"

	"github.com/hxuan190/nft-swap-engine/internal/common"
)

type ServerEnv = string

var (
	DevEnv     ServerEnv = "dev"
	StagingEnv ServerEnv = "staging"
	ProdEnv    ServerEnv = "prod"
)

const (
	GENERAL_CONFIG_KEY = "general-config"
	RPC_CONFIG_KEY     = "rpc-config"
	SWAP_CONFIG_KEY    = "swap-config"
	STORE_CONFIG_KEY   = "store-config"
	SEAL_CONFIG_KEY    = "seal-config"
)

// Config is implemented by every config section.
type Config interface {
	Key() string
	Load() error
	Validate() error
}

// LoadAll loads and validates every section in order, stopping at the first failure.
func LoadAll(confs ...Config) error {
	for _, c := range confs {
		if err := c.Load(); err != nil {
			return fmt.Errorf("load %s: %w", c.Key(), err)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("validate %s: %w", c.Key(), err)
		}
	}
	return nil
}

type GeneralConfig struct {
	HTTPPort    string
	HTTPHost    string
	Env         string
	LogLevel    string
	AdminAPIKey string
}

func (gc *GeneralConfig) Key() string {
	return GENERAL_CONFIG_KEY
}

func (gc *GeneralConfig) Load() error {
	gc.HTTPPort = common.GetEnvOrDefault("HTTP_PORT", "8080")
	gc.HTTPHost = common.GetEnvOrDefault("HTTP_HOST", "localhost")
	gc.Env = common.GetEnvOrDefault("ENV", DevEnv)
	gc.LogLevel = common.GetEnvOrDefault("LOG_LEVEL", "INFO")
	gc.AdminAPIKey = common.GetEnvOrDefault("ADMIN_API_KEY", "")
	return nil
}

func (gc *GeneralConfig) Validate() error {
	if gc.HTTPPort == "" || gc.HTTPHost == "" || gc.Env == "" {
		return errors.New("invalid server config")
	}
	if gc.Env == ProdEnv && gc.AdminAPIKey == "" {
		return errors.New("ADMIN_API_KEY is required in prod")
	}
	return nil
}

func (gc *GeneralConfig) IsDevelopment() bool {
	return gc.Env == DevEnv
}
