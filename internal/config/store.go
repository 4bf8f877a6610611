package config

import (
	"errors"
	"fmt"

	"github.com/hxuan190/nft-swap-engine/internal/common"
)

const (
	StoreDriverBolt     = "bolt"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type StoreConfig struct {
	Driver      string
	BoltPath    string
	PostgresDSN string
}

func (c *StoreConfig) Key() string {
	return STORE_CONFIG_KEY
}

func (c *StoreConfig) Load() error {
	c.Driver = common.GetEnvOrDefault("STORE_DRIVER", StoreDriverBolt)
	c.BoltPath = common.GetEnvOrDefault("BOLT_PATH", "./data/nft-swap.db")
	c.PostgresDSN = common.GetEnvOrDefault("POSTGRES_DSN", "")
	return nil
}

func (c *StoreConfig) Validate() error {
	switch c.Driver {
	case StoreDriverBolt:
		if c.BoltPath == "" {
			return errors.New("BOLT_PATH is required for the bolt driver")
		}
	case StoreDriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres driver")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Driver)
	}
	return nil
}
