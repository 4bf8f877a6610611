package config

import (
	"errors"
	"fmt"

	"github.com/hxuan190/nft-swap-engine/internal/common"
)

const (
	SealModeAEAD   = "aead"
	SealModeLegacy = "legacy"
)

// SealConfig controls how pool key material is protected at rest.
type SealConfig struct {
	Mode   string
	Secret string
}

func (c *SealConfig) Key() string {
	return SEAL_CONFIG_KEY
}

func (c *SealConfig) Load() error {
	c.Mode = common.GetEnvOrDefault("KEY_SEAL_MODE", SealModeAEAD)
	c.Secret = common.GetEnvOrDefault("KEY_SEAL_SECRET", "")
	return nil
}

func (c *SealConfig) Validate() error {
	switch c.Mode {
	case SealModeAEAD:
		if len(c.Secret) < 32 {
			return errors.New("KEY_SEAL_SECRET must be at least 32 characters")
		}
	case SealModeLegacy:
	default:
		return fmt.Errorf("unknown seal mode %q", c.Mode)
	}
	return nil
}
