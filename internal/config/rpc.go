package config

import (
	"errors"
	"os"
)

type RPCConfig struct {
	RPCUrl string
	WSUrl  string
	// DASUrl serves the digital asset indexing methods (getAsset, getAssetsByOwner).
	DASUrl    string
	RPCApiKey string
}

func (r *RPCConfig) Key() string {
	return RPC_CONFIG_KEY
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = os.Getenv("RPC_URL")
	r.WSUrl = os.Getenv("WS_URL")
	r.DASUrl = os.Getenv("DAS_URL")
	r.RPCApiKey = os.Getenv("RPC_KEY")
	if r.DASUrl == "" {
		r.DASUrl = r.RPCUrl
	}
	return nil
}

func (r *RPCConfig) Validate() error {
	if r.RPCUrl == "" {
		return errors.New("invalid rpc config: RPC_URL is required")
	}
	return nil
}
