package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/nft-swap-engine/internal/adapters/blockchain"
	"github.com/hxuan190/nft-swap-engine/internal/adapters/das"
	"github.com/hxuan190/nft-swap-engine/internal/adapters/persistence"
	"github.com/hxuan190/nft-swap-engine/internal/common"
	"github.com/hxuan190/nft-swap-engine/internal/config"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/http"
	"github.com/hxuan190/nft-swap-engine/internal/services/assets"
	"github.com/hxuan190/nft-swap-engine/internal/services/capability"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
	"github.com/hxuan190/nft-swap-engine/internal/services/monitor"
	"github.com/hxuan190/nft-swap-engine/internal/services/pool"
	"github.com/hxuan190/nft-swap-engine/internal/services/swap"
)

const (
	preparedSwapCapacity = 4096
	purgeInterval        = time.Minute
)

// @title NFT Swap Engine API
// @version 1.0
// @description Peer-to-pool NFT exchange on Solana. A user trades one NFT for
// @description another NFT of the same collection held by the collection's pool.
// @description
// @description ## - How a swap works
// @description 1. `POST /api/v1/swap/prepare` validates ownership, collection and balance, then
// @description    returns one transaction that moves both NFTs and pays the swap fee. The pool
// @description    has already signed it.
// @description 2. The wallet signs the exact same message as fee payer.
// @description 3. `POST /api/v1/swap/submit` broadcasts it and waits for finalization.
// @description Either both NFTs move or neither does.
// @description
// @description ## - Usage Tips
// @description - Check `GET /api/v1/pools/{collectionId}/capability` before offering a swap
// @description - Prepared swaps expire with their blockhash (~60 seconds)
// @description - Fees are quoted in SOL, 1 SOL = 1,000,000,000 lamports
// @description - Rate Limit: 10 requests/second (burst: 20), swap endpoints 1/second (burst: 5)
// @BasePath /
// @schemes https http
// @securityDefinitions.apikey AdminKey
// @in header
// @name X-Admin-Key
// @tag.name pools
// @tag.description Collection pools, their NFTs and swap capability
// @tag.name swap
// @tag.description Prepare, submit and look up atomic NFT swaps
// @tag.name quote
// @tag.description Advisory balance check before a swap
// @tag.name admin
// @tag.description Pool administration and security reports

func main() {
	// load env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using process environment")
	}

	general := &config.GeneralConfig{}
	rpcConf := &config.RPCConfig{}
	swapConf := &config.SwapConfig{}
	storeConf := &config.StoreConfig{}
	sealConf := &config.SealConfig{}
	if err := config.LoadAll(general, rpcConf, swapConf, storeConf, sealConf); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	common.SetupLogger(general.LogLevel, general.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, general, rpcConf, swapConf, storeConf, sealConf); err != nil {
		log.Error().Err(err).Msg("service stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Shutdown complete")
}

func run(ctx context.Context, general *config.GeneralConfig, rpcConf *config.RPCConfig, swapConf *config.SwapConfig, storeConf *config.StoreConfig, sealConf *config.SealConfig) error {
	sealer, err := newSealer(sealConf)
	if err != nil {
		return err
	}
	store, err := newStore(ctx, storeConf, sealer)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	chain := newRPCClient(rpcConf)
	indexer := das.NewClient(rpcConf.DASUrl)

	blockhashes := blockchain.NewBlockhashCache(chain, 0, 0)
	blockhashes.Start(ctx)
	defer blockhashes.Stop()

	polling := blockchain.NewPollingConfirmer(chain, 0, swapConf.ConfirmTimeout)
	var confirmer swap.Confirmer = polling
	if rpcConf.WSUrl != "" {
		confirmer = blockchain.NewWSConfirmer(rpcConf.WSUrl, polling, swapConf.ConfirmTimeout)
	}

	mon := monitor.New()
	evaluator := capability.NewEvaluator(store)
	resolver := assets.NewResolver(indexer)

	executor := swap.NewExecutor(swapConf, store, evaluator, resolver, chain,
		swap.WithBlockhashSource(blockhashes),
		swap.WithConfirmer(confirmer),
		swap.WithAuditor(mon),
	)
	prepared := swap.NewPreparedStore(preparedSwapCapacity, swapConf.PreparedSwapTTL)
	go purgePrepared(ctx, prepared)

	pools := pool.NewService(store, resolver, mon, swapConf.MaxSwapFee)
	go func() {
		n, err := pools.RefreshAll(ctx)
		if err != nil {
			log.Warn().Err(err).Int("refreshed", n).Msg("initial NFT count refresh incomplete")
		}
	}()

	httpSvc := http.NewHTTPService(general, mon,
		http.NewPoolHandler(pools, evaluator, resolver, mon),
		http.NewSwapHandler(executor, prepared, swapConf.PreparedSwapTTL),
		http.NewQuoteHandler(executor),
		http.NewSecurityHandler(mon),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSvc.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down services...")
	return httpSvc.Stop()
}

func newSealer(conf *config.SealConfig) (keys.Sealer, error) {
	if conf.Mode == config.SealModeLegacy {
		log.Warn().Msg("KEY_SEAL_MODE=legacy stores pool keys base64 encoded without encryption")
		return keys.LegacyBase64Sealer{}, nil
	}
	return keys.NewAEADSealer([]byte(conf.Secret))
}

type closableRegistry interface {
	domain.PoolRegistry
	Close() error
}

func newStore(ctx context.Context, conf *config.StoreConfig, sealer keys.Sealer) (closableRegistry, error) {
	switch conf.Driver {
	case config.StoreDriverBolt:
		return persistence.NewBoltStore(conf.BoltPath, sealer)
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgresStore(ctx, conf.PostgresDSN, sealer)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	case config.StoreDriverMemory:
		log.Warn().Msg("STORE_DRIVER=memory: pools and keys are lost on restart")
		return persistence.NewMemoryStore(sealer), nil
	}
	return nil, errors.New("unknown store driver " + conf.Driver)
}

func newRPCClient(conf *config.RPCConfig) *rpc.Client {
	if conf.RPCApiKey != "" {
		return rpc.NewWithHeaders(conf.RPCUrl, map[string]string{"x-api-key": conf.RPCApiKey})
	}
	return rpc.New(conf.RPCUrl)
}

func purgePrepared(ctx context.Context, prepared *swap.PreparedStore) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := prepared.Purge(); n > 0 {
				log.Debug().Int("expired", n).Msg("purged prepared swaps")
			}
		}
	}
}
