package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/nft-swap-engine/internal/common"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/http/httputil"
	"github.com/hxuan190/nft-swap-engine/internal/services/capability"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
	"github.com/hxuan190/nft-swap-engine/internal/services/pool"
)

const (
	nftListLimit  = 10
	nftListWindow = 60 * time.Second

	maxImportBody = 16 << 10
)

type PoolAdmin interface {
	Get(ctx context.Context, collectionID string) (*domain.Pool, error)
	List(ctx context.Context) ([]*domain.Pool, error)
	Create(ctx context.Context, req pool.CreateRequest) (*domain.Pool, error)
	Delete(ctx context.Context, collectionID string) error
	SetActive(ctx context.Context, collectionID string, active bool) error
	ExportWallet(ctx context.Context, collectionID string) ([]byte, error)
	ImportWallet(ctx context.Context, collectionID string, data []byte) error
	RefreshNFTCount(ctx context.Context, collectionID string) (uint64, error)
	RefreshAll(ctx context.Context) (int, error)
}

type CapabilityReader interface {
	Evaluate(ctx context.Context, pool *domain.Pool) (capability.Result, error)
}

type NFTLister interface {
	UserNFTs(ctx context.Context, pool *domain.Pool, wallet string) ([]*domain.Asset, error)
	PoolNFTs(ctx context.Context, pool *domain.Pool) ([]*domain.Asset, error)
}

// KeyLimiter throttles calls per caller-chosen key.
type KeyLimiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

type PoolHandler struct {
	pools      PoolAdmin
	capability CapabilityReader
	nfts       NFTLister
	limiter    KeyLimiter
}

func NewPoolHandler(pools PoolAdmin, evaluator CapabilityReader, nfts NFTLister, limiter KeyLimiter) *PoolHandler {
	return &PoolHandler{pools: pools, capability: evaluator, nfts: nfts, limiter: limiter}
}

func (h *PoolHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listPools)
	pub.GET("/:collectionId", h.getPool)
	pub.GET("/:collectionId/capability", h.getCapability)
	pub.GET("/:collectionId/nfts", h.listPoolNFTs)
	pub.GET("/:collectionId/nfts/:wallet", h.listUserNFTs)

	admin.POST("", h.createPool)
	admin.POST("/refresh", h.refreshAll)
	admin.DELETE("/:collectionId", h.deletePool)
	admin.PATCH("/:collectionId/status", h.setStatus)
	admin.GET("/:collectionId/wallet", h.exportWallet)
	admin.POST("/:collectionId/wallet", h.importWallet)
	admin.POST("/:collectionId/refresh", h.refreshPool)
}

func (h *PoolHandler) Root() string {
	return "/pools"
}

// PoolResponse describes one collection pool
type PoolResponse struct {
	CollectionID      string    `json:"collectionId" example:"madlads"`
	CollectionName    string    `json:"collectionName" example:"Mad Lads"`
	CollectionSymbol  string    `json:"collectionSymbol,omitempty" example:"MAD"`
	CollectionImage   string    `json:"collectionImage,omitempty"`
	Description       string    `json:"description,omitempty"`
	CollectionAddress string    `json:"collectionAddress,omitempty"`
	PoolAddress       string    `json:"poolAddress" example:"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"`
	SwapFee           string    `json:"swapFee" example:"0.05"`
	IsActive          bool      `json:"isActive" example:"true"`
	NFTCount          uint64    `json:"nftCount" example:"42"`
	TotalVolume       string    `json:"totalVolume" example:"1.25"`
	CreatedBy         string    `json:"createdBy,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func toPoolResponse(p *domain.Pool) PoolResponse {
	return PoolResponse{
		CollectionID:      p.CollectionID,
		CollectionName:    p.CollectionName,
		CollectionSymbol:  p.CollectionSymbol,
		CollectionImage:   p.CollectionImage,
		Description:       p.Description,
		CollectionAddress: p.CollectionAddress,
		PoolAddress:       p.PoolAddress.String(),
		SwapFee:           p.SwapFee.String(),
		IsActive:          p.IsActive,
		NFTCount:          p.NFTCount,
		TotalVolume:       p.TotalVolumeSOL().String(),
		CreatedBy:         p.CreatedBy,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// NFTResponse is an NFT as shown in the swap picker
type NFTResponse struct {
	Mint        string `json:"mint"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol,omitempty"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
	Collection  string `json:"collection,omitempty"`
	Traits      int    `json:"traits"`
	Rarity      string `json:"rarity"`
}

func toNFTResponses(list []*domain.Asset) []NFTResponse {
	out := make([]NFTResponse, 0, len(list))
	for _, a := range list {
		out = append(out, NFTResponse{
			Mint:        a.Mint,
			Name:        a.Name,
			Symbol:      a.Symbol,
			Image:       a.Image,
			Description: a.Description,
			Collection:  a.Collection,
			Traits:      a.AttributesCount,
			Rarity:      a.Rarity(),
		})
	}
	return out
}

// CapabilityResponse tells the client whether the pool can sign its side of a swap
type CapabilityResponse struct {
	State  string `json:"state" enums:"capable,incapable" example:"capable"`
	Reason string `json:"reason" example:"ok"`
}

func (h *PoolHandler) loadPool(c *gin.Context) (*domain.Pool, bool) {
	id := c.Param("collectionId")
	if id == "" || len(id) > common.MaxCollectionIDLength {
		httputil.BadRequest(c, "invalid collection id")
		return nil, false
	}
	p, err := h.pools.Get(c.Request.Context(), id)
	if err != nil {
		httputil.Abort(c, serviceHTTPError(err))
		return nil, false
	}
	return p, true
}

// @Summary List pools
// @Tags pools
// @Produce json
// @Success 200 {object} httputil.Response{data=[]PoolResponse}
// @Router /api/v1/pools [get]
func (h *PoolHandler) listPools(c *gin.Context) {
	pools, err := h.pools.List(c.Request.Context())
	if err != nil {
		httputil.Abort(c, serviceHTTPError(err))
		return
	}
	out := make([]PoolResponse, 0, len(pools))
	for _, p := range pools {
		out = append(out, toPoolResponse(p))
	}
	httputil.Success(c, out)
}

func (h *PoolHandler) getPool(c *gin.Context) {
	p, ok := h.loadPool(c)
	if !ok {
		return
	}
	httputil.Success(c, toPoolResponse(p))
}

// @Summary Pool swap capability
// @Description Recomputed from stored key material on every call. A pool is
// @Description capable only when it holds a private key that derives its address.
// @Tags pools
// @Produce json
// @Param collectionId path string true "Collection id"
// @Success 200 {object} httputil.Response{data=CapabilityResponse}
// @Failure 404 {object} httputil.Response
// @Router /api/v1/pools/{collectionId}/capability [get]
func (h *PoolHandler) getCapability(c *gin.Context) {
	p, ok := h.loadPool(c)
	if !ok {
		return
	}
	res, err := h.capability.Evaluate(c.Request.Context(), p)
	if err != nil {
		httputil.Abort(c, serviceHTTPError(err))
		return
	}
	state := "incapable"
	if res.Capable {
		state = "capable"
	}
	c.Header("Cache-Control", "no-store")
	httputil.Success(c, CapabilityResponse{State: state, Reason: string(res.Reason)})
}

func (h *PoolHandler) listPoolNFTs(c *gin.Context) {
	p, ok := h.loadPool(c)
	if !ok {
		return
	}
	list, err := h.nfts.PoolNFTs(c.Request.Context(), p)
	if err != nil {
		httputil.Abort(c, serviceHTTPError(err))
		return
	}
	httputil.Success(c, toNFTResponses(list))
}

// @Summary List a wallet's NFTs in the pool's collection
// @Description Limited to 10 requests per minute per wallet.
// @Tags pools
// @Produce json
// @Param collectionId path string true "Collection id"
// @Param wallet path string true "Wallet address"
// @Success 200 {object} httputil.Response{data=[]NFTResponse}
// @Failure 429 {object} httputil.Response
// @Router /api/v1/pools/{collectionId}/nfts/{wallet} [get]
func (h *PoolHandler) listUserNFTs(c *gin.Context) {
	wallet := c.Param("wallet")
	if !keys.IsValidAddress(wallet) {
		httputil.BadRequest(c, "invalid wallet address")
		return
	}
	if !h.limiter.Allow("nfts:"+wallet, nftListLimit, nftListWindow) {
		httputil.TooManyRequests(c, "too many NFT listing requests for this wallet")
		return
	}
	p, ok := h.loadPool(c)
	if !ok {
		return
	}
	list, err := h.nfts.UserNFTs(c.Request.Context(), p, wallet)
	if err != nil {
		httputil.Abort(c, serviceHTTPError(err))
		return
	}
	httputil.Success(c, toNFTResponses(list))
}

// CreatePoolRequest registers a pool. keyMode selects custody: generate a new
// wallet, import secretKey, or register poolAddress without a key.
type CreatePoolRequest struct {
	CollectionID      string          `json:"collectionId" binding:"required"`
	CollectionName    string          `json:"collectionName" binding:"required"`
	CollectionSymbol  string          `json:"collectionSymbol"`
	CollectionImage   string          `json:"collectionImage"`
	Description       string          `json:"description"`
	CollectionAddress string          `json:"collectionAddress"`
	SwapFee           decimal.Decimal `json:"swapFee"`
	KeyMode           string          `json:"keyMode" enums:"generate,import,address_only"`
	PoolAddress       string          `json:"poolAddress"`
	SecretKey         string          `json:"secretKey"`
	CreatedBy         string          `json:"createdBy"`
}

func (h *PoolHandler) createPool(c *gin.Context) {
	var req CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body")
		return
	}
	p, err := h.pools.Create(c.Request.Context(), pool.CreateRequest{
		CollectionID:      req.CollectionID,
		CollectionName:    req.CollectionName,
		CollectionSymbol:  req.CollectionSymbol,
		CollectionImage:   req.CollectionImage,
		Description:       req.Description,
		CollectionAddress: req.CollectionAddress,
		SwapFee:           req.SwapFee,
		CreatedBy:         req.CreatedBy,
		Mode:              pool.KeyMode(req.KeyMode),
		PoolAddress:       req.PoolAddress,
		SecretKey:         req.SecretKey,
	})
	if err != nil {
		httputil.Abort(c, serviceHTTPError(err))
		return
	}
	httputil.Created(c, toPoolResponse(p))
}

func (h *PoolHandler) deletePool(c *gin.Context) {
	if err := h.pools.Delete(c.Request.Context(), c.Param("collectionId")); err != nil {
		httputil.Abort(c, serviceHTTPError(err))
		return
	}
	httputil.Success(c, gin.H{"deleted": c.Param("collectionId")})
}

type SetStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

func (h *PoolHandler) setStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "isActive is required")
		return
	}
	if err := h.pools.SetActive(c.Request.Context(), c.Param("collectionId"), *req.IsActive); err != nil {
		httputil.Abort(c, serviceHTTPError(err))
		return
	}
	httputil.Success(c, gin.H{"collectionId": c.Param("collectionId"), "isActive": *req.IsActive})
}

func (h *PoolHandler) exportWallet(c *gin.Context) {
	data, err := h.pools.ExportWallet(c.Request.Context(), c.Param("collectionId"))
	if err != nil {
		httputil.Abort(c, serviceHTTPError(err))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", `attachment; filename="`+c.Param("collectionId")+`-pool-wallet.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

func (h *PoolHandler) importWallet(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBody))
	if err != nil || len(data) == 0 {
		httputil.BadRequest(c, "wallet body is required")
		return
	}
	if err := h.pools.ImportWallet(c.Request.Context(), c.Param("collectionId"), data); err != nil {
		httputil.Abort(c, serviceHTTPError(err))
		return
	}
	httputil.Success(c, gin.H{"imported": true})
}

func (h *PoolHandler) refreshPool(c *gin.Context) {
	count, err := h.pools.RefreshNFTCount(c.Request.Context(), c.Param("collectionId"))
	if err != nil {
		httputil.Abort(c, serviceHTTPError(err))
		return
	}
	httputil.Success(c, gin.H{"collectionId": c.Param("collectionId"), "nftCount": count})
}

func (h *PoolHandler) refreshAll(c *gin.Context) {
	n, err := h.pools.RefreshAll(c.Request.Context())
	resp := gin.H{"refreshed": n}
	if err != nil {
		resp["errors"] = err.Error()
	}
	httputil.Success(c, resp)
}
