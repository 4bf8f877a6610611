package http

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/nft-swap-engine/internal/common"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/http/httputil"
	"github.com/hxuan190/nft-swap-engine/internal/services/swap"
)

type SwapService interface {
	Prepare(ctx context.Context, intent domain.SwapIntent) (*swap.PreparedSwap, error)
	Submit(ctx context.Context, prepared *swap.PreparedSwap, signed *solana.Transaction) (*domain.SwapReceipt, error)
	VerifyTransaction(ctx context.Context, signature string) (*domain.TransactionStatus, error)
}

// PreparedSwaps holds pool-signed transactions until the user signs them.
type PreparedSwaps interface {
	Put(p *swap.PreparedSwap)
	Take(id string) (*swap.PreparedSwap, bool)
}

type SwapHandler struct {
	swaps    SwapService
	prepared PreparedSwaps
	ttl      time.Duration
}

func NewSwapHandler(swaps SwapService, prepared PreparedSwaps, ttl time.Duration) *SwapHandler {
	return &SwapHandler{swaps: swaps, prepared: prepared, ttl: ttl}
}

func (h *SwapHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	private.POST("/prepare", h.prepareSwap)
	private.POST("/submit", h.submitSwap)
	pub.GET("/tx/:signature", h.verifyTransaction)
}

func (h *SwapHandler) Root() string {
	return "/swap"
}

// PrepareSwapRequest names the two NFTs to exchange
type PrepareSwapRequest struct {
	// Wallet that signs as fee payer and owns UserNFTMint
	UserWallet   string `json:"userWallet" binding:"required" example:"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"`
	UserNFTMint  string `json:"userNftMint" binding:"required"`
	PoolNFTMint  string `json:"poolNftMint" binding:"required"`
	CollectionID string `json:"collectionId" binding:"required" example:"madlads"`
}

// PrepareSwapResponse carries the pool-signed transaction. The client signs
// the exact message and posts it back to /swap/submit before expiresAt.
type PrepareSwapResponse struct {
	SwapID               string    `json:"swapId"`
	Transaction          string    `json:"transaction"`
	LastValidBlockHeight uint64    `json:"lastValidBlockHeight"`
	FeeLamports          uint64    `json:"feeLamports" example:"50000000"`
	Fee                  string    `json:"fee" example:"0.05"`
	FeeCollector         string    `json:"feeCollector,omitempty"`
	Instructions         int       `json:"instructions" example:"5"`
	Size                 int       `json:"size" example:"702"`
	ExpiresAt            time.Time `json:"expiresAt"`
}

// @Summary Prepare an atomic NFT swap
// @Description Validates the swap, builds the single atomic transaction and
// @Description signs the pool side. Nothing is broadcast.
// @Tags swap
// @Accept json
// @Produce json
// @Param request body PrepareSwapRequest true "Swap intent"
// @Success 200 {object} httputil.Response{data=PrepareSwapResponse}
// @Failure 400 {object} httputil.Response
// @Failure 402 {object} httputil.Response
// @Failure 404 {object} httputil.Response
// @Failure 409 {object} httputil.Response
// @Failure 422 {object} httputil.Response
// @Router /api/v1/swap/prepare [post]
func (h *SwapHandler) prepareSwap(c *gin.Context) {
	var req PrepareSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "userWallet, userNftMint, poolNftMint and collectionId are required")
		return
	}

	p, err := h.swaps.Prepare(c.Request.Context(), domain.SwapIntent{
		UserWallet:   req.UserWallet,
		UserNFTMint:  req.UserNFTMint,
		PoolNFTMint:  req.PoolNFTMint,
		CollectionID: req.CollectionID,
	})
	if err != nil {
		httputil.Abort(c, swapHTTPError(err))
		return
	}
	h.prepared.Put(p)

	resp := PrepareSwapResponse{
		SwapID:               p.ID,
		Transaction:          p.Encoded(),
		LastValidBlockHeight: p.LastValidBlockHeight,
		FeeLamports:          p.FeeLamports,
		Fee:                  p.FeeSOL.String(),
		Instructions:         p.Instructions,
		Size:                 p.Size,
		ExpiresAt:            p.PreparedAt.Add(h.ttl),
	}
	if !p.FeeCollector.IsZero() {
		resp.FeeCollector = p.FeeCollector.String()
	}
	httputil.Success(c, resp)
}

type SubmitSwapRequest struct {
	SwapID string `json:"swapId" binding:"required"`
	// Base64 wire transaction carrying both signatures
	SignedTransaction string `json:"signedTransaction" binding:"required"`
}

// SwapReceiptResponse is returned once the swap is finalized on chain
type SwapReceiptResponse struct {
	Signature    string    `json:"signature"`
	ExplorerURL  string    `json:"explorerUrl"`
	Slot         uint64    `json:"slot"`
	Instructions int       `json:"instructions"`
	FeeLamports  uint64    `json:"feeLamports"`
	Fee          string    `json:"fee"`
	FeeCollector string    `json:"feeCollector,omitempty"`
	FeeVerified  bool      `json:"feeVerified"`
	UserNFTMint  string    `json:"userNftMint"`
	PoolNFTMint  string    `json:"poolNftMint"`
	CollectionID string    `json:"collectionId"`
	Network      string    `json:"network"`
	CompletedAt  time.Time `json:"completedAt"`
}

func toReceiptResponse(r *domain.SwapReceipt) SwapReceiptResponse {
	out := SwapReceiptResponse{
		Signature:    r.Signature.String(),
		ExplorerURL:  r.ExplorerURL,
		Slot:         r.Slot,
		Instructions: r.Instructions,
		FeeLamports:  r.FeeLamports,
		Fee:          r.FeeSOL.String(),
		FeeVerified:  r.FeeVerified,
		UserNFTMint:  r.UserNFTMint,
		PoolNFTMint:  r.PoolNFTMint,
		CollectionID: r.CollectionID,
		Network:      r.Network,
		CompletedAt:  r.CompletedAt,
	}
	if !r.FeeCollector.IsZero() {
		out.FeeCollector = r.FeeCollector.String()
	}
	return out
}

// @Summary Submit a user-signed swap
// @Description Broadcasts the prepared transaction once the user has signed
// @Description it, then waits for finalization.
// @Tags swap
// @Accept json
// @Produce json
// @Param request body SubmitSwapRequest true "Signed transaction"
// @Success 200 {object} httputil.Response{data=SwapReceiptResponse}
// @Failure 404 {object} httputil.Response
// @Failure 502 {object} httputil.Response
// @Failure 504 {object} httputil.Response
// @Router /api/v1/swap/submit [post]
func (h *SwapHandler) submitSwap(c *gin.Context) {
	var req SubmitSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "swapId and signedTransaction are required")
		return
	}

	raw, err := base64.StdEncoding.DecodeString(req.SignedTransaction)
	if err != nil || len(raw) == 0 || len(raw) > common.MaxTransactionSize {
		httputil.BadRequest(c, "signedTransaction must be a base64 wire transaction")
		return
	}
	signed, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		httputil.BadRequest(c, "signedTransaction could not be decoded")
		return
	}

	p, ok := h.prepared.Take(req.SwapID)
	if !ok {
		httputil.NotFound(c, "swap not found or expired")
		return
	}

	receipt, err := h.swaps.Submit(c.Request.Context(), p, signed)
	if err != nil {
		// Nothing was sent, so the client may retry with a correct signature.
		if errors.Is(err, swap.ErrSigningUnsupported) {
			h.prepared.Put(p)
		}
		httputil.Abort(c, swapHTTPError(err))
		return
	}
	httputil.Success(c, toReceiptResponse(receipt))
}

type TransactionStatusResponse struct {
	Exists      bool       `json:"exists"`
	Success     bool       `json:"success"`
	Signature   string     `json:"signature"`
	Slot        uint64     `json:"slot,omitempty"`
	BlockTime   *time.Time `json:"blockTime,omitempty"`
	FeeLamports uint64     `json:"feeLamports,omitempty"`
	ExplorerURL string     `json:"explorerUrl,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// @Summary Look up a swap transaction by signature
// @Tags swap
// @Produce json
// @Param signature path string true "Transaction signature"
// @Success 200 {object} httputil.Response{data=TransactionStatusResponse}
// @Router /api/v1/swap/tx/{signature} [get]
func (h *SwapHandler) verifyTransaction(c *gin.Context) {
	st, err := h.swaps.VerifyTransaction(c.Request.Context(), c.Param("signature"))
	if err != nil {
		httputil.Abort(c, swapHTTPError(err))
		return
	}
	httputil.Success(c, TransactionStatusResponse{
		Exists:      st.Exists,
		Success:     st.Success,
		Signature:   st.Signature,
		Slot:        st.Slot,
		BlockTime:   st.BlockTime,
		FeeLamports: st.FeeLamports,
		ExplorerURL: st.ExplorerURL,
		Error:       st.Error,
	})
}
