package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/http/httputil"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
)

type QuoteService interface {
	CheckBalance(ctx context.Context, wallet, collectionID string) (*domain.BalanceCheck, error)
}

// QuoteHandler serves the advisory balance check shown before a swap.
type QuoteHandler struct {
	quotes QuoteService
}

func NewQuoteHandler(quotes QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getQuote)
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

type QuoteRequest struct {
	Wallet       string `form:"wallet" binding:"required" example:"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"`
	CollectionID string `form:"collectionId" binding:"required" example:"madlads"`
}

// QuoteResponse breaks down what a swap costs. Amounts are SOL.
type QuoteResponse struct {
	Valid      bool   `json:"valid"`
	Balance    string `json:"balance" example:"1.5"`
	Required   string `json:"required" example:"0.0525"`
	SwapFee    string `json:"swapFee" example:"0.05"`
	NetworkFee string `json:"networkFee" example:"0.0005"`
	Buffer     string `json:"buffer" example:"0.002"`
	Message    string `json:"message"`
}

// @Summary Check whether a wallet can pay for a swap
// @Description Advisory only. The swap re-checks the balance before building.
// @Tags quote
// @Produce json
// @Param wallet query string true "Wallet address"
// @Param collectionId query string true "Collection id"
// @Success 200 {object} httputil.Response{data=QuoteResponse}
// @Failure 400 {object} httputil.Response
// @Failure 404 {object} httputil.Response
// @Router /api/v1/quote [get]
func (h *QuoteHandler) getQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, "wallet and collectionId are required")
		return
	}
	if !keys.IsValidAddress(req.Wallet) {
		httputil.BadRequest(c, "invalid wallet address")
		return
	}

	bc, err := h.quotes.CheckBalance(c.Request.Context(), req.Wallet, req.CollectionID)
	if err != nil {
		httputil.Abort(c, swapHTTPError(err))
		return
	}
	httputil.Success(c, QuoteResponse{
		Valid:      bc.Valid,
		Balance:    bc.Balance.String(),
		Required:   bc.Required.String(),
		SwapFee:    bc.SwapFee.String(),
		NetworkFee: bc.NetworkFee.String(),
		Buffer:     bc.Buffer.String(),
		Message:    bc.Message,
	})
}
