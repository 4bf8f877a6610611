package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/hxuan190/nft-swap-engine/internal/common"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/services/assets"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
	"github.com/hxuan190/nft-swap-engine/internal/services/pool"
	"github.com/hxuan190/nft-swap-engine/internal/services/swap"
)

var swapStatus = map[swap.Kind]int{
	swap.KindInvalidAddress:             http.StatusBadRequest,
	swap.KindInvalidSwapFee:             http.StatusBadRequest,
	swap.KindPoolNotFound:               http.StatusNotFound,
	swap.KindAssetNotFound:              http.StatusNotFound,
	swap.KindCapabilityAbsent:           http.StatusConflict,
	swap.KindPoolInactive:               http.StatusConflict,
	swap.KindCollectionMismatch:         http.StatusUnprocessableEntity,
	swap.KindOwnershipMismatch:          http.StatusUnprocessableEntity,
	swap.KindTransactionTooLarge:        http.StatusUnprocessableEntity,
	swap.KindInsufficientBalance:        http.StatusPaymentRequired,
	swap.KindUserRejected:               common.StatusClientClosedRequest,
	swap.KindNetworkOrBlockhashError:    http.StatusBadGateway,
	swap.KindTransactionExecutionFailed: http.StatusBadGateway,
	swap.KindConfirmationTimeout:        http.StatusGatewayTimeout,
}

// swapHTTPError maps a swap failure onto a status and its kind code.
func swapHTTPError(err error) *common.HttpError {
	var se *swap.SwapError
	if !errors.As(err, &se) {
		return common.HTTPErrorInternalError("")
	}
	status, ok := swapStatus[se.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return common.NewHttpError(status, string(se.Kind), se.Error())
}

// serviceHTTPError maps registry, key and resolver errors.
func serviceHTTPError(err error) *common.HttpError {
	switch {
	case errors.Is(err, domain.ErrPoolNotFound):
		return common.HTTPErrorNotFound("pool not found")
	case errors.Is(err, domain.ErrKeyMaterialNotFound):
		return common.NewHttpError(http.StatusNotFound, "KEY_MATERIAL_NOT_FOUND", "pool has no key material")
	case errors.Is(err, domain.ErrPoolExists):
		return common.HTTPErrorResourceConflict(err.Error())
	case errors.Is(err, pool.ErrNoPrivateKey):
		return common.NewHttpError(http.StatusConflict, "NO_PRIVATE_KEY", err.Error())
	case errors.Is(err, pool.ErrInvalidPool),
		errors.Is(err, keys.ErrInvalidAddress),
		errors.Is(err, keys.ErrKeyMaterialMalformed),
		errors.Is(err, keys.ErrKeyMismatch):
		return common.HTTPErrorBadRequest(err.Error())
	case errors.Is(err, assets.ErrAssetNotFound):
		return common.HTTPErrorNotFound("asset not found")
	case errors.Is(err, assets.ErrIndexerUnavailable), errors.Is(err, assets.ErrBalanceUnavailable):
		return common.NewHttpError(http.StatusBadGateway, "INDEXER_UNAVAILABLE", "asset indexer unavailable")
	case errors.Is(err, context.Canceled):
		return common.NewHttpError(common.StatusClientClosedRequest, "CANCELLED", "request cancelled")
	}
	return common.HTTPErrorInternalError("")
}
