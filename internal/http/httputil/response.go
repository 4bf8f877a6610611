package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/nft-swap-engine/internal/common"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, code, err string) {
	c.JSON(status, Response{
		Success: false,
		Code:    code,
		Error:   err,
	})
}

// Abort writes e and stops the handler chain.
func Abort(c *gin.Context, e *common.HttpError) {
	c.AbortWithStatusJSON(e.StatusCode, Response{
		Success: false,
		Code:    e.Code,
		Error:   e.Message,
	})
}

func BadRequest(c *gin.Context, err string) {
	Abort(c, common.HTTPErrorBadRequest(err))
}

func NotFound(c *gin.Context, err string) {
	Abort(c, common.HTTPErrorNotFound(err))
}

func InternalError(c *gin.Context, err string) {
	Abort(c, common.HTTPErrorInternalError(err))
}

func TooManyRequests(c *gin.Context, err string) {
	Abort(c, common.NewHttpError(http.StatusTooManyRequests, "RATE_LIMITED", err))
}
