package middlewares

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/nft-swap-engine/internal/common"
	"github.com/hxuan190/nft-swap-engine/internal/http/httputil"
)

const AdminKeyHeader = "X-Admin-Key"

// UnauthorizedLogger records rejected admin calls.
type UnauthorizedLogger interface {
	LogUnauthorizedAccess(details map[string]string)
}

// AdminAuth guards the admin group with a shared API key. An empty key
// disables the group.
func AdminAuth(apiKey string, logger UnauthorizedLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AdminKeyHeader)
		if apiKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
			logger.LogUnauthorizedAccess(map[string]string{
				"ip":     c.ClientIP(),
				"path":   c.FullPath(),
				"method": c.Request.Method,
			})
			httputil.Abort(c, common.HTTPErrorUnauthorized("invalid admin key"))
			return
		}
		c.Next()
	}
}
