package httputil

import "github.com/gin-gonic/gin"

// IHttpHandler mounts a handler's routes under its Root in each access tier:
// pub for reads, private for swap submission, admin behind the API key.
type IHttpHandler interface {
	Root() string
	SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup)
}
