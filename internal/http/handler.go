package http

import (
	"context"
	"fmt"
	gohttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/hxuan190/nft-swap-engine/internal/config"
	"github.com/hxuan190/nft-swap-engine/internal/http/httputil"
	"github.com/hxuan190/nft-swap-engine/internal/http/middlewares"
)

const (
	API_VERSION  = "v1"
	HTTP_SERVICE = "http-service"
)

// Per-IP limits. Swap preparation signs with custodial keys so it gets the
// tighter bucket.
const (
	globalRatePerSecond = 10
	globalBurst         = 20
	swapRatePerSecond   = 1
	swapBurst           = 5
)

type HTTPService struct {
	conf    *config.GeneralConfig
	auditor middlewares.UnauthorizedLogger
	server  *gohttp.Server
	router  *gin.Engine

	rateLimiter *middlewares.RateLimiter
	swapLimiter *middlewares.RateLimiter

	handlers []httputil.IHttpHandler
}

func NewHTTPService(conf *config.GeneralConfig, auditor middlewares.UnauthorizedLogger, handlers ...httputil.IHttpHandler) *HTTPService {
	svc := &HTTPService{
		conf:        conf,
		auditor:     auditor,
		rateLimiter: middlewares.NewRateLimiter("global", globalRatePerSecond, globalBurst),
		swapLimiter: middlewares.NewRateLimiter("swap", swapRatePerSecond, swapBurst),
		handlers:    handlers,
	}
	svc.router = svc.buildRouter()
	return svc
}

func (svc *HTTPService) ID() string {
	return HTTP_SERVICE
}

// Router exposes the engine for in-process tests.
func (svc *HTTPService) Router() gohttp.Handler {
	return svc.router
}

func (svc *HTTPService) buildRouter() *gin.Engine {
	if !svc.conf.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	corsConf.AddAllowHeaders("Authorization", middlewares.AdminKeyHeader)
	r.Use(cors.New(corsConf))

	r.Use(middlewares.MetricsMiddleware())
	r.Use(svc.rateLimiter.RateLimitMiddleware())

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(gohttp.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("api")
	pub := api.Group(API_VERSION)
	priv := api.Group(API_VERSION, svc.swapLimiter.RateLimitMiddleware())

	admin := api.Group(fmt.Sprintf("%s/admin", API_VERSION), middlewares.AdminAuth(svc.conf.AdminAPIKey, svc.auditor))

	svc.setupHandlers(pub, priv, admin)
	return r
}

func (svc *HTTPService) Start() error {
	svc.server = &gohttp.Server{
		Addr:              svc.conf.HTTPHost + ":" + svc.conf.HTTPPort,
		Handler:           svc.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("host", svc.conf.HTTPHost).Str("port", svc.conf.HTTPPort).Msg("http server started")

	if err := svc.server.ListenAndServe(); err != nil && err != gohttp.ErrServerClosed {
		return err
	}

	return nil
}

func (svc *HTTPService) Stop() error {
	if svc.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
		return err
	}
	log.Info().Msg("http server stopped gracefully")
	return nil
}

func (svc *HTTPService) setupHandlers(
	rootPub *gin.RouterGroup,
	rootPriv *gin.RouterGroup,
	rootAdmin *gin.RouterGroup,
) {
	for _, h := range svc.handlers {
		pub := rootPub.Group(h.Root())
		priv := rootPriv.Group(h.Root())
		admin := rootAdmin.Group(h.Root())
		h.SetRoutes(pub, priv, admin)
	}
}
