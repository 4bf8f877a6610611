package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/nft-swap-engine/internal/http/httputil"
	"github.com/hxuan190/nft-swap-engine/internal/services/monitor"
)

type SecurityReporter interface {
	Report() monitor.Report
	Alerts() []monitor.Alert
}

type SecurityHandler struct {
	monitor SecurityReporter
}

func NewSecurityHandler(m SecurityReporter) *SecurityHandler {
	return &SecurityHandler{monitor: m}
}

func (h *SecurityHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	admin.GET("/report", h.getReport)
	admin.GET("/alerts", h.getAlerts)
}

func (h *SecurityHandler) Root() string {
	return "/security"
}

// @Summary Security event report
// @Tags admin
// @Produce json
// @Security AdminKey
// @Success 200 {object} httputil.Response{data=monitor.Report}
// @Router /api/v1/admin/security/report [get]
func (h *SecurityHandler) getReport(c *gin.Context) {
	httputil.Success(c, h.monitor.Report())
}

func (h *SecurityHandler) getAlerts(c *gin.Context) {
	httputil.Success(c, h.monitor.Alerts())
}
