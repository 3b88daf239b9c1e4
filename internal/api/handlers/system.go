package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/terzinodays/arbiter-go/internal/services"
)

// SystemHandler serves host resource snapshots.
type SystemHandler struct {
	monitor *services.MonitorService
}

func NewSystemHandler(monitor *services.MonitorService) *SystemHandler {
	return &SystemHandler{monitor: monitor}
}

func (h *SystemHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Snapshot(c.Request.Context()))
}
