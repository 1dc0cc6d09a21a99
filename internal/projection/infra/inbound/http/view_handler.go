package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	projApp "github.com/davicafu/walletflow/internal/projection/application"
	projDomain "github.com/davicafu/walletflow/internal/projection/domain"
)

// ViewHandler expone el read model materializado por el projector.
type ViewHandler struct {
	projector *projApp.Projector
}

func NewViewHandler(projector *projApp.Projector) *ViewHandler {
	return &ViewHandler{projector: projector}
}

// GetWallet endpoint GET /wallets/:id
func (h *ViewHandler) GetWallet(c *gin.Context) {
	view, err := h.projector.GetView(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, projDomain.ErrViewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "wallet view not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "wallet": view})
}

// ListWallets endpoint GET /wallets?limit=n
func (h *ViewHandler) ListWallets(c *gin.Context) {
	limit := 20
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}

	views, err := h.projector.ListViews(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "wallets": views})
}

// ActivityTrend endpoint GET /analytics/activity?days=n
func (h *ViewHandler) ActivityTrend(c *gin.Context) {
	days := 7
	if d := c.Query("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil {
			days = v
		}
	}

	trend, err := h.projector.ActivityTrend(c.Request.Context(), days)
	if err != nil {
		if errors.Is(err, projDomain.ErrAnalyticsDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "analytics disabled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "trend": trend})
}

func RegisterViewRoutes(r *gin.Engine, handler *ViewHandler) {
	api := r.Group("/api")
	{
		api.GET("/wallets", handler.ListWallets)
		api.GET("/wallets/:id", handler.GetWallet)
		api.GET("/analytics/activity", handler.ActivityTrend)
	}
}
