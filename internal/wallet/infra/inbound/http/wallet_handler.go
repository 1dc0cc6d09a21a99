package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/walletflow/internal/wallet/domain"
)

// WalletCommands es lo que el handler necesita del write path.
type WalletCommands interface {
	CreateWallet(ctx context.Context, walletID string) (*domain.Event, error)
	CreditWallet(ctx context.Context, walletID string, amount int64) (*domain.Event, error)
	DebitWallet(ctx context.Context, walletID string, amount int64) (*domain.Event, error)
	GetWallet(ctx context.Context, walletID string) (domain.WalletState, error)
}

// WalletHandler encapsula los endpoints HTTP del write path.
type WalletHandler struct {
	service WalletCommands
}

func NewWalletHandler(service WalletCommands) *WalletHandler {
	return &WalletHandler{service: service}
}

type amountRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// ---------------- Handlers ----------------

// CreateWallet endpoint POST /wallets y POST /wallets/:id
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	walletID := c.Param("id") // vacío en POST /wallets: el servicio genera uno

	event, err := h.service.CreateWallet(c.Request.Context(), walletID)
	if err != nil {
		respondCommandError(c, event, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "event": event})
}

// CreditWallet endpoint POST /wallets/:id/credit
func (h *WalletHandler) CreditWallet(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	event, err := h.service.CreditWallet(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		respondCommandError(c, event, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "event": event})
}

// DebitWallet endpoint POST /wallets/:id/debit
func (h *WalletHandler) DebitWallet(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	event, err := h.service.DebitWallet(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		respondCommandError(c, event, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "event": event})
}

// GetWallet endpoint GET /wallets/:id (estado reconstruido desde el log)
func (h *WalletHandler) GetWallet(c *gin.Context) {
	state, err := h.service.GetWallet(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "wallet": state})
}

// respondCommandError mapea la taxonomía de errores del dominio a HTTP.
func respondCommandError(c *gin.Context, event *domain.Event, err error) {
	switch {
	case errors.Is(err, domain.ErrPublication):
		// Éxito degradado: el evento está confirmado en el log pero el broker
		// no lo recibió. El cliente no debe reintentar el command.
		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"event":   event,
			"warning": "event stored but not published; read models may lag",
		})
	case errors.Is(err, domain.ErrWalletAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrWalletNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
	case domain.IsInvalidCommand(err):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrConcurrencyConflict):
		// Retryable: el cliente debe releer y reenviar.
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error(), "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
