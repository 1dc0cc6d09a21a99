package http

import "github.com/gin-gonic/gin"

func RegisterWalletRoutes(r *gin.Engine, handler *WalletHandler) {
	wallets := r.Group("/api/wallets")
	{
		wallets.POST("", handler.CreateWallet)
		wallets.POST("/:id", handler.CreateWallet)
		wallets.POST("/:id/credit", handler.CreditWallet)
		wallets.POST("/:id/debit", handler.DebitWallet)
		wallets.GET("/:id", handler.GetWallet)
	}
}
