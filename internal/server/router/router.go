package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/server/handlers"
)

// New wires the Gin engine with the ledger and report routes. webhook may be
// nil when the WhatsApp channel is disabled.
func New(ledger *handlers.LedgerHandler, reports *handlers.ReportHandler, webhook *handlers.ChannelHandler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/farmers", ledger.ListFarmers)
		api.POST("/farmers", ledger.CreateFarmer)
		api.GET("/farmers/:id", ledger.GetFarmer)
		api.DELETE("/farmers/:id", ledger.DeleteFarmer)
		api.GET("/farmers/:id/balance", ledger.Balance)
		api.GET("/farmers/:id/history", ledger.History)

		api.POST("/deliveries", ledger.CreateDelivery)
		api.DELETE("/deliveries/:id", ledger.DeleteDelivery)

		api.POST("/payments", ledger.CreatePayment)
		api.DELETE("/payments/:id", ledger.DeletePayment)

		api.GET("/rates", ledger.ListRates)
		api.PUT("/rates/:reading", ledger.UpdateRate)

		api.GET("/transactions", reports.Transactions)
		api.GET("/reports/transactions.csv", reports.TransactionsCSV)
		api.GET("/reports/transactions.xlsx", reports.TransactionsXLSX)
		api.GET("/reports/summary", reports.Summary)
		api.GET("/reports/summary.csv", reports.SummaryCSV)
		api.GET("/reports/summary.xlsx", reports.SummaryXLSX)
	}

	if webhook != nil {
		r.GET("/webhook", webhook.Verify)
		r.POST("/webhook", webhook.Receive)
		r.POST("/send-message", webhook.SendMessage)
	}

	logger.Info("router initialized", zap.Bool("whatsapp", webhook != nil))

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
