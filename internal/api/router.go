package api

import (
	"smart_parking_core/internal/api/handler"
	"smart_parking_core/internal/api/middleware"
	"smart_parking_core/internal/payment"
	"smart_parking_core/internal/service"

	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	AuthService    *service.AuthService
	ParkingService *service.ParkingService
	SlotService    *service.SlotService
	MonthlyService *service.MonthlyVehicleService
	TxService      *service.TransactionService
	FeeService     *service.FeeService
	LPRService     *service.LPRService
	Classifier     *service.ClassificationService
	MomoClient     *payment.MomoClient
	StripeClient   *payment.StripeClient
	AuthMw         *middleware.AuthMiddleware
	WSManager      *handler.WebSocketManager
}

func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// WebSocket endpoint cho màn hình giám sát (không cần auth)
	wsHandler := handler.NewWebSocketHandler(deps.WSManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(deps.AuthService)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// Callback công khai từ cổng thanh toán
	paymentHandler := handler.NewPaymentHandler(deps.TxService, deps.MonthlyService, deps.MomoClient)
	r.POST("/payments/momo/ipn", paymentHandler.MomoIPN)

	v1 := r.Group("/api/v1")
	v1.Use(deps.AuthMw.Authenticate())
	{
		parkingH := handler.NewParkingHandler(deps.ParkingService)
		parkingRoutes := v1.Group("/parking")
		{
			parkingRoutes.POST("/check-in", parkingH.CheckIn)
			parkingRoutes.POST("/check-out", parkingH.CheckOut)
			parkingRoutes.GET("/vehicles", parkingH.GetParkedVehicles)
		}

		slotH := handler.NewParkingSlotHandler(deps.SlotService)
		slotRoutes := v1.Group("/parking-slots")
		{
			slotRoutes.GET("", slotH.GetAllSlots)
			slotRoutes.GET("/summary", slotH.GetSummary)
			slotRoutes.PUT("/adjust", deps.AuthMw.AuthorizeRole("admin"), slotH.AdjustSpaces)
			slotRoutes.POST("/reset", deps.AuthMw.AuthorizeRole("admin"), slotH.ResetParkingLot)
			slotRoutes.GET("/:slot_id", slotH.GetSlotByID)
		}

		monthlyH := handler.NewMonthlyVehicleHandler(deps.MonthlyService, deps.TxService, deps.MomoClient, deps.StripeClient)
		monthlyRoutes := v1.Group("/monthly-vehicles")
		{
			monthlyRoutes.POST("/register", monthlyH.Register)
			monthlyRoutes.GET("", monthlyH.Find)
			monthlyRoutes.GET("/quote", monthlyH.Quote)
			monthlyRoutes.GET("/:id", monthlyH.GetByID)
			monthlyRoutes.POST("/:id/renew", monthlyH.Renew)
			monthlyRoutes.POST("/:id/cancel", deps.AuthMw.AuthorizeRole("admin"), monthlyH.Cancel)
		}

		txH := handler.NewTransactionHandler(deps.TxService)
		txRoutes := v1.Group("/transactions")
		{
			txRoutes.POST("", txH.Create)
			txRoutes.GET("", txH.Find)
			txRoutes.GET("/revenue", deps.AuthMw.AuthorizeRole("admin"), txH.Revenue)
			txRoutes.GET("/:id", txH.GetByID)
		}

		v1.POST("/payments/stripe/confirm", paymentHandler.StripeConfirm)

		settingsH := handler.NewSettingsHandler(deps.FeeService)
		settingsRoutes := v1.Group("/settings")
		settingsRoutes.Use(deps.AuthMw.AuthorizeRole("admin"))
		{
			settingsRoutes.GET("", settingsH.GetSettings)
			settingsRoutes.PUT("/fees", settingsH.UpdateFees)
			settingsRoutes.GET("/discount-tiers", settingsH.GetDiscountTiers)
			settingsRoutes.PUT("/discount-tiers", settingsH.ReplaceDiscountTiers)
		}

		if deps.LPRService != nil {
			lprH := handler.NewLPRHandler(deps.LPRService, deps.Classifier)
			lprRoutes := v1.Group("/lpr")
			lprRoutes.Use(deps.AuthMw.AuthorizeRole("admin", "operator"))
			{
				lprRoutes.POST("/process-image", lprH.ProcessImage)
			}
		}
	}
	return r
}
