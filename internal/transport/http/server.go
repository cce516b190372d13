package http

import (
	"github.com/gin-gonic/gin"

	"companybuddy/internal/bootstrap"
	"companybuddy/internal/transport/http/handler"
	"companybuddy/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	authHandler := handler.NewAuthHandler(app.Auth)
	documentHandler := handler.NewDocumentHandler(app.Ingest)
	askHandler := handler.NewAskHandler(app.Ask)
	feedbackHandler := handler.NewFeedbackHandler(app.Feedback)
	analyticsHandler := handler.NewAnalyticsHandler(app.Analytics)
	conversationHandler := handler.NewConversationHandler(app.Conversations)

	auth := middleware.AuthJWT(app.Config.Auth.JWTSecret)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", auth, authHandler.Me)

	documents := v1.Group("/documents")
	documents.Use(auth)
	documents.POST("", documentHandler.Upload)
	documents.GET("", documentHandler.List)
	documents.GET("/:id", documentHandler.Get)
	documents.DELETE("/:id", documentHandler.Delete)

	v1.POST("/ask", auth, askHandler.Ask)

	feedback := v1.Group("/feedback")
	feedback.Use(auth)
	feedback.POST("", feedbackHandler.Submit)
	feedback.GET("/stats", feedbackHandler.Stats)

	analytics := v1.Group("/analytics")
	analytics.Use(auth)
	analytics.GET("/report", analyticsHandler.Report)
	analytics.GET("/queries", analyticsHandler.RecentQueries)

	conversations := v1.Group("/conversations")
	conversations.Use(auth)
	conversations.GET("", conversationHandler.List)
	conversations.GET("/:id/messages", conversationHandler.Messages)
	conversations.DELETE("/:id", conversationHandler.Delete)

	return router
}
