package api

import (
	"net/http"

	actionDelivery "mailsense-backend/internal/action/delivery"
	actionUsecase "mailsense-backend/internal/action/usecase"
	"mailsense-backend/internal/auth/delivery"
	authUsecase "mailsense-backend/internal/auth/usecase"
	emailDelivery "mailsense-backend/internal/email/delivery"
	emailUsecase "mailsense-backend/internal/email/usecase"
	pipelineDelivery "mailsense-backend/internal/pipeline/delivery"
	subscriptionDelivery "mailsense-backend/internal/subscription/delivery"
	subscriptionUsecase "mailsense-backend/internal/subscription/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	r *gin.Engine,
	authUc authUsecase.AuthUsecase,
	emailUc emailUsecase.EmailUsecase,
	actionUc actionUsecase.ActionUsecase,
	subscriptionUc subscriptionUsecase.SubscriptionUsecase,
	webhookHandler *pipelineDelivery.WebhookHandler,
	registry *prometheus.Registry,
) {
	authHandler := delivery.NewAuthHandler(authUc)
	emailHandler := emailDelivery.NewEmailHandler(emailUc)
	actionHandler := actionDelivery.NewActionHandler(actionUc)
	subscriptionHandler := subscriptionDelivery.NewSubscriptionHandler(subscriptionUc)

	// Graph webhook. Stays public: validation handshakes and change
	// notifications carry no bearer token.
	r.POST("/notifications", webhookHandler.HandleNotification)

	// Prometheus scrape endpoint.
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(authUc), authHandler.Me)
			auth.GET("/connect", delivery.AuthMiddleware(authUc), authHandler.Connect)
			// Microsoft redirects the browser here; the one-time state
			// token authenticates the request instead of a bearer token.
			auth.GET("/callback", authHandler.Callback)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(authUc))
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		// Email routes (protected)
		emails := api.Group("/emails")
		emails.Use(delivery.AuthMiddleware(authUc))
		{
			emails.GET("", emailHandler.List)
			emails.GET("/:id", emailHandler.Get)
			emails.POST("/process-batch", emailHandler.ProcessBatch)
		}

		// Search routes (protected)
		search := api.Group("/search")
		search.Use(delivery.AuthMiddleware(authUc))
		{
			search.POST("/semantic", emailHandler.SemanticSearch)
		}

		// Action item routes (protected)
		actions := api.Group("/actions")
		actions.Use(delivery.AuthMiddleware(authUc))
		{
			actions.GET("", actionHandler.GetActions)
			actions.GET("/:id", actionHandler.GetActionByID)
			actions.PATCH("/:id/status", actionHandler.UpdateActionStatus)
		}

		// Subscription routes (protected)
		subscriptions := api.Group("/subscriptions")
		subscriptions.Use(delivery.AuthMiddleware(authUc))
		{
			subscriptions.POST("", subscriptionHandler.Subscribe)
			subscriptions.POST("/renew", subscriptionHandler.Renew)
			subscriptions.DELETE("", subscriptionHandler.Unsubscribe)
			subscriptions.GET("/status", subscriptionHandler.Status)
		}

		// Settings routes (public) - Runtime configuration
		settings := api.Group("/settings")
		{
			settings.GET("/ollama", GetOllamaSettings)
			settings.PUT("/ollama", UpdateOllamaSettings)
			settings.POST("/ollama/test", TestOllamaConnection)
		}
	}
}
