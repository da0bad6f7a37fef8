package api

import (
	actionUsecasePkg "mailsense-backend/internal/action/usecase"
	authUsecasePkg "mailsense-backend/internal/auth/usecase"
	emailUsecasePkg "mailsense-backend/internal/email/usecase"
	pipelineDelivery "mailsense-backend/internal/pipeline/delivery"
	subscriptionUsecasePkg "mailsense-backend/internal/subscription/usecase"
	"mailsense-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Handler struct {
	authUsecase         authUsecasePkg.AuthUsecase
	emailUsecase        emailUsecasePkg.EmailUsecase
	actionUsecase       actionUsecasePkg.ActionUsecase
	subscriptionUsecase subscriptionUsecasePkg.SubscriptionUsecase
	webhookHandler      *pipelineDelivery.WebhookHandler
	registry            *prometheus.Registry
	config              *config.Config
}

func NewHandler(
	authUc authUsecasePkg.AuthUsecase,
	emailUc emailUsecasePkg.EmailUsecase,
	actionUc actionUsecasePkg.ActionUsecase,
	subscriptionUc subscriptionUsecasePkg.SubscriptionUsecase,
	webhookHandler *pipelineDelivery.WebhookHandler,
	registry *prometheus.Registry,
	cfg *config.Config,
) *Handler {
	return &Handler{
		authUsecase:         authUc,
		emailUsecase:        emailUc,
		actionUsecase:       actionUc,
		subscriptionUsecase: subscriptionUc,
		webhookHandler:      webhookHandler,
		registry:            registry,
		config:              cfg,
	}
}

// Engine assembles the gin engine with middleware and the route table.
// The caller owns the listening socket and shutdown.
func (h *Handler) Engine() *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.emailUsecase, h.actionUsecase, h.subscriptionUsecase, h.webhookHandler, h.registry)

	return r
}
