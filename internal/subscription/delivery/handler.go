package delivery

import (
	"errors"
	"net/http"

	authdelivery "mailsense-backend/internal/auth/delivery"
	authusecase "mailsense-backend/internal/auth/usecase"
	"mailsense-backend/internal/subscription/usecase"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	subscriptionUsecase usecase.SubscriptionUsecase
}

func NewSubscriptionHandler(subscriptionUsecase usecase.SubscriptionUsecase) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionUsecase: subscriptionUsecase,
	}
}

// Subscribe creates (or replaces) the user's inbox subscription.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	status, err := h.subscriptionUsecase.Create(c.Request.Context(), user)
	if err != nil {
		if errors.Is(err, authusecase.ErrMicrosoftNotLinked) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, status)
}

// Renew extends the current subscription without changing its id.
func (h *SubscriptionHandler) Renew(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	status, err := h.subscriptionUsecase.Renew(c.Request.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrNoSubscription):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, authusecase.ErrMicrosoftNotLinked):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, status)
}

// Unsubscribe removes the user's subscription.
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.subscriptionUsecase.Delete(c.Request.Context(), user); err != nil {
		if errors.Is(err, usecase.ErrNoSubscription) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "subscription removed"})
}

// Status reports whether the subscription is live, lapsed upstream, or
// blocked on expired credentials.
func (h *SubscriptionHandler) Status(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	status, err := h.subscriptionUsecase.Status(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}
