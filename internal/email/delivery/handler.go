package delivery

import (
	"errors"
	"net/http"
	"strconv"

	authdelivery "mailsense-backend/internal/auth/delivery"
	authusecase "mailsense-backend/internal/auth/usecase"
	emaildto "mailsense-backend/internal/email/dto"
	"mailsense-backend/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	emailUsecase usecase.EmailUsecase
}

func NewEmailHandler(emailUsecase usecase.EmailUsecase) *EmailHandler {
	return &EmailHandler{
		emailUsecase: emailUsecase,
	}
}

// List returns the user's processed emails, newest first. A q parameter
// switches to fuzzy matching over subject and sender.
func (h *EmailHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	skip := 0
	limit := 0

	if skipStr := c.Query("skip"); skipStr != "" {
		if parsed, err := strconv.Atoi(skipStr); err == nil && parsed >= 0 {
			skip = parsed
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	unreadOnly := false
	if v := c.Query("unread_only"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			unreadOnly = parsed
		}
	}

	response, err := h.emailUsecase.List(userID, skip, limit, unreadOnly, c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *EmailHandler) Get(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	email, err := h.emailUsecase.Get(userID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if email == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}

	c.JSON(http.StatusOK, email)
}

// SemanticSearch runs a vector similarity query over the user's emails.
func (h *EmailHandler) SemanticSearch(c *gin.Context) {
	userID := c.GetString("userID")

	var req emaildto.SemanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.emailUsecase.SemanticSearch(c.Request.Context(), userID, req.Query, req.Limit)
	if err != nil {
		if errors.Is(err, usecase.ErrSemanticSearchUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// ProcessBatch queues the user's unread emails for enrichment, skipping
// those already processed.
func (h *EmailHandler) ProcessBatch(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	response, err := h.emailUsecase.BatchReprocess(c.Request.Context(), user)
	if err != nil {
		if errors.Is(err, authusecase.ErrMicrosoftNotLinked) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}
