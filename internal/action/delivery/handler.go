package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"mailsense-backend/internal/action/usecase"

	"github.com/gin-gonic/gin"
)

// ActionHandler handles action item HTTP requests
type ActionHandler struct {
	actionUsecase usecase.ActionUsecase
}

// NewActionHandler creates a new ActionHandler
func NewActionHandler(actionUsecase usecase.ActionUsecase) *ActionHandler {
	return &ActionHandler{
		actionUsecase: actionUsecase,
	}
}

// GetActions returns the authenticated user's action items
// GET /api/actions?status=pending&limit=50&offset=0
func (h *ActionHandler) GetActions(c *gin.Context) {
	userID := c.GetString("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, total, err := h.actionUsecase.ListActions(userID, c.Query("status"), limit, offset)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"actions": items,
		"total":   total,
	})
}

// GetActionByID returns a specific action item
// GET /api/actions/:id
func (h *ActionHandler) GetActionByID(c *gin.Context) {
	userID := c.GetString("userID")
	actionID := c.Param("id")

	item, err := h.actionUsecase.GetAction(userID, actionID)
	if err != nil {
		writeActionError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// UpdateActionStatus moves an action item through its workflow
// PATCH /api/actions/:id/status
func (h *ActionHandler) UpdateActionStatus(c *gin.Context) {
	userID := c.GetString("userID")
	actionID := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.actionUsecase.UpdateStatus(userID, actionID, req.Status)
	if err != nil {
		writeActionError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func writeActionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrActionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrActionForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
