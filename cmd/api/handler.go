package api

import (
	"net/http"

	"carworld-backend/internal/notification"
	"carworld-backend/internal/notification/domain"
	"carworld-backend/internal/notification/repository"

	"github.com/gin-gonic/gin"
)

// Handler exposes the operational surface around the notification
// subsystem: token registration, a queue-depth view for monitoring, and
// a manual push trigger.
type Handler struct {
	service   *notification.Service
	queueRepo repository.NotificationQueueRepository
}

func NewHandler(service *notification.Service, queueRepo repository.NotificationQueueRepository) *Handler {
	return &Handler{
		service:   service,
		queueRepo: queueRepo,
	}
}

type registerTokenRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

func (h *Handler) RegisterToken(c *gin.Context) {
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.RegisterToken(req.UserID, req.Token, req.Platform); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token registered"})
}

func (h *Handler) UnregisterToken(c *gin.Context) {
	token := c.Param("token")
	if err := h.service.UnregisterToken(token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token unregistered"})
}

type queuePushRequest struct {
	UserID         string            `json:"user_id" binding:"required"`
	Title          string            `json:"title" binding:"required"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data"`
	IdempotencyKey string            `json:"idempotency_key"`
}

func (h *Handler) QueuePush(c *gin.Context) {
	var req queuePushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.service.QueuePush(c.Request.Context(), req.UserID, req.Title, req.Body, req.Data, req.IdempotencyKey)
	c.JSON(http.StatusAccepted, gin.H{"message": "notification queued"})
}

// QueueStats reports queue depth per status. FAILED is the number worth
// alerting on; rows land there only after exhausting retries.
func (h *Handler) QueueStats(c *gin.Context) {
	stats := gin.H{}
	for _, status := range []domain.NotificationStatus{domain.StatusPending, domain.StatusSent, domain.StatusFailed} {
		count, err := h.queueRepo.CountByStatus(status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		stats[string(status)] = count
	}
	c.JSON(http.StatusOK, stats)
}
