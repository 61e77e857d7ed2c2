package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/waveline-app/waveline/internal/middleware"
	"github.com/waveline-app/waveline/internal/models"
	"github.com/waveline-app/waveline/internal/services"
	"github.com/waveline-app/waveline/pkg/errors"
	"github.com/waveline-app/waveline/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for the notification feed.
type NotificationHandler struct {
	service *services.NotificationService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

type createNotificationRequest struct {
	Type        string  `json:"type" validate:"required,oneof=FOLLOW LIKE MESSAGE COMMENT"`
	RecipientID string  `json:"recipientId" validate:"required,uuid4"`
	PostID      *string `json:"postId" validate:"omitempty,uuid4"`
	CommentID   *string `json:"commentId" validate:"omitempty,uuid4"`
	LikeID      *string `json:"likeId" validate:"omitempty,uuid4"`
	FollowID    *string `json:"followId" validate:"omitempty,uuid4"`
	ChatID      *string `json:"chatId" validate:"omitempty,uuid4"`
	MessageID   *string `json:"messageId" validate:"omitempty,uuid4"`
}

// Create persists a notification on behalf of the authenticated sender and
// pushes it to the recipient's live connections.
func (h *NotificationHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req createNotificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	notification, err := h.service.Create(requestContext(c), services.CreateNotificationInput{
		Type:        models.NotificationType(req.Type),
		RecipientID: req.RecipientID,
		SenderID:    userID,
		PostID:      req.PostID,
		CommentID:   req.CommentID,
		LikeID:      req.LikeID,
		FollowID:    req.FollowID,
		ChatID:      req.ChatID,
		MessageID:   req.MessageID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, notification)
}

// List returns one page of the authenticated user's notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	result, err := h.service.List(requestContext(c), services.ListNotificationsInput{
		RecipientID: userID,
		Page:        parseIntQuery(c, "page", 0),
		Limit:       parseIntQuery(c, "limit", 0),
		SortBy:      strings.TrimSpace(c.Query("sortBy")),
		SortOrder:   strings.TrimSpace(c.Query("sortOrder")),
		ReadOnly:    parseBoolQuery(c, "readOnly", false),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// UnreadCount returns the number of unread notifications.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": count})
}

// MarkRead flags a single notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	notification, err := h.service.MarkRead(requestContext(c), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, notification)
}

// MarkAllRead flags every unread notification as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	updated, err := h.service.MarkAllRead(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": updated})
}

// Delete removes a single notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.service.Delete(requestContext(c), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Notification deleted", nil)
}

// DeleteAll removes every notification of the authenticated user.
func (h *NotificationHandler) DeleteAll(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	deleted, err := h.service.DeleteAll(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": deleted})
}
