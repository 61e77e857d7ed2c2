package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/waveline-app/waveline/internal/cache"
	"github.com/waveline-app/waveline/internal/models"
	"github.com/waveline-app/waveline/internal/pagination"
	apperrors "github.com/waveline-app/waveline/pkg/errors"
	"github.com/waveline-app/waveline/pkg/logger"
	"github.com/waveline-app/waveline/pkg/metrics"
)

// DefaultDedupWindow suppresses duplicate notifications created within this
// interval for the same type, participants and correlation ids.
const DefaultDedupWindow = 24 * time.Hour

// Publisher delivers an event to every live connection of a recipient.
// Implemented by the realtime hub; tests substitute a recording fake.
type Publisher interface {
	EmitToUser(userID, event string, data any)
}

// CreateNotificationInput defines the attributes required to notify a
// recipient. Correlation ids tie the notification back to the entity that
// produced it; only the ones relevant to the type are set.
type CreateNotificationInput struct {
	Type        models.NotificationType
	RecipientID string
	SenderID    string
	PostID      *string
	CommentID   *string
	LikeID      *string
	FollowID    *string
	ChatID      *string
	MessageID   *string
}

// ListNotificationsInput defines pagination and filters for a recipient's
// notification feed.
type ListNotificationsInput struct {
	RecipientID string
	Page        int
	Limit       int
	SortBy      string
	SortOrder   string
	ReadOnly    bool
}

var listSortColumns = map[string]string{
	"createdAt": "created_at",
	"read":      "read",
}

// NotificationService persists notifications, deduplicates repeats and pushes
// created events to the recipient's live connections.
type NotificationService struct {
	db          *gorm.DB
	publisher   Publisher
	unread      cache.UnreadCounter
	dedupWindow time.Duration
	log         *zap.Logger
}

// NewNotificationService constructs a NotificationService. The publisher may
// be nil when realtime delivery is disabled; a nil unread counter disables
// count caching.
func NewNotificationService(db *gorm.DB, publisher Publisher, unread cache.UnreadCounter, dedupWindow time.Duration) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if unread == nil {
		unread = cache.NoopUnreadCounter{}
	}
	if dedupWindow <= 0 {
		dedupWindow = DefaultDedupWindow
	}
	return &NotificationService{
		db:          db,
		publisher:   publisher,
		unread:      unread,
		dedupWindow: dedupWindow,
		log:         logger.WithModule("notifications"),
	}, nil
}

// Create persists a notification and pushes it to the recipient's live
// connections. A duplicate created inside the dedup window returns the
// existing row instead of inserting a new one; the push still happens so
// reconnecting clients see the event.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	if !input.Type.Valid() {
		return nil, apperrors.NewBadRequest("invalid notification type")
	}
	recipientID := strings.TrimSpace(input.RecipientID)
	senderID := strings.TrimSpace(input.SenderID)
	if recipientID == "" || senderID == "" {
		return nil, apperrors.NewBadRequest("recipient and sender are required")
	}
	if recipientID == senderID {
		return nil, apperrors.NewBadRequest("you cannot create notifications for yourself")
	}

	notification, outcome, err := s.findOrCreate(ctx, input, recipientID, senderID)
	if err != nil {
		return nil, err
	}
	metrics.NotificationsCreated.WithLabelValues(string(input.Type), outcome).Inc()

	if outcome == "created" {
		if err := s.unread.Invalidate(ctx, recipientID); err != nil {
			s.log.Warn("invalidate unread cache", zap.String("recipient_id", recipientID), zap.Error(err))
		}
	}

	if s.publisher != nil {
		s.publisher.EmitToUser(recipientID, eventForType(input.Type), notification)
	}

	return notification, nil
}

func (s *NotificationService) findOrCreate(ctx context.Context, input CreateNotificationInput, recipientID, senderID string) (*models.Notification, string, error) {
	cutoff := time.Now().Add(-s.dedupWindow)

	query := s.db.WithContext(ctx).
		Where("type = ? AND recipient_id = ? AND sender_id = ? AND created_at >= ?",
			input.Type, recipientID, senderID, cutoff)
	query = whereNullable(query, "post_id", input.PostID)
	query = whereNullable(query, "comment_id", input.CommentID)
	query = whereNullable(query, "like_id", input.LikeID)
	query = whereNullable(query, "follow_id", input.FollowID)
	query = whereNullable(query, "chat_id", input.ChatID)
	query = whereNullable(query, "message_id", input.MessageID)

	var existing models.Notification
	err := query.Preload("Sender").First(&existing).Error
	if err == nil {
		return &existing, "deduplicated", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("notification service: lookup duplicate: %w", err)
	}

	notification := models.Notification{
		Type:        input.Type,
		RecipientID: recipientID,
		SenderID:    senderID,
		PostID:      input.PostID,
		CommentID:   input.CommentID,
		LikeID:      input.LikeID,
		FollowID:    input.FollowID,
		ChatID:      input.ChatID,
		MessageID:   input.MessageID,
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, "", fmt.Errorf("notification service: create notification: %w", err)
	}

	if err := s.db.WithContext(ctx).Preload("Sender").First(&notification, "id = ?", notification.ID).Error; err != nil {
		return nil, "", fmt.Errorf("notification service: load created notification: %w", err)
	}

	return &notification, "created", nil
}

// List returns one page of the recipient's notifications. ReadOnly narrows
// the feed to unread rows.
func (s *NotificationService) List(ctx context.Context, input ListNotificationsInput) (*pagination.Result[models.Notification], error) {
	ctx = ensureContext(ctx)
	recipientID := strings.TrimSpace(input.RecipientID)
	if recipientID == "" {
		return nil, apperrors.NewBadRequest("recipient is required")
	}

	sortBy := input.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	column, ok := listSortColumns[sortBy]
	if !ok {
		return nil, apperrors.NewBadRequest("invalid sort field, allowed: createdAt, read")
	}

	sortOrder := strings.ToLower(strings.TrimSpace(input.SortOrder))
	switch sortOrder {
	case "":
		sortOrder = "desc"
	case "asc", "desc":
	default:
		return nil, apperrors.NewBadRequest("invalid sort order, allowed: asc, desc")
	}

	page, limit := pagination.Normalize(input.Page, input.Limit)

	query := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ?", recipientID)
	if input.ReadOnly {
		query = query.Where("read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("notification service: count notifications: %w", err)
	}

	var rows []models.Notification
	if err := query.
		Preload("Sender").
		Order(column + " " + sortOrder).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	result := pagination.NewResult(rows, total, page, limit)
	return &result, nil
}

// UnreadCount returns the number of unread notifications for the recipient,
// served from the cache when fresh.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, apperrors.NewBadRequest("recipient is required")
	}

	count, err := s.unread.Get(ctx, userID)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("read unread cache", zap.String("recipient_id", userID), zap.Error(err))
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: count unread: %w", err)
	}

	if err := s.unread.Set(ctx, userID, count); err != nil {
		s.log.Warn("write unread cache", zap.String("recipient_id", userID), zap.Error(err))
	}
	return count, nil
}

// MarkRead flags a single notification as read. Marking an already-read
// notification is a no-op that returns the current row.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithMessage("Notification not found")
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	if notification.Read {
		return &notification, nil
	}

	if err := s.db.WithContext(ctx).
		Model(&notification).
		Update("read", true).Error; err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}
	notification.Read = true

	s.invalidateUnread(ctx, userID)
	return &notification, nil
}

// MarkAllRead flags every unread notification of the recipient as read and
// returns the number of rows updated.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Update("read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", result.Error)
	}

	s.invalidateUnread(ctx, userID)
	return result.RowsAffected, nil
}

// Delete removes a notification owned by the recipient.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound.WithMessage("Notification not found")
	}

	s.invalidateUnread(ctx, userID)
	return nil
}

// DeleteAll removes every notification of the recipient and returns the
// number of rows deleted.
func (s *NotificationService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("recipient_id = ?", userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: delete all notifications: %w", result.Error)
	}

	s.invalidateUnread(ctx, userID)
	return result.RowsAffected, nil
}

// PurgeReadBefore removes read notifications created before the cutoff.
// Used by the retention cleaner.
func (s *NotificationService) PurgeReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: purge read notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *NotificationService) invalidateUnread(ctx context.Context, userID string) {
	if err := s.unread.Invalidate(ctx, userID); err != nil {
		s.log.Warn("invalidate unread cache", zap.String("recipient_id", userID), zap.Error(err))
	}
}

// whereNullable matches a nullable correlation column: an unset pointer must
// match NULL, not any value, so duplicates with different correlations are
// distinct.
func whereNullable(tx *gorm.DB, column string, value *string) *gorm.DB {
	if value == nil {
		return tx.Where(column + " IS NULL")
	}
	return tx.Where(column+" = ?", *value)
}

func eventForType(t models.NotificationType) string {
	switch t {
	case models.NotificationFollow:
		return "notification:follow"
	case models.NotificationLike:
		return "notification:like"
	case models.NotificationComment:
		return "notification:comment"
	case models.NotificationMessage:
		return "MESSAGE"
	default:
		return "notification"
	}
}
