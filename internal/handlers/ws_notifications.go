package handlers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/waveline-app/waveline/internal/realtime"
	"github.com/waveline-app/waveline/internal/services"
	"github.com/waveline-app/waveline/pkg/errors"
)

// WebSocket operation names accepted on a notification connection.
const (
	OpGet       = "notifications:get"
	OpGetUnread = "notifications:getUnread"
	OpMarkRead  = "notifications:markAsRead"
	OpMarkAll   = "notifications:markAllAsRead"
	OpDelete    = "notifications:deleteNotification"
	OpDeleteAll = "notifications:deleteAllNotification"
)

type wsListQuery struct {
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
	ReadOnly  bool   `json:"readOnly"`
}

// RegisterNotificationCommands wires the notification operations onto the hub
// so connected clients can issue them without a separate HTTP round trip.
func RegisterNotificationCommands(hub *realtime.Hub, service *services.NotificationService) {
	hub.HandleFunc(OpGet, func(ctx context.Context, userID string, data json.RawMessage) (any, error) {
		var query wsListQuery
		if len(data) > 0 {
			if err := json.Unmarshal(data, &query); err != nil {
				return nil, errors.NewBadRequest("invalid query payload")
			}
		}

		return service.List(ctx, services.ListNotificationsInput{
			RecipientID: userID,
			Page:        query.Page,
			Limit:       query.Limit,
			SortBy:      query.SortBy,
			SortOrder:   query.SortOrder,
			ReadOnly:    query.ReadOnly,
		})
	})

	hub.HandleFunc(OpGetUnread, func(ctx context.Context, userID string, _ json.RawMessage) (any, error) {
		return service.UnreadCount(ctx, userID)
	})

	hub.HandleFunc(OpMarkRead, func(ctx context.Context, userID string, data json.RawMessage) (any, error) {
		id, err := decodeNotificationID(data)
		if err != nil {
			return nil, err
		}

		notification, err := service.MarkRead(ctx, userID, id)
		if err != nil {
			return nil, err
		}

		// Mirror the result to every open tab of the same user.
		hub.EmitToUser(userID, OpMarkRead, notification)
		return notification, nil
	})

	hub.HandleFunc(OpMarkAll, func(ctx context.Context, userID string, _ json.RawMessage) (any, error) {
		updated, err := service.MarkAllRead(ctx, userID)
		if err != nil {
			return nil, err
		}

		result := map[string]int64{"count": updated}
		hub.EmitToUser(userID, OpMarkAll, result)
		return result, nil
	})

	hub.HandleFunc(OpDelete, func(ctx context.Context, userID string, data json.RawMessage) (any, error) {
		id, err := decodeNotificationID(data)
		if err != nil {
			return nil, err
		}

		if err := service.Delete(ctx, userID, id); err != nil {
			return nil, err
		}
		return map[string]string{"id": id}, nil
	})

	hub.HandleFunc(OpDeleteAll, func(ctx context.Context, userID string, _ json.RawMessage) (any, error) {
		deleted, err := service.DeleteAll(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"count": deleted}, nil
	})
}

// decodeNotificationID accepts either a bare JSON string or an object with an
// `id` field.
func decodeNotificationID(data json.RawMessage) (string, error) {
	if len(data) == 0 {
		return "", errors.NewBadRequest("notification id is required")
	}

	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		id = strings.TrimSpace(id)
		if id == "" {
			return "", errors.NewBadRequest("notification id is required")
		}
		return id, nil
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", errors.NewBadRequest("invalid notification id payload")
	}

	id = strings.TrimSpace(payload.ID)
	if id == "" {
		return "", errors.NewBadRequest("notification id is required")
	}
	return id, nil
}
