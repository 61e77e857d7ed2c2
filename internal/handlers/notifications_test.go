package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveline-app/waveline/internal/handlers/testutil"
	"github.com/waveline-app/waveline/internal/models"
	"github.com/waveline-app/waveline/internal/pagination"
)

func registerUser(t *testing.T, env *testutil.Env) (id, token string) {
	t.Helper()

	suffix := uuid.NewString()
	recorder := env.Request(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "notif-" + suffix,
		"email":    fmt.Sprintf("notif-%s@waveline.test", suffix),
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var payload authPayload
	testutil.DecodeData(t, testutil.DecodeResponse(t, recorder), &payload)
	return payload.User.ID, payload.Tokens.AccessToken
}

func createFollowNotification(t *testing.T, env *testutil.Env, senderToken, recipientID string) models.Notification {
	t.Helper()

	recorder := env.Request(http.MethodPost, "/api/notifications", senderToken, map[string]any{
		"type":        "FOLLOW",
		"recipientId": recipientID,
		"followId":    uuid.NewString(),
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var notification models.Notification
	testutil.DecodeData(t, testutil.DecodeResponse(t, recorder), &notification)
	return notification
}

func TestNotificationLifecycleOverHTTP(t *testing.T) {
	env := testutil.NewEnv(t)
	_, senderToken := registerUser(t, env)
	recipientID, recipientToken := registerUser(t, env)

	created := createFollowNotification(t, env, senderToken, recipientID)
	assert.Equal(t, models.NotificationFollow, created.Type)
	assert.False(t, created.Read)
	require.NotNil(t, created.Sender)

	// List as recipient
	recorder := env.Request(http.MethodGet, "/api/notifications?page=1&limit=10", recipientToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var page pagination.Result[models.Notification]
	testutil.DecodeData(t, testutil.DecodeResponse(t, recorder), &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, created.ID, page.Data[0].ID)
	assert.Equal(t, int64(1), page.Total)

	// Unread count
	recorder = env.Request(http.MethodGet, "/api/notifications/unread-count", recipientToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var unread struct {
		Count int64 `json:"count"`
	}
	testutil.DecodeData(t, testutil.DecodeResponse(t, recorder), &unread)
	assert.Equal(t, int64(1), unread.Count)

	// Mark read
	recorder = env.Request(http.MethodPatch, "/api/notifications/"+created.ID+"/read", recipientToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var marked models.Notification
	testutil.DecodeData(t, testutil.DecodeResponse(t, recorder), &marked)
	assert.True(t, marked.Read)

	// Delete
	recorder = env.Request(http.MethodDelete, "/api/notifications/"+created.ID, recipientToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = env.Request(http.MethodDelete, "/api/notifications/"+created.ID, recipientToken, nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestNotificationMarkAllAndDeleteAll(t *testing.T) {
	env := testutil.NewEnv(t)
	_, senderToken := registerUser(t, env)
	recipientID, recipientToken := registerUser(t, env)

	for i := 0; i < 3; i++ {
		createFollowNotification(t, env, senderToken, recipientID)
	}

	recorder := env.Request(http.MethodPatch, "/api/notifications/read-all", recipientToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var markAll struct {
		Count int64 `json:"count"`
	}
	testutil.DecodeData(t, testutil.DecodeResponse(t, recorder), &markAll)
	assert.Equal(t, int64(3), markAll.Count)

	recorder = env.Request(http.MethodDelete, "/api/notifications", recipientToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var deleteAll struct {
		Count int64 `json:"count"`
	}
	testutil.DecodeData(t, testutil.DecodeResponse(t, recorder), &deleteAll)
	assert.Equal(t, int64(3), deleteAll.Count)
}

func TestNotificationCreateRejectsSelf(t *testing.T) {
	env := testutil.NewEnv(t)
	userID, token := registerUser(t, env)

	recorder := env.Request(http.MethodPost, "/api/notifications", token, map[string]any{
		"type":        "LIKE",
		"recipientId": userID,
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestNotificationRoutesRequireAuth(t *testing.T) {
	env := testutil.NewEnv(t)

	recorder := env.Request(http.MethodGet, "/api/notifications", "", nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = env.Request(http.MethodGet, "/api/notifications/unread-count", "invalid-token", nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestNotificationListRejectsBadSort(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := registerUser(t, env)

	recorder := env.Request(http.MethodGet, "/api/notifications?sortBy=severity", token, nil)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}
