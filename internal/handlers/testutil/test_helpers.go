package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/waveline-app/waveline/internal/api"
	"github.com/waveline-app/waveline/internal/app"
	iauth "github.com/waveline-app/waveline/internal/auth"
	sharedtestutil "github.com/waveline-app/waveline/internal/database/testutil"
	"github.com/waveline-app/waveline/internal/realtime"
	"github.com/waveline-app/waveline/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database
// for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	Hub    *realtime.Hub
	JWT    *iauth.JWTService
	Server *httptest.Server
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-suite-super-secret-key-32-bytes!!",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Notifications: app.NotificationConfig{
			DedupWindow: 24 * time.Hour,
		},
		Monitoring: app.MonitoringConfig{
			Health: app.HealthConfig{Enabled: true},
		},
	}

	hub := realtime.NewHub()
	router, err := api.NewRouter(db, jwtSvc, cfg, hub, nil)
	require.NoError(t, err)

	env := &Env{
		T:      t,
		DB:     db,
		Router: router,
		Hub:    hub,
		JWT:    jwtSvc,
	}
	return env
}

// StartServer exposes the router over a real listener for WebSocket tests.
func (e *Env) StartServer() *httptest.Server {
	if e.Server == nil {
		e.Server = httptest.NewServer(e.Router)
		e.T.Cleanup(e.Server.Close)
	}
	return e.Server
}

// TokenFor issues an access token for the supplied user id.
func (e *Env) TokenFor(userID string) string {
	e.T.Helper()

	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID})
	require.NoError(e.T, err)
	return token
}

// Request performs an HTTP request against the router and returns the recorder.
func (e *Env) Request(method, path, token string, body any) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.Router.ServeHTTP(recorder, req)
	return recorder
}

// DecodeResponse unmarshals the standard response envelope.
func DecodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) response.Response {
	t.Helper()

	var payload response.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload
}

// DecodeData re-marshals the envelope data into dest for typed assertions.
func DecodeData(t *testing.T, payload response.Response, dest any) {
	t.Helper()

	raw, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}
