// internal/tests/server_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/agriqcert/agriqcert-backend/internal/broker"
	"github.com/agriqcert/agriqcert-backend/internal/config"
	"github.com/agriqcert/agriqcert-backend/internal/database"
	"github.com/agriqcert/agriqcert-backend/internal/i18n"
	"github.com/agriqcert/agriqcert-backend/internal/middleware"
	"github.com/agriqcert/agriqcert-backend/internal/repository/memory"
	"github.com/agriqcert/agriqcert-backend/internal/router"
	"github.com/agriqcert/agriqcert-backend/internal/services"
	"github.com/agriqcert/agriqcert-backend/internal/session"
)

const seedPassword = "123456"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// testServer is a router over in-memory storage with the demo accounts seeded.
type testServer struct {
	router *gin.Engine
	store  *memory.Store
	events *broker.RecordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, i18n.Initialize("en"))

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{AllowedOrigins: []string{"*"}},
		Database:    config.DatabaseConfig{Driver: "memory"},
		JWT:         config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1},
		Storage: config.StorageConfig{
			UploadDir:   t.TempDir(),
			PublicPath:  "/uploads",
			MaxFileSize: 1 << 20,
			MaxFiles:    3,
		},
		I18n: config.I18nConfig{DefaultLocale: "en"},
		Seed: config.SeedConfig{DefaultPassword: seedPassword, AdminPassword: "admin-pass"},
	}

	store := memory.NewStore()
	_, err := database.SeedInitialData(context.Background(), store, cfg.Seed)
	require.NoError(t, err)

	storage, err := services.NewStorageService(cfg)
	require.NoError(t, err)

	events := &broker.RecordingPublisher{}
	r := router.Initialize(router.Dependencies{
		Config:     cfg,
		Store:      store,
		Sessions:   session.NewMemoryStore(),
		Storage:    storage,
		Publisher:  events,
		RateLimits: middleware.RateLimits{},
	})

	return &testServer{router: r, store: store, events: events}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// createBatch posts a multipart batch with one PNG attachment per name.
func (s *testServer) createBatch(t *testing.T, token string, fields map[string]string, files ...string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, name := range files {
		part, err := mw.CreateFormFile("attachments", name)
		require.NoError(t, err)
		_, err = part.Write(pngHeader)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest(http.MethodPost, "/api/batches", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type authBody struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

func (s *testServer) login(t *testing.T, username, password string) authBody {
	t.Helper()

	w := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out authBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
