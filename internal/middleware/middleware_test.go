// internal/middleware/middleware_test.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/agriqcert/agriqcert-backend/internal/i18n"
	"github.com/agriqcert/agriqcert-backend/internal/session"
)

type stubAuthenticator struct {
	token string
	sess  *session.Session
}

func (s stubAuthenticator) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	if token != s.token {
		return nil, errors.New("unknown token")
	}
	return s.sess, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	require.NoError(t, i18n.Initialize("en"))

	sess := &session.Session{
		ID:        "sess-1",
		UserID:    uuid.New(),
		Username:  "exporter1",
		Role:      "exporter",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	r := gin.New()
	r.GET("/me", AuthRequired(stubAuthenticator{token: "good", sess: sess}), func(c *gin.Context) {
		got, ok := SessionFromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, got.Username+":"+c.GetString("user_id"))
	})

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "exporter1:"+sess.UserID.String(), w.Body.String())
			}
		})
	}
}

func TestSessionFromContextWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := SessionFromContext(c)
	assert.False(t, ok)
}

func TestNegotiateLanguage(t *testing.T) {
	require.NoError(t, i18n.Initialize("en"))

	assert.Equal(t, "hi", negotiateLanguage("hi-IN,hi;q=0.9,en;q=0.8", "en"))
	assert.Equal(t, "en", negotiateLanguage("fr-FR, en-GB;q=0.7", "en"))
	assert.Equal(t, "en", negotiateLanguage("de", "en"))
	assert.Equal(t, "en", negotiateLanguage("", "en"))
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	require.NoError(t, i18n.Initialize("en"))

	rl := NewRateLimiter(rate.Every(time.Hour), 2)
	defer rl.Stop()

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	// Stop is idempotent
	rl.Stop()
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.agriqcert.example"}))
	r.PUT("/api/batches/ship/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/batches/ship/1", nil)
	req.Header.Set("Origin", "https://app.agriqcert.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)

	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.agriqcert.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/batches/ship/1", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)

	w = serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
