package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vonssyb/nacionmx-postulaciones/internal/cache"
	"github.com/vonssyb/nacionmx-postulaciones/internal/config"
	"github.com/vonssyb/nacionmx-postulaciones/internal/discord"
	"github.com/vonssyb/nacionmx-postulaciones/internal/metrics"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	sessionStore := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions("test_session", sessionStore))

	return r
}

// signIn seeds the session through a helper route and returns the cookie
func signIn(t *testing.T, r *gin.Engine, userID, token string) string {
	t.Helper()
	r.GET("/seed-session", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(SessionUserID, userID)
		session.Set(SessionUsername, "tester")
		session.Set(SessionAccessToken, token)
		require.NoError(t, session.Save())
		c.String(http.StatusOK, "OK")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/seed-session", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return strings.Join(w.Result().Header.Values("Set-Cookie"), "; ")
}

func TestRequireAuthWithoutSession(t *testing.T) {
	r := setupTestRouter()

	handlerRan := false
	r.GET("/protected", RequireAuth(), func(c *gin.Context) {
		handlerRan = true
		c.String(http.StatusOK, "OK")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, handlerRan)
	assert.Contains(t, w.Body.String(), "/auth/login")
}

func TestRequireAuthWithSession(t *testing.T) {
	r := setupTestRouter()
	cookieHeader := signIn(t, r, "user-123", "token-abc")

	r.GET("/protected", RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, "user=%v", c.MustGet("user_id"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/protected", nil)
	req.Header.Set("Cookie", cookieHeader)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user=user-123", w.Body.String())
}

// staffFixture wires RequireStaff against a fake Discord member endpoint
func staffFixture(t *testing.T, memberStatus int, roles string) gin.HandlerFunc {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if memberStatus != http.StatusOK {
			w.WriteHeader(memberStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"roles": ` + roles + `, "user": {"id": "user-123", "username": "tester"}}`))
	}))
	t.Cleanup(server.Close)

	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.UpsertSetting("staff_approval_roles", "111,222", "test"))

	audit := services.NewAuditService(s, false, 0)
	settings := services.NewSettingsService(s, &config.Config{}, cache.NewMemoryCache[[]string](), audit)

	resolver := discord.NewResolver(
		discord.NewClient(server.URL, 5*time.Second),
		cache.NewMemoryCache[discord.Membership](),
		metrics.NewNoopMetrics(),
		time.Minute,
		"v2",
		"guild-1", "",
	)

	return RequireStaff(resolver, settings, audit, metrics.NewNoopMetrics())
}

func TestRequireStaffAllowed(t *testing.T) {
	r := setupTestRouter()
	cookieHeader := signIn(t, r, "user-123", "token-abc")

	r.GET("/staff", staffFixture(t, http.StatusOK, `["111", "999"]`), func(c *gin.Context) {
		profile, ok := StaffProfileFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, profile)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/staff", nil)
	req.Header.Set("Cookie", cookieHeader)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var profile StaffProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "user-123", profile.UserID)
	assert.Equal(t, []string{"111"}, profile.Roles)
}

func TestRequireStaffDenied(t *testing.T) {
	r := setupTestRouter()
	cookieHeader := signIn(t, r, "user-123", "token-abc")

	handlerRan := false
	r.GET("/staff", staffFixture(t, http.StatusOK, `["999"]`), func(c *gin.Context) {
		handlerRan = true
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/staff", nil)
	req.Header.Set("Cookie", cookieHeader)
	r.ServeHTTP(w, req)

	// No silent redirect: the denied check answers with the resolved profile
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, handlerRan)
	assert.Contains(t, w.Body.String(), "access_restricted")
	assert.Contains(t, w.Body.String(), "tester")
}

func TestRequireStaffNonMember(t *testing.T) {
	r := setupTestRouter()
	cookieHeader := signIn(t, r, "user-123", "token-abc")

	handlerRan := false
	r.GET("/staff", staffFixture(t, http.StatusNotFound, ""), func(c *gin.Context) {
		handlerRan = true
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/staff", nil)
	req.Header.Set("Cookie", cookieHeader)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, handlerRan)
}

func TestRequireStaffLookupFailure(t *testing.T) {
	r := setupTestRouter()
	cookieHeader := signIn(t, r, "user-123", "token-abc")

	handlerRan := false
	r.GET("/staff", staffFixture(t, http.StatusTooManyRequests, ""), func(c *gin.Context) {
		handlerRan = true
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/staff", nil)
	req.Header.Set("Cookie", cookieHeader)
	r.ServeHTTP(w, req)

	// Lookup failure degrades to deny, never to access
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, handlerRan)
	assert.Contains(t, w.Body.String(), "staff_check_failed")
}

func TestRequireStaffWithoutSession(t *testing.T) {
	r := setupTestRouter()

	r.GET("/staff", staffFixture(t, http.StatusOK, `["111"]`), func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/staff", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionIdleTimeout(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		r := setupTestRouter()
		r.Use(SessionIdleTimeout(0))

		r.GET("/test", func(c *gin.Context) {
			session := sessions.Default(c)
			session.Set(SessionUserID, "user-123")
			session.Set(SessionLastActivity, time.Now().Unix()-3600)
			_ = session.Save()
			c.String(http.StatusOK, "OK")
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/test", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Expired", func(t *testing.T) {
		r := setupTestRouter()

		r.GET("/seed", func(c *gin.Context) {
			session := sessions.Default(c)
			session.Set(SessionUserID, "user-123")
			session.Set(SessionLastActivity, time.Now().Unix()-3600)
			_ = session.Save()
			c.String(http.StatusOK, "OK")
		})

		seedW := httptest.NewRecorder()
		seedReq, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/seed", nil)
		r.ServeHTTP(seedW, seedReq)
		cookieHeader := strings.Join(seedW.Result().Header.Values("Set-Cookie"), "; ")

		r.GET("/test", SessionIdleTimeout(30*time.Minute), func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/test", nil)
		req.Header.Set("Cookie", cookieHeader)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "session_expired")
	})
}

func TestCSRFMiddleware(t *testing.T) {
	r := setupTestRouter()
	r.Use(CSRFMiddleware())

	r.GET("/token", func(c *gin.Context) {
		c.String(http.StatusOK, CSRFTokenFromContext(c))
	})
	r.POST("/mutate", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// First request mints the token
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/token", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Body.String()
	require.NotEmpty(t, token)
	cookieHeader := strings.Join(w.Result().Header.Values("Set-Cookie"), "; ")

	// POST without the header is rejected
	w = httptest.NewRecorder()
	req, _ = http.NewRequestWithContext(context.Background(), http.MethodPost, "/mutate", nil)
	req.Header.Set("Cookie", cookieHeader)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// POST with the header passes
	w = httptest.NewRecorder()
	req, _ = http.NewRequestWithContext(context.Background(), http.MethodPost, "/mutate", nil)
	req.Header.Set("Cookie", cookieHeader)
	req.Header.Set("X-CSRF-Token", token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
