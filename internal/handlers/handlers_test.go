package handlers

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
	"github.com/stretchr/testify/require"

	"github.com/vonssyb/nacionmx-postulaciones/internal/cache"
	"github.com/vonssyb/nacionmx-postulaciones/internal/client"
	"github.com/vonssyb/nacionmx-postulaciones/internal/config"
	"github.com/vonssyb/nacionmx-postulaciones/internal/discord"
	"github.com/vonssyb/nacionmx-postulaciones/internal/metrics"
	"github.com/vonssyb/nacionmx-postulaciones/internal/middleware"
	"github.com/vonssyb/nacionmx-postulaciones/internal/notify"
	"github.com/vonssyb/nacionmx-postulaciones/internal/roblox"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"

	retry "github.com/appleboy/go-httpretry"
)

// testEnv bundles everything the handler tests wire together
type testEnv struct {
	router   *gin.Engine
	store    *store.Store
	audit    *services.AuditService
	settings *services.SettingsService
	intake   *services.IntakeService
	review   *services.ReviewService
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	sessionStore := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions("test_session", sessionStore))
	return r
}

func newTestRetryClient(t *testing.T) *retry.Client {
	t.Helper()
	retryClient, err := client.NewRetry(client.Options{
		AuthMode:      "none",
		Timeout:       10 * time.Second,
		RetryDelay:    time.Second,
		MaxRetryDelay: 10 * time.Second,
	})
	require.NoError(t, err)
	return retryClient
}

// newTestEnv creates a store-backed environment without external services
func newTestEnv(t *testing.T, robloxClient *roblox.Client) *testEnv {
	t.Helper()

	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)

	audit := services.NewAuditService(s, false, 0)
	noop := metrics.NewNoopMetrics()
	settings := services.NewSettingsService(s, &config.Config{}, cache.NewMemoryCache[[]string](), audit)
	intake := services.NewIntakeService(s, robloxClient, audit, noop, 30)

	retryClient := newTestRetryClient(t)
	review := services.NewReviewService(
		s,
		notify.NewNotifier("", retryClient),
		notify.NewAutomation("", retryClient),
		audit,
		noop,
	)

	return &testEnv{
		router:   newTestRouter(),
		store:    s,
		audit:    audit,
		settings: settings,
		intake:   intake,
		review:   review,
	}
}

// seedSession registers a helper route that signs the test user in and
// returns the session cookie.
func seedSession(t *testing.T, r *gin.Engine, extra map[string]any) string {
	t.Helper()
	r.GET("/seed-session", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(middleware.SessionUserID, "user-123")
		session.Set(middleware.SessionUsername, "tester")
		session.Set(middleware.SessionGlobalName, "Tester")
		session.Set(middleware.SessionAvatar, "https://cdn.example.com/a.png")
		session.Set(middleware.SessionAccessToken, "token-abc")
		for k, v := range extra {
			session.Set(k, v)
		}
		require.NoError(t, session.Save())
		c.String(http.StatusOK, "OK")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/seed-session", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return strings.Join(w.Result().Header.Values("Set-Cookie"), "; ")
}

// doJSON performs a JSON request against the router
func doJSON(
	r *gin.Engine,
	method, path, cookieHeader string,
	body any,
	headers map[string]string,
) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = strings.NewReader(string(encoded))
	} else {
		reader = strings.NewReader("")
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

// fakeResolver builds a resolver against a stub Discord member endpoint
func fakeResolver(t *testing.T, memberStatus int, rolesJSON string) *discord.Resolver {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if memberStatus != http.StatusOK {
			w.WriteHeader(memberStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"roles": ` + rolesJSON + `, "user": {"id": "user-123"}}`))
	}))
	t.Cleanup(server.Close)

	return discord.NewResolver(
		discord.NewClient(server.URL, 5*time.Second),
		cache.NewMemoryCache[discord.Membership](),
		metrics.NewNoopMetrics(),
		time.Minute,
		"v2",
		"guild-1", "",
	)
}
