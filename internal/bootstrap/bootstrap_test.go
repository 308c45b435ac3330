package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vonssyb/nacionmx-postulaciones/internal/config"
	"github.com/vonssyb/nacionmx-postulaciones/internal/metrics"
)

func TestInitializeMetrics(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		m := initializeMetrics(&config.Config{MetricsEnabled: enabled})
		require.NotNil(t, m)
	}
}

func TestInitializeMemberCacheMemory(t *testing.T) {
	c, closer, err := initializeMemberCache(&config.Config{CacheType: config.CacheTypeMemory})
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NotNil(t, closer)
	assert.NoError(t, closer())
}

func TestInitializeRolesCacheMemory(t *testing.T) {
	c, closer, err := initializeRolesCache(&config.Config{CacheType: config.CacheTypeMemory})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.NoError(t, closer())
}

func TestInitializeDatabase(t *testing.T) {
	db, err := initializeDatabase(&config.Config{
		DatabaseDriver: "sqlite",
		DatabaseDSN:    ":memory:",
	})
	require.NoError(t, err)
	assert.NoError(t, db.Health())
}

func TestCreateHTTPServer(t *testing.T) {
	srv := createHTTPServer(&config.Config{ServerAddr: ":9999"}, nil)
	assert.Equal(t, ":9999", srv.Addr)
	assert.Equal(t, 10*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 30*time.Second, srv.ReadTimeout)
	assert.Equal(t, 120*time.Second, srv.IdleTimeout)
}

func TestSetupRateLimitingDisabled(t *testing.T) {
	limiters := setupRateLimiting(&config.Config{EnableRateLimit: false})
	require.NotNil(t, limiters.login)
	require.NotNil(t, limiters.submit)
	require.NotNil(t, limiters.verify)
	require.NotNil(t, limiters.decision)
}

func TestSetupRateLimitingMemory(t *testing.T) {
	limiters := setupRateLimiting(&config.Config{
		EnableRateLimit:          true,
		RateLimitStore:           config.RateLimitStoreMemory,
		RateLimitCleanupInterval: time.Minute,
		LoginRateLimit:           10,
		SubmitRateLimit:          5,
		VerifyRateLimit:          10,
		DecisionRateLimit:        30,
	})
	require.NotNil(t, limiters.submit)
}

type fakeMetricsStore struct {
	counts map[string]int64
	err    error
}

func (f *fakeMetricsStore) CountApplicationsByStatus() (map[string]int64, error) {
	return f.counts, f.err
}

type gaugeSpy struct {
	metrics.Recorder
	set map[string]int
}

func (g *gaugeSpy) SetApplicationsCount(status string, count int) {
	g.set[status] = count
}

func (g *gaugeSpy) RecordDatabaseQueryError(operation string) {}

func TestUpdateGaugeMetrics(t *testing.T) {
	spy := &gaugeSpy{Recorder: metrics.NewNoopMetrics(), set: map[string]int{}}

	updateGaugeMetrics(&fakeMetricsStore{
		counts: map[string]int64{"pending": 3, "approved": 1},
	}, spy)

	assert.Equal(t, 3, spy.set["pending"])
	assert.Equal(t, 1, spy.set["approved"])
}

func TestUpdateGaugeMetricsQueryError(t *testing.T) {
	spy := &gaugeSpy{Recorder: metrics.NewNoopMetrics(), set: map[string]int{}}

	updateGaugeMetrics(&fakeMetricsStore{err: assert.AnError}, spy)
	assert.Empty(t, spy.set)
}
