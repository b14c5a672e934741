package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/shiftassign/internal/security"
)

func TestNewApp_Memory(t *testing.T) {
	storeKind = "memory"
	t.Cleanup(func() { storeKind = "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.App.Store)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.db)
	assert.False(t, a.redis.Enabled())

	scheduler, err := newScheduler(a, security.NewRateLimiter(10, 10))
	require.NoError(t, err)

	res, err := scheduler.RunNow("advisory-sweep")
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = scheduler.RunNow("db-pool-stats")
	assert.Error(t, err, "内存存储不注册连接池任务")

	_, err = openDB(cfg)
	assert.Error(t, err)
}

func TestMigrateList(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"migrate", "--list"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		migrateList = false
	})

	require.NoError(t, Execute())
	assert.Contains(t, out.String(), "000001_init.up.sql")
}
