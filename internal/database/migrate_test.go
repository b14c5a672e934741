package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	files, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "000001_init.up.sql", files[0])

	content, err := fs.ReadFile(migrationsFS, "migrations/"+files[0])
	require.NoError(t, err)
	for _, table := range []string{
		"shifts", "employees", "availability", "time_off_requests",
		"employee_preferences", "contract_rules", "tenant_scheduling_settings",
		"scoring_configs", "assignment_audit_logs", "feedback_records",
	} {
		assert.True(t, strings.Contains(string(content), "CREATE TABLE IF NOT EXISTS "+table+" "), table)
	}

	// 每个 up 迁移都有对应的 down 迁移
	for _, name := range files {
		down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
		_, err := fs.Stat(migrationsFS, "migrations/"+down)
		assert.NoError(t, err, down)
	}
}

func TestCompactQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"短语句不变", "SELECT 1", "SELECT 1"},
		{"合并换行和缩进", "\n\t\tSELECT id\n\t\tFROM shifts\n\t", "SELECT id FROM shifts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compactQuery(tt.query))
		})
	}

	got := compactQuery(strings.Repeat("班", 200))
	assert.Equal(t, maxLoggedQuery+3, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
}
