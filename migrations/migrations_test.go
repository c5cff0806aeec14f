package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestAppointmentsSchemaRejectsOverlap(t *testing.T) {
	body, err := fs.ReadFile(FS, "000001_create_appointments.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "EXCLUDE USING gist")
	assert.Contains(t, string(body), "'[)'")
}

func TestTurnJobsSchemaTracksStatus(t *testing.T) {
	body, err := fs.ReadFile(FS, "000002_create_turn_jobs.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "'pending', 'completed', 'failed'")
	assert.Contains(t, string(body), "expires_at")
}
