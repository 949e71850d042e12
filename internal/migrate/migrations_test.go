package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/db"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{InMemory: true})
	require.NoError(t, err)
	defer conn.Close()

	ms, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	latest := ms[len(ms)-1].Version

	require.NoError(t, Migrate(ctx, conn))
	require.NoError(t, Migrate(ctx, conn))

	v, err := Version(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, latest, v)

	_, err = conn.ExecContext(ctx, `INSERT INTO snapshots(id, payload, source, saved_at) VALUES (1, '{}', 'remote', 'now')`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO snapshots(id, payload, source, saved_at) VALUES (2, '{}', 'remote', 'now')`)
	assert.Error(t, err)
}
