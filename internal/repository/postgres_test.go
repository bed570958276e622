package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shortlink"),
		tcpostgres.WithUsername("shortlink"),
		tcpostgres.WithPassword("shortlink"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// every subtest gets its own database so the suite stays isolated
	admin, err := Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { admin.Close() })

	var n int
	runStoreSuite(t, func(t *testing.T) *Store {
		t.Helper()
		n++
		name := fmt.Sprintf("suite_%d", n)
		_, err := admin.db.ExecContext(ctx, "CREATE DATABASE "+name)
		require.NoError(t, err)

		host, err := container.Host(ctx)
		require.NoError(t, err)
		port, err := container.MappedPort(ctx, "5432/tcp")
		require.NoError(t, err)

		s, err := Open("postgres", fmt.Sprintf("postgres://shortlink:shortlink@%s:%s/%s?sslmode=disable", host, port.Port(), name))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}
