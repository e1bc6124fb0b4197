//go:build container

package processing

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"matchday-service/database"
	"matchday-service/pkg/common"
)

// startPostgres 启动一个临时 postgres 容器, 返回已迁移的连接
func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "matchday",
			"POSTGRES_PASSWORD": "matchday",
			"POSTGRES_DB":       "matchday",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://matchday:matchday@%s:%s/matchday?sslmode=disable", host, port.Port())
	db, err := database.Connect(dsn)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	// 迁移可重复执行
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Second migration failed: %v", err)
	}
	return db
}

func TestPostgreSQLStorage(t *testing.T) {
	db := startPostgres(t)

	runStorageSuite(t, func(t *testing.T) DataStorage {
		for _, table := range []string{"matches", "teams", "leagues"} {
			if _, err := db.Exec("DELETE FROM " + table); err != nil {
				t.Fatalf("Failed to clean %s: %v", table, err)
			}
		}
		return NewPostgreSQLStorage(db, common.NopLogger{})
	})
}
