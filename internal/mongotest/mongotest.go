// Package mongotest starts a throwaway MongoDB for repository tests.
package mongotest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"NoticeBoard/internal/config"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const image = "mongo:7"

// Handle starts mongo:7 and returns a handle on a fresh database. The test
// is skipped under -short or when no container runtime is available.
func Handle(t *testing.T) *config.MongoHandle {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor: wait.ForListeningPort("27017/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	cfg := &config.Config{
		MongoURI:      fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
		MongoDatabase: "test_" + strings.ToLower(primitive.NewObjectID().Hex()),
	}
	h := config.NewMongoHandle(cfg, zap.NewNop())
	_, err = h.Database(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Disconnect(context.Background()) })
	return h
}
