//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"

	"roster/internal/platform/config"
)

// MinioContainer wraps a testcontainers MinIO instance.
type MinioContainer struct {
	Container testcontainers.Container
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewMinioContainer starts a MinIO server with static credentials.
func NewMinioContainer(t *testing.T) *MinioContainer {
	t.Helper()

	ctx := context.Background()

	container, err := minio.Run(ctx,
		"minio/minio:RELEASE.2024-01-16T16-07-38Z",
		minio.WithUsername("roster-access"),
		minio.WithPassword("roster-secret-key"),
	)
	if err != nil {
		t.Fatalf("failed to start minio container: %v", err)
	}

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get minio endpoint: %v", err)
	}

	return &MinioContainer{
		Container: container,
		Endpoint:  endpoint,
		AccessKey: container.Username,
		SecretKey: container.Password,
	}
}

// ObjectStoreConfig returns client settings for the container with the given buckets.
func (m *MinioContainer) ObjectStoreConfig(sourceBucket, processedBucket string) config.ObjectStore {
	return config.ObjectStore{
		Endpoint:        m.Endpoint,
		Region:          "us-east-1",
		AccessKey:       m.AccessKey,
		SecretKey:       m.SecretKey,
		SourceBucket:    sourceBucket,
		ProcessedBucket: processedBucket,
		SnapshotKey:     config.DefaultSnapshotKey,
	}
}
