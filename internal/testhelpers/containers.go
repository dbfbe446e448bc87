// Package testhelpers starts the databases the adapter suites run against.
package testhelpers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresURL returns POSTGRESQL_URL when set. Otherwise it starts a disposable postgres container
// and returns its url, skipping the test when docker is not available.
func PostgresURL(t testing.TB) string {
	t.Helper()
	if url := os.Getenv("POSTGRESQL_URL"); url != "" {
		return url
	}
	container := start(t, testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "cookbook",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithStartupTimeout(60 * time.Second),
	})
	host, port := endpoint(t, container, "5432")
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/cookbook?sslmode=disable", host, port)
}

// MongoURL returns MONGODB_URL when set. Otherwise it starts a disposable mongo container
// and returns its url, skipping the test when docker is not available.
func MongoURL(t testing.TB) string {
	t.Helper()
	if url := os.Getenv("MONGODB_URL"); url != "" {
		return url
	}
	container := start(t, testcontainers.ContainerRequest{
		Image:        "mongo:6",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("27017/tcp"),
			wait.ForLog("Waiting for connections"),
		).WithStartupTimeout(60 * time.Second),
	})
	host, port := endpoint(t, container, "27017")
	return fmt.Sprintf("mongodb://%s:%s", host, port)
}

func start(t testing.TB, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("skipping container-backed test: docker not available")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start container %s: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})
	return container
}

func endpoint(t testing.TB, container testcontainers.Container, port string) (string, string) {
	t.Helper()
	ctx := context.Background()
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	mappedPort, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}
	return host, mappedPort.Port()
}
