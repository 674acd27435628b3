//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

func TestPostgresRoundTrip(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "splitr",
				"POSTGRES_PASSWORD": "splitr",
				"POSTGRES_DB":       "splitr",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pool, err := Open(ctx, fmt.Sprintf("postgres://splitr:splitr@%s:%s/splitr?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	version, err := Migrate(ctx, pool)
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)

	repos := NewRepositories(pool)
	exp := domain.NewExperiment(uuid.NewString(), domain.ExperimentDefinition{
		Name:              "pg-roundtrip",
		Variants:          []domain.Variant{{ID: "control", Weight: 1}, {ID: "b", Weight: 1}},
		TrafficPercentage: 100,
	}, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repos.Experiments.Create(ctx, exp))

	got, err := repos.Experiments.GetByName(ctx, "pg-roundtrip")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, exp.Variants, got.Variants)

	user := domain.UserSubject("u-1")
	first, err := repos.Assignments.InsertIfAbsent(ctx, &domain.Assignment{ExperimentID: exp.ID, Subject: user, VariantID: "b", AssignedAt: time.Now()})
	require.NoError(t, err)
	second, err := repos.Assignments.InsertIfAbsent(ctx, &domain.Assignment{ExperimentID: exp.ID, Subject: user, VariantID: "control", AssignedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, first.VariantID, second.VariantID)

	ok, err := repos.Assignments.UpdateConversion(ctx, exp.ID, user, domain.Conversion{ConvertedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := repos.Assignments.ListByExperiment(ctx, exp.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Converted)
}
