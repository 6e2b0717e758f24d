//go:build integration

package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"go-gin-dualstore/internal/core/database"
	"go-gin-dualstore/internal/domain"
	"go-gin-dualstore/internal/repo"
)

// storeContract 两个适配器必须表现一致的行为
func storeContract(t *testing.T, s domain.UserStore, unknownID, malformedID string) {
	ctx := context.Background()

	created, err := s.Create(ctx, input(t, `{"name":"  Ann  ","email":"ANN@Ex.com","age":"30"}`))
	require.NoError(t, err)
	assert.Equal(t, "Ann", created.Name)
	assert.Equal(t, "ann@ex.com", created.Email)
	assert.Equal(t, domain.RoleUser, created.Role)
	require.NotNil(t, created.Age)
	assert.Equal(t, 30, *created.Age)
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

	id := created.ID.String()
	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID.String())
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))

	_, err = s.Create(ctx, input(t, `{"name":"Ann Two","email":"ann@EX.com"}`))
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	// 时钟不动（见调用方的 fixedClock），updatedAt 仍必须严格递增
	updated, err := s.Update(ctx, id, input(t, `{"age":26}`))
	require.NoError(t, err)
	assert.Equal(t, "Ann", updated.Name)
	require.NotNil(t, updated.Age)
	assert.Equal(t, 26, *updated.Age)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	again, err := s.Update(ctx, id, input(t, `{}`))
	require.NoError(t, err)
	assert.False(t, again.UpdatedAt.Before(updated.UpdatedAt))
	again, err = s.Update(ctx, id, input(t, `{"name":"Ann"}`))
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.After(updated.UpdatedAt))

	fetched, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, fetched.UpdatedAt.Equal(again.UpdatedAt), "returned timestamp must round-trip")

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = s.Get(ctx, unknownID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Get(ctx, malformedID)
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	deleted, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, deleted.ID.String())
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Delete(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIntegration_Postgres(t *testing.T) {
	ctx := context.Background()
	c, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("users"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := database.NewGorm(database.Opts{Driver: "postgres", DSN: dsn, MaxOpenConns: 4, MaxIdleConns: 2, LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)

	r := repo.NewUserRepo(db, fixedClock(time.Now()))
	require.NoError(t, r.AutoMigrate())
	storeContract(t, r, "999999", "abc")
}

func TestIntegration_Mongo(t *testing.T) {
	ctx := context.Background()
	c, err := tcmongo.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	uri, err := c.ConnectionString(ctx)
	require.NoError(t, err)
	client, err := database.NewMongo(ctx, database.MongoOpts{URI: uri, Timeout: 30 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	r := repo.NewUserMongoRepo(client.Database("users").Collection("users"), fixedClock(time.Now()))
	require.NoError(t, r.EnsureIndexes(ctx))
	storeContract(t, r, "65f0c0ffee00000000000001", "123")
}
