package repository

import (
	"context"
	"testing"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/room/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Participant{}))
	return Provide(RepositoryParam{DB: db})
}

func TestJoinIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Join(ctx, "room1", "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", first.DisplayName)
	assert.Zero(t, first.Points)

	// Re-joining returns the existing row with its point balance intact.
	_, err = repo.Get(ctx, "room1", "alice")
	require.NoError(t, err)
	second, err := repo.Join(ctx, "room1", "alice", "Alice Again")
	require.NoError(t, err)
	assert.Equal(t, "Alice", second.DisplayName)
}

func TestGetMissingParticipant(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Get(context.Background(), "room1", "nobody")
	assert.ErrorIs(t, err, domain.ErrParticipantNotFound)
}

func TestListByRoomOrdersByPoints(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"alice", "bob", "carol"} {
		_, err := repo.Join(ctx, "room1", id, id)
		require.NoError(t, err)
	}
	_, err := repo.Join(ctx, "room2", "dave", "dave")
	require.NoError(t, err)

	participants, err := repo.ListByRoom(ctx, "room1")
	require.NoError(t, err)
	require.Len(t, participants, 3)
	assert.Equal(t, "alice", participants[0].ParticipantID, "points tie breaks on id")
}
