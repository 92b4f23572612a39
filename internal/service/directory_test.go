package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
	"github.com/nabilsaied15/asad-chat-bot/internal/service"
	"github.com/nabilsaied15/asad-chat-bot/internal/store/sqlite"
)

func newTestDirectory(t *testing.T) (*service.Directory, *sqlite.ConversationRepo, *sqlite.UserRepo, *sqlite.MessageRepo) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	convRepo := sqlite.NewConversationRepo(db)
	userRepo := sqlite.NewUserRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	return service.NewDirectory(convRepo, userRepo), convRepo, userRepo, msgRepo
}

func strPtr(s string) *string { return &s }

func TestResolveOrCreateOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesOnFirstContact", func(t *testing.T) {
		dir, _, _, _ := newTestDirectory(t)

		conv, err := dir.ResolveOrCreateOpen(ctx, "visitor-a", domain.VisitorProfile{}, "")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusOpen, conv.Status)
		assert.Equal(t, "visitor-a", conv.VisitorID)

		again, err := dir.ResolveOrCreateOpen(ctx, "visitor-a", domain.VisitorProfile{}, "")
		require.NoError(t, err)
		assert.Equal(t, conv.ID, again.ID)
	})

	t.Run("ConcurrentCallsShareOneConversation", func(t *testing.T) {
		dir, _, _, _ := newTestDirectory(t)

		const n = 20
		ids := make([]int64, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				conv, err := dir.ResolveOrCreateOpen(ctx, "visitor-race", domain.VisitorProfile{}, "")
				if assert.NoError(t, err) {
					ids[i] = conv.ID
				}
			}(i)
		}
		wg.Wait()

		for i := 1; i < n; i++ {
			assert.Equal(t, ids[0], ids[i])
		}
	})

	t.Run("ProfileMergeFirstNonNullWins", func(t *testing.T) {
		dir, _, _, _ := newTestDirectory(t)

		conv, err := dir.ResolveOrCreateOpen(ctx, "visitor-b", domain.VisitorProfile{
			FirstName: strPtr("Nadia"),
		}, "")
		require.NoError(t, err)
		require.NotNil(t, conv.FirstName)
		assert.Equal(t, "Nadia", *conv.FirstName)

		// A later registration fills gaps but never overwrites.
		conv, err = dir.ResolveOrCreateOpen(ctx, "visitor-b", domain.VisitorProfile{
			FirstName: strPtr("Overwrite"),
			LastName:  strPtr("Bensaid"),
		}, "")
		require.NoError(t, err)
		assert.Equal(t, "Nadia", *conv.FirstName)
		require.NotNil(t, conv.LastName)
		assert.Equal(t, "Bensaid", *conv.LastName)
	})

	t.Run("SiteKeyPinsAgent", func(t *testing.T) {
		dir, _, userRepo, _ := newTestDirectory(t)

		agent := &domain.User{
			Name:           "Agent",
			Email:          "agent@asad.to",
			HashedPassword: "x",
			Role:           "user",
			SiteKey:        strPtr("site-123"),
		}
		require.NoError(t, userRepo.Create(ctx, agent))

		conv, err := dir.ResolveOrCreateOpen(ctx, "visitor-c", domain.VisitorProfile{}, "site-123")
		require.NoError(t, err)
		require.NotNil(t, conv.AssignedAgentID)
		assert.Equal(t, agent.ID, *conv.AssignedAgentID)

		// Unknown site keys leave the conversation unassigned.
		conv, err = dir.ResolveOrCreateOpen(ctx, "visitor-d", domain.VisitorProfile{}, "no-such-key")
		require.NoError(t, err)
		assert.Nil(t, conv.AssignedAgentID)
	})

	t.Run("NewConversationAfterResolve", func(t *testing.T) {
		dir, _, _, _ := newTestDirectory(t)

		first, err := dir.ResolveOrCreateOpen(ctx, "visitor-e", domain.VisitorProfile{}, "")
		require.NoError(t, err)
		require.NoError(t, dir.SetStatus(ctx, first.ID, domain.StatusResolved))

		second, err := dir.ResolveOrCreateOpen(ctx, "visitor-e", domain.VisitorProfile{}, "")
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	dir, _, _, _ := newTestDirectory(t)

	conv, err := dir.ResolveOrCreateOpen(ctx, "visitor-a", domain.VisitorProfile{}, "")
	require.NoError(t, err)

	t.Run("ValidTransition", func(t *testing.T) {
		require.NoError(t, dir.SetStatus(ctx, conv.ID, domain.StatusPending))
		got, err := dir.Get(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, got.Status)
	})

	t.Run("ReopenAllowed", func(t *testing.T) {
		require.NoError(t, dir.SetStatus(ctx, conv.ID, domain.StatusResolved))
		require.NoError(t, dir.SetStatus(ctx, conv.ID, domain.StatusOpen))
	})

	t.Run("UnknownStatusRejected", func(t *testing.T) {
		err := dir.SetStatus(ctx, conv.ID, "archived")
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})

	t.Run("MissingConversation", func(t *testing.T) {
		err := dir.SetStatus(ctx, 99999, domain.StatusResolved)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})
}

func TestToggleMute(t *testing.T) {
	ctx := context.Background()
	dir, _, _, _ := newTestDirectory(t)

	conv, err := dir.ResolveOrCreateOpen(ctx, "visitor-a", domain.VisitorProfile{}, "")
	require.NoError(t, err)

	muted, err := dir.ToggleMute(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, muted)

	muted, err = dir.ToggleMute(ctx, conv.ID)
	require.NoError(t, err)
	assert.False(t, muted)

	_, err = dir.ToggleMute(ctx, 99999)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestPurgeDeleted(t *testing.T) {
	ctx := context.Background()
	dir, _, _, msgRepo := newTestDirectory(t)

	conv, err := dir.ResolveOrCreateOpen(ctx, "visitor-a", domain.VisitorProfile{}, "")
	require.NoError(t, err)
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{
		ConversationID: conv.ID,
		Sender:         domain.SenderVisitor,
		Content:        "bonjour",
	}))

	t.Run("RequiresDeletedStatus", func(t *testing.T) {
		err := dir.PurgeDeleted(ctx, conv.ID)
		assert.ErrorIs(t, err, domain.ErrConversationNotDeleted)
	})

	t.Run("PurgesConversationAndMessages", func(t *testing.T) {
		require.NoError(t, dir.SetStatus(ctx, conv.ID, domain.StatusDeleted))
		require.NoError(t, dir.PurgeDeleted(ctx, conv.ID))

		_, err := dir.Get(ctx, conv.ID)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)

		msgs, err := msgRepo.ListByConversation(ctx, conv.ID)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("MissingConversation", func(t *testing.T) {
		err := dir.PurgeDeleted(ctx, 99999)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})
}
