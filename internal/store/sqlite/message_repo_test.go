package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
	"github.com/nabilsaied15/asad-chat-bot/internal/store/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))
	return db
}

func newConversation(t *testing.T, repo *sqlite.ConversationRepo, visitorID string) *domain.Conversation {
	t.Helper()
	conv := &domain.Conversation{VisitorID: visitorID, Status: domain.StatusOpen}
	require.NoError(t, repo.Create(context.Background(), conv))
	return conv
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	db := newTestDB(t)
	convRepo := sqlite.NewConversationRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	conv := newConversation(t, convRepo, "visitor-a")

	msg := &domain.Message{ConversationID: conv.ID, Sender: domain.SenderVisitor, Content: "bonjour"}
	require.NoError(t, msgRepo.Append(ctx, msg))

	assert.NotZero(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
	assert.False(t, msg.IsRead)

	// Agent and bot messages never show up as unread.
	agentMsg := &domain.Message{ConversationID: conv.ID, Sender: domain.SenderAgent, Content: "hi"}
	require.NoError(t, msgRepo.Append(ctx, agentMsg))
	assert.True(t, agentMsg.IsRead)

	botMsg := &domain.Message{ConversationID: conv.ID, Sender: domain.SenderBot, Content: "canned"}
	require.NoError(t, msgRepo.Append(ctx, botMsg))
	assert.True(t, botMsg.IsRead)
}

func TestListByConversationOrdering(t *testing.T) {
	db := newTestDB(t)
	convRepo := sqlite.NewConversationRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	conv := newConversation(t, convRepo, "visitor-a")
	other := newConversation(t, convRepo, "visitor-b")

	// Bursts land within the same timestamp tick; insertion order must
	// still be preserved.
	contents := []string{"one", "two", "three", "four", "five"}
	for _, c := range contents {
		require.NoError(t, msgRepo.Append(ctx, &domain.Message{
			ConversationID: conv.ID, Sender: domain.SenderVisitor, Content: c,
		}))
	}
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{
		ConversationID: other.ID, Sender: domain.SenderVisitor, Content: "elsewhere",
	}))

	msgs, err := msgRepo.ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, len(contents))
	for i, m := range msgs {
		assert.Equal(t, contents[i], m.Content)
		assert.Equal(t, conv.ID, m.ConversationID)
	}
}

func TestMarkVisitorMessagesRead(t *testing.T) {
	db := newTestDB(t)
	convRepo := sqlite.NewConversationRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	conv := newConversation(t, convRepo, "visitor-a")
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: conv.ID, Sender: domain.SenderVisitor, Content: "a"}))
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: conv.ID, Sender: domain.SenderVisitor, Content: "b"}))

	require.NoError(t, msgRepo.MarkVisitorMessagesRead(ctx, conv.ID))

	msgs, err := msgRepo.ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	for _, m := range msgs {
		assert.True(t, m.IsRead)
	}
}

func TestCountUnreadGlobal(t *testing.T) {
	db := newTestDB(t)
	convRepo := sqlite.NewConversationRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	loud := newConversation(t, convRepo, "visitor-loud")
	muted := newConversation(t, convRepo, "visitor-muted")
	_, err := convRepo.ToggleMute(ctx, muted.ID)
	require.NoError(t, err)

	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: loud.ID, Sender: domain.SenderVisitor, Content: "unread 1"}))
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: loud.ID, Sender: domain.SenderVisitor, Content: "unread 2"}))
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: loud.ID, Sender: domain.SenderAgent, Content: "already read"}))
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: muted.ID, Sender: domain.SenderVisitor, Content: "silenced"}))

	latest, total, err := msgRepo.CountUnreadGlobal(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, latest, 2)
	for _, u := range latest {
		assert.Equal(t, "visitor-loud", u.VisitorID)
	}

	t.Run("LimitApplies", func(t *testing.T) {
		latest, total, err := msgRepo.CountUnreadGlobal(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, latest, 1)
	})
}

func TestCountBySender(t *testing.T) {
	db := newTestDB(t)
	convRepo := sqlite.NewConversationRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	conv := newConversation(t, convRepo, "visitor-a")
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: conv.ID, Sender: domain.SenderVisitor, Content: "q"}))
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: conv.ID, Sender: domain.SenderAgent, Content: "a"}))
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: conv.ID, Sender: domain.SenderAgent, Content: "b"}))

	count, err := msgRepo.CountBySender(ctx, domain.SenderAgent)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMessagesByDay(t *testing.T) {
	db := newTestDB(t)
	convRepo := sqlite.NewConversationRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	conv := newConversation(t, convRepo, "visitor-a")
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: conv.ID, Sender: domain.SenderVisitor, Content: "q"}))
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: conv.ID, Sender: domain.SenderAgent, Content: "a"}))

	counts, err := msgRepo.MessagesByDay(ctx, 7)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 1, counts[0].VisitorCount)
	assert.Equal(t, 1, counts[0].AgentCount)
}
