package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
	"github.com/nabilsaied15/asad-chat-bot/internal/store/sqlite"
)

func strPtr(s string) *string { return &s }

func TestCreateEnforcesSingleOpenConversation(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewConversationRepo(db)
	ctx := context.Background()

	first := &domain.Conversation{VisitorID: "visitor-a", Status: domain.StatusOpen}
	require.NoError(t, repo.Create(ctx, first))

	dup := &domain.Conversation{VisitorID: "visitor-a", Status: domain.StatusOpen}
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Closing the first frees the slot.
	require.NoError(t, repo.SetStatus(ctx, first.ID, domain.StatusResolved))
	require.NoError(t, repo.Create(ctx, dup))
}

func TestFindOpenByVisitor(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewConversationRepo(db)
	ctx := context.Background()

	got, err := repo.FindOpenByVisitor(ctx, "visitor-a")
	require.NoError(t, err)
	assert.Nil(t, got)

	conv := &domain.Conversation{VisitorID: "visitor-a", Status: domain.StatusOpen}
	require.NoError(t, repo.Create(ctx, conv))

	got, err = repo.FindOpenByVisitor(ctx, "visitor-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, conv.ID, got.ID)

	// Resolved conversations are not returned.
	require.NoError(t, repo.SetStatus(ctx, conv.ID, domain.StatusResolved))
	got, err = repo.FindOpenByVisitor(ctx, "visitor-a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMergeProfileNeverOverwrites(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewConversationRepo(db)
	ctx := context.Background()

	conv := &domain.Conversation{
		VisitorID: "visitor-a",
		Status:    domain.StatusOpen,
		FirstName: strPtr("Nadia"),
	}
	require.NoError(t, repo.Create(ctx, conv))

	require.NoError(t, repo.MergeProfile(ctx, conv.ID, domain.VisitorProfile{
		FirstName: strPtr("Overwrite"),
		LastName:  strPtr("Bensaid"),
		Problem:   strPtr("widget setup"),
	}))

	got, err := repo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nadia", *got.FirstName)
	assert.Equal(t, "Bensaid", *got.LastName)
	assert.Equal(t, "widget setup", *got.Problem)
	assert.Nil(t, got.ContactNumber)
}

func TestListWithSummaries(t *testing.T) {
	db := newTestDB(t)
	convRepo := sqlite.NewConversationRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	conv := &domain.Conversation{VisitorID: "visitor-a", Status: domain.StatusOpen}
	require.NoError(t, convRepo.Create(ctx, conv))
	empty := &domain.Conversation{VisitorID: "visitor-b", Status: domain.StatusOpen}
	require.NoError(t, convRepo.Create(ctx, empty))

	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: conv.ID, Sender: domain.SenderVisitor, Content: "first"}))
	require.NoError(t, msgRepo.Append(ctx, &domain.Message{ConversationID: conv.ID, Sender: domain.SenderVisitor, Content: "latest"}))

	list, err := convRepo.ListWithSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byVisitor := map[string]*domain.ConversationSummary{}
	for _, s := range list {
		byVisitor[s.VisitorID] = s
	}

	withMsgs := byVisitor["visitor-a"]
	require.NotNil(t, withMsgs)
	require.NotNil(t, withMsgs.LastMessage)
	assert.Equal(t, "latest", *withMsgs.LastMessage)
	assert.Equal(t, 2, withMsgs.UnreadCount)

	noMsgs := byVisitor["visitor-b"]
	require.NotNil(t, noMsgs)
	assert.Nil(t, noMsgs.LastMessage)
	assert.Equal(t, 0, noMsgs.UnreadCount)
}
