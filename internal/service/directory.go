package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
)

// Directory is the authoritative conversation state machine. It owns status
// transitions and the mute flag; persistence lives in the repositories.
type Directory struct {
	conversations domain.ConversationRepository
	users         domain.UserRepository

	// Collapses concurrent ResolveOrCreateOpen calls for the same visitor
	// identity (two tabs connecting at once). The partial unique index on
	// the conversations table backs this up across processes.
	group singleflight.Group
}

func NewDirectory(conversations domain.ConversationRepository, users domain.UserRepository) *Directory {
	return &Directory{
		conversations: conversations,
		users:         users,
	}
}

// ResolveOrCreateOpen returns the visitor's open conversation, creating one
// if absent. Supplied profile fields are merged first-non-null-wins. The
// assigned agent is resolved from the site key only at creation and then
// stays pinned.
func (d *Directory) ResolveOrCreateOpen(ctx context.Context, visitorID string, profile domain.VisitorProfile, siteKey string) (*domain.Conversation, error) {
	v, err, _ := d.group.Do(visitorID, func() (any, error) {
		return d.resolveOrCreateOpen(ctx, visitorID, profile, siteKey)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Conversation), nil
}

func (d *Directory) resolveOrCreateOpen(ctx context.Context, visitorID string, profile domain.VisitorProfile, siteKey string) (*domain.Conversation, error) {
	conv, err := d.conversations.FindOpenByVisitor(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		if !profile.Empty() {
			if err := d.conversations.MergeProfile(ctx, conv.ID, profile); err != nil {
				return nil, err
			}
			return d.conversations.GetByID(ctx, conv.ID)
		}
		return conv, nil
	}

	conv = &domain.Conversation{
		VisitorID:     visitorID,
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
		ContactNumber: profile.ContactNumber,
		Problem:       profile.Problem,
		Status:        domain.StatusOpen,
	}
	if siteKey != "" {
		agent, err := d.users.GetBySiteKey(ctx, siteKey)
		if err != nil {
			return nil, err
		}
		if agent != nil {
			conv.AssignedAgentID = &agent.ID
		}
	}

	if err := d.conversations.Create(ctx, conv); err != nil {
		// Lost the race against another writer: the open conversation now
		// exists, fetch it instead.
		if errors.Is(err, domain.ErrConflict) {
			existing, ferr := d.conversations.FindOpenByVisitor(ctx, visitorID)
			if ferr != nil {
				return nil, ferr
			}
			if existing == nil {
				return nil, fmt.Errorf("open conversation for %s vanished after conflict", visitorID)
			}
			return existing, nil
		}
		return nil, err
	}
	return conv, nil
}

// Get returns the conversation or ErrConversationNotFound.
func (d *Directory) Get(ctx context.Context, id int64) (*domain.Conversation, error) {
	conv, err := d.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, domain.ErrConversationNotFound
	}
	return conv, nil
}

// FindOpenByVisitor returns the visitor's open conversation, or nil.
func (d *Directory) FindOpenByVisitor(ctx context.Context, visitorID string) (*domain.Conversation, error) {
	return d.conversations.FindOpenByVisitor(ctx, visitorID)
}

// SetStatus is the single transition point for conversation status.
// Transitions are deliberately unrestricted (agents may reopen a resolved
// conversation); only unknown statuses are rejected.
func (d *Directory) SetStatus(ctx context.Context, id int64, status domain.ConversationStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	return d.conversations.SetStatus(ctx, id, status)
}

// ToggleMute atomically flips the mute flag and returns the new value.
func (d *Directory) ToggleMute(ctx context.Context, id int64) (bool, error) {
	return d.conversations.ToggleMute(ctx, id)
}

// PurgeDeleted irreversibly removes a soft-deleted conversation and its
// messages. The conversation must already be in status deleted; the
// two-phase delete is explicit.
func (d *Directory) PurgeDeleted(ctx context.Context, id int64) error {
	conv, err := d.conversations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if conv == nil {
		return domain.ErrConversationNotFound
	}
	if conv.Status != domain.StatusDeleted {
		return domain.ErrConversationNotDeleted
	}
	return d.conversations.Purge(ctx, id)
}
