package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
	"github.com/nabilsaied15/asad-chat-bot/internal/notify"
)

type fakeSender struct {
	name  string
	err   error
	calls int
	last  notify.EmailMessage
}

func (s *fakeSender) Name() string { return s.name }

func (s *fakeSender) Send(ctx context.Context, m notify.EmailMessage) error {
	s.calls++
	s.last = m
	return s.err
}

type fakeSettingsRepo struct {
	settings map[int64]*domain.AgentSettings
	err      error
}

func (r *fakeSettingsRepo) GetByAgent(ctx context.Context, agentID int64) (*domain.AgentSettings, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.settings[agentID], nil
}

func (r *fakeSettingsRepo) Upsert(ctx context.Context, s *domain.AgentSettings) error {
	return nil
}

func newDispatcher(settings *fakeSettingsRepo, senders ...notify.EmailSender) *notify.Dispatcher {
	return notify.NewDispatcher(settings, notify.Defaults{
		NotificationEmail: "fallback@asad.to",
		WhatsAppNumber:    "33612345678",
	}, senders, time.Second, zap.NewNop())
}

func int64Ptr(v int64) *int64 { return &v }

func TestDispatchMutedConversation(t *testing.T) {
	sender := &fakeSender{name: "email-api"}
	d := newDispatcher(&fakeSettingsRepo{}, sender)

	d.Dispatch(&domain.Conversation{VisitorID: "visitor-a", IsMuted: true}, "au secours")

	assert.Zero(t, sender.calls)
}

func TestDispatchUsesDefaultsWithoutAgent(t *testing.T) {
	sender := &fakeSender{name: "email-api"}
	d := newDispatcher(&fakeSettingsRepo{}, sender)

	d.Dispatch(&domain.Conversation{VisitorID: "visitor-abcdef"}, "bonjour")

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "fallback@asad.to", sender.last.To)
	assert.Contains(t, sender.last.Subject, "visit")
}

func TestDispatchFallbackOrder(t *testing.T) {
	t.Run("FirstSuccessStopsTheWalk", func(t *testing.T) {
		api := &fakeSender{name: "email-api"}
		smtp := &fakeSender{name: "smtp"}
		d := newDispatcher(&fakeSettingsRepo{}, api, smtp)

		d.Dispatch(&domain.Conversation{VisitorID: "visitor-a"}, "bonjour")

		assert.Equal(t, 1, api.calls)
		assert.Zero(t, smtp.calls)
	})

	t.Run("FailureFallsThrough", func(t *testing.T) {
		api := &fakeSender{name: "email-api", err: errors.New("api down")}
		smtp := &fakeSender{name: "smtp"}
		d := newDispatcher(&fakeSettingsRepo{}, api, smtp)

		d.Dispatch(&domain.Conversation{VisitorID: "visitor-a"}, "bonjour")

		assert.Equal(t, 1, api.calls)
		assert.Equal(t, 1, smtp.calls)
	})

	t.Run("AllFailuresAreSwallowed", func(t *testing.T) {
		api := &fakeSender{name: "email-api", err: errors.New("api down")}
		smtp := &fakeSender{name: "smtp", err: errors.New("smtp down")}
		d := newDispatcher(&fakeSettingsRepo{}, api, smtp)

		// Must not panic or block; failures only get logged.
		d.Dispatch(&domain.Conversation{VisitorID: "visitor-a"}, "bonjour")

		assert.Equal(t, 1, api.calls)
		assert.Equal(t, 1, smtp.calls)
	})
}

func TestDispatchAgentPolicy(t *testing.T) {
	t.Run("AgentSettingsOverrideDefaults", func(t *testing.T) {
		sender := &fakeSender{name: "email-api"}
		repo := &fakeSettingsRepo{settings: map[int64]*domain.AgentSettings{
			7: {AgentID: 7, EmailEnabled: true, NotificationEmail: "agent7@asad.to"},
		}}
		d := newDispatcher(repo, sender)

		d.Dispatch(&domain.Conversation{VisitorID: "visitor-a", AssignedAgentID: int64Ptr(7)}, "bonjour")

		assert.Equal(t, 1, sender.calls)
		assert.Equal(t, "agent7@asad.to", sender.last.To)
	})

	t.Run("DisabledEmailSkipsSend", func(t *testing.T) {
		sender := &fakeSender{name: "email-api"}
		repo := &fakeSettingsRepo{settings: map[int64]*domain.AgentSettings{
			7: {AgentID: 7, EmailEnabled: false, NotificationEmail: "agent7@asad.to"},
		}}
		d := newDispatcher(repo, sender)

		d.Dispatch(&domain.Conversation{VisitorID: "visitor-a", AssignedAgentID: int64Ptr(7)}, "bonjour")

		assert.Zero(t, sender.calls)
	})

	t.Run("SettingsLookupFailureFallsBackToDefaults", func(t *testing.T) {
		sender := &fakeSender{name: "email-api"}
		repo := &fakeSettingsRepo{err: errors.New("db down")}
		d := newDispatcher(repo, sender)

		d.Dispatch(&domain.Conversation{VisitorID: "visitor-a", AssignedAgentID: int64Ptr(7)}, "bonjour")

		assert.Equal(t, 1, sender.calls)
		assert.Equal(t, "fallback@asad.to", sender.last.To)
	})
}

func TestWhatsAppLink(t *testing.T) {
	link := notify.WhatsAppLink("33612345678", "Nouveau message: salut & bonjour")
	assert.Contains(t, link, "https://wa.me/33612345678?text=")
	assert.NotContains(t, link, " ")
	assert.NotContains(t, link, "&b")
	assert.Contains(t, link, "salut")
}
