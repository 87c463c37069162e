package greeter

import (
	"context"
	"strings"

	"wasentry/internal/store"
	"wasentry/internal/transport"

	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

const (
	FeatureWelcome = "welcome"
	FeatureGoodbye = "goodbye"
)

type Config struct {
	Enabled bool   `json:"enabled"`
	Text    string `json:"text,omitempty"`
}

// Module announces joins and leaves per chat configuration. The
// message template may reference @user, replaced with a mention of the
// member in question.
type Module struct {
	store  *store.Store
	tr     transport.Transport
	logger *zap.Logger
}

func New(st *store.Store, tr transport.Transport, logger *zap.Logger) *Module {
	return &Module{store: st, tr: tr, logger: logger}
}

func (m *Module) Config(feature, chat string) Config {
	return store.Get[Config](m.store, feature, chat)
}

func (m *Module) Update(feature, chat string, fn func(*Config)) Config {
	return store.Update(m.store, feature, chat, fn)
}

func (m *Module) Reset(feature, chat string) {
	m.store.Remove(feature, chat)
}

func (m *Module) HandleRoleChange(ctx context.Context, rc transport.RoleChange) {
	if len(rc.Joined) > 0 {
		m.announce(ctx, rc.Chat, FeatureWelcome, "Welcome @user! 👋", rc.Joined)
	}
	if len(rc.Left) > 0 {
		m.announce(ctx, rc.Chat, FeatureGoodbye, "Goodbye @user.", rc.Left)
	}
}

func (m *Module) announce(ctx context.Context, chat types.JID, feature, def string, members []types.JID) {
	cfg := m.Config(feature, chat.String())
	if !cfg.Enabled {
		return
	}
	tpl := cfg.Text
	if tpl == "" {
		tpl = def
	}
	for _, member := range members {
		text := strings.ReplaceAll(tpl, "@user", "@"+member.User)
		if err := m.tr.SendMention(ctx, chat, text, []types.JID{member}); err != nil {
			m.logger.Warn("greeting failed",
				zap.String("chat", chat.String()), zap.String("member", member.String()), zap.Error(err))
		}
	}
}
