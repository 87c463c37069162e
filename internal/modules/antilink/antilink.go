package antilink

import (
	"context"

	"wasentry/internal/envelope"
	"wasentry/internal/moderation"
	"wasentry/internal/store"
	"wasentry/internal/utils"
)

const Feature = "antilink"

const defaultAction = moderation.ActionDelete

type Config struct {
	moderation.BaseConfig
	// Excluded opts a chat out of link moderation without flipping
	// Enabled, so re-including restores the previous action.
	Excluded bool `json:"excluded,omitempty"`
}

type Module struct {
	store    *store.Store
	enforcer *moderation.Enforcer
}

func New(st *store.Store, enf *moderation.Enforcer) *Module {
	return &Module{store: st, enforcer: enf}
}

func (m *Module) Config(chat string) Config {
	return store.Get[Config](m.store, Feature, chat)
}

func (m *Module) Update(chat string, fn func(*Config)) Config {
	return store.Update(m.store, Feature, chat, fn)
}

func (m *Module) Reset(chat string) {
	m.store.Remove(Feature, chat)
}

// Detect flags messages carrying an invite link.
func Detect(cfg Config, text string) moderation.Decision {
	if !cfg.Enabled || cfg.Excluded {
		return moderation.Ignore()
	}
	if utils.ContainsInviteLink(text) {
		return moderation.Act(cfg.ActionOr(defaultAction), "sharing invite links")
	}
	return moderation.Ignore()
}

func (m *Module) Handle(ctx context.Context, env envelope.Envelope) {
	d := Detect(m.Config(env.Chat.String()), env.Text)
	if !d.Act || m.enforcer.Exempt(ctx, env) {
		return
	}
	m.enforcer.Enforce(ctx, Feature, env, d)
}
