package antimedia

import (
	"context"

	"wasentry/internal/envelope"
	"wasentry/internal/gate"
	"wasentry/internal/moderation"
	"wasentry/internal/store"
)

const (
	FeatureSticker = "antisticker"
	FeaturePhoto   = "antiphoto"
)

const defaultAction = moderation.ActionDelete

type Config struct {
	moderation.BaseConfig
}

// Module moderates media kinds. Sticker removal additionally requires
// the bot to hold group admin.
type Module struct {
	store    *store.Store
	gate     *gate.Gate
	enforcer *moderation.Enforcer
}

func New(st *store.Store, g *gate.Gate, enf *moderation.Enforcer) *Module {
	return &Module{store: st, gate: g, enforcer: enf}
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

// Detect flags a message whose media kind matches the feature's.
func Detect(cfg Config, media envelope.MediaType, want envelope.MediaType) moderation.Decision {
	if !cfg.Enabled || media != want {
		return moderation.Ignore()
	}
	reason := "sending stickers"
	if want == envelope.MediaImage {
		reason = "sending photos"
	}
	return moderation.Act(cfg.ActionOr(defaultAction), reason)
}

func (m *Module) Handle(ctx context.Context, env envelope.Envelope) {
	chat := env.Chat.String()

	feature := ""
	var d moderation.Decision
	switch env.Media {
	case envelope.MediaSticker:
		feature = FeatureSticker
		d = Detect(m.Config(feature, chat), env.Media, envelope.MediaSticker)
	case envelope.MediaImage:
		feature = FeaturePhoto
		d = Detect(m.Config(feature, chat), env.Media, envelope.MediaImage)
	}
	if !d.Act || m.enforcer.Exempt(ctx, env) {
		return
	}
	if feature == FeatureSticker && !m.gate.BotIsAdmin(ctx, env.Chat) {
		return
	}
	m.enforcer.Enforce(ctx, feature, env, d)
}
