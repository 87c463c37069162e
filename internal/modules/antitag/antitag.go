package antitag

import (
	"context"
	"strings"

	"wasentry/internal/envelope"
	"wasentry/internal/moderation"
	"wasentry/internal/store"
)

const (
	FeatureTag     = "antitag"
	FeatureMention = "antigroupmention"
)

const (
	defaultAction = moderation.ActionDelete

	// massMentionThreshold is the mention count at which a message is
	// treated as a tag-everyone blast.
	massMentionThreshold = 5
)

var mentionTokens = []string{"@everyone", "@all", "@tagall"}

type Config struct {
	moderation.BaseConfig
}

// Module covers the two tagging features: antitag (mass mentions) and
// antigroupmention (literal @everyone style tokens).
type Module struct {
	store    *store.Store
	enforcer *moderation.Enforcer
}

func New(st *store.Store, enf *moderation.Enforcer) *Module {
	return &Module{store: st, enforcer: enf}
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

// DetectTag flags messages mentioning an unreasonable number of
// members at once.
func DetectTag(cfg Config, mentionCount int) moderation.Decision {
	if !cfg.Enabled || mentionCount < massMentionThreshold {
		return moderation.Ignore()
	}
	return moderation.Act(cfg.ActionOr(defaultAction), "mass tagging")
}

// DetectMention flags literal group-wide mention tokens in the text.
func DetectMention(cfg Config, text string) moderation.Decision {
	if !cfg.Enabled || text == "" {
		return moderation.Ignore()
	}
	lower := strings.ToLower(text)
	for _, tok := range mentionTokens {
		if containsToken(lower, tok) {
			return moderation.Act(cfg.ActionOr(defaultAction), "group-wide mentions")
		}
	}
	return moderation.Ignore()
}

// containsToken matches tok as a whole word so "@allison" does not
// trip "@all".
func containsToken(text, tok string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], tok)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(tok)
		if end == len(text) || !isWordByte(text[end]) {
			return true
		}
		idx = end
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (m *Module) Handle(ctx context.Context, env envelope.Envelope) {
	chat := env.Chat.String()

	feature := FeatureTag
	d := DetectTag(m.Config(FeatureTag, chat), len(env.Mentions))
	if !d.Act {
		feature = FeatureMention
		d = DetectMention(m.Config(FeatureMention, chat), env.Text)
	}
	if !d.Act || m.enforcer.Exempt(ctx, env) {
		return
	}
	m.enforcer.Enforce(ctx, feature, env, d)
}
