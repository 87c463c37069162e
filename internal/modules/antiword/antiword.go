package antiword

import (
	"context"
	"strings"

	"wasentry/internal/envelope"
	"wasentry/internal/moderation"
	"wasentry/internal/store"
)

const Feature = "antibadword"

const defaultAction = moderation.ActionWarn

type Config struct {
	moderation.BaseConfig
	Words []string `json:"words,omitempty"`
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

// AddWord stores a word for a chat; returns false if already present.
func (m *Module) AddWord(chat, word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return false
	}
	added := false
	m.Update(chat, func(c *Config) {
		for _, w := range c.Words {
			if w == word {
				return
			}
		}
		c.Words = append(c.Words, word)
		added = true
	})
	return added
}

func (m *Module) RemoveWord(chat, word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	removed := false
	m.Update(chat, func(c *Config) {
		out := c.Words[:0]
		for _, w := range c.Words {
			if w == word {
				removed = true
				continue
			}
			out = append(out, w)
		}
		c.Words = out
	})
	return removed
}

// Detect matches any configured word as a case-insensitive substring.
func Detect(cfg Config, text string) moderation.Decision {
	if !cfg.Enabled || len(cfg.Words) == 0 || text == "" {
		return moderation.Ignore()
	}
	lower := strings.ToLower(text)
	for _, w := range cfg.Words {
		if w != "" && strings.Contains(lower, w) {
			return moderation.Act(cfg.ActionOr(defaultAction), "using forbidden words")
		}
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
