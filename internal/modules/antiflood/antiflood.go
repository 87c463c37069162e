package antiflood

import (
	"context"
	"sync"
	"time"

	"wasentry/internal/envelope"
	"wasentry/internal/moderation"
	"wasentry/internal/store"
	"wasentry/internal/utils"
)

const Feature = "antiflood"

const defaultAction = moderation.ActionDelete

type Config struct {
	moderation.BaseConfig
}

// Module rate-checks message bursts per chat and sender over a sliding
// window.
type Module struct {
	store    *store.Store
	enforcer *moderation.Enforcer

	maxMessages int
	window      time.Duration

	mu      sync.Mutex
	windows map[string]*utils.SlidingWindow
}

func New(st *store.Store, enf *moderation.Enforcer, maxMessages int, window time.Duration) *Module {
	if maxMessages <= 0 {
		maxMessages = 8
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return &Module{
		store:       st,
		enforcer:    enf,
		maxMessages: maxMessages,
		window:      window,
		windows:     make(map[string]*utils.SlidingWindow),
	}
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

// observe records one message and returns the count inside the window.
func (m *Module) observe(chat, sender string, now time.Time) int {
	key := chat + "|" + sender
	m.mu.Lock()
	w, ok := m.windows[key]
	if !ok {
		w = utils.NewSlidingWindow(m.window)
		m.windows[key] = w
	}
	m.mu.Unlock()
	return w.Add(now)
}

func (m *Module) Handle(ctx context.Context, env envelope.Envelope) {
	cfg := m.Config(env.Chat.String())
	if !cfg.Enabled {
		return
	}
	count := m.observe(env.Chat.String(), env.Sender.ToNonAD().String(), env.Timestamp)
	if count <= m.maxMessages {
		return
	}
	if m.enforcer.Exempt(ctx, env) {
		return
	}
	m.enforcer.Enforce(ctx, Feature, env, moderation.Act(cfg.ActionOr(defaultAction), "flooding the chat"))
}
