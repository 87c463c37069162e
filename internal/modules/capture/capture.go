package capture

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"wasentry/internal/envelope"
	"wasentry/internal/store"
	"wasentry/internal/transport"

	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

const (
	FeatureEdit   = "antiedit"
	FeatureDelete = "antidelete"
)

// Notify selects where edit/revoke reports go.
type Notify string

const (
	NotifyOwner Notify = "owner"
	NotifyChat  Notify = "chat"
	NotifyBoth  Notify = "both"
)

type Config struct {
	Enabled bool   `json:"enabled"`
	Notify  Notify `json:"notify,omitempty"`
}

func (c Config) NotifyOr(def Notify) Notify {
	switch c.Notify {
	case NotifyOwner, NotifyChat, NotifyBoth:
		return c.Notify
	}
	return def
}

type entry struct {
	id        string
	chat      types.JID
	sender    types.JID
	pushName  string
	text      string
	media     envelope.MediaType
	timestamp time.Time
}

// Module keeps a bounded copy of recent messages and reports edits and
// revokes against it. The map evicts oldest-first once full; messages
// sent before the bot came up are simply unknown and their events are
// ignored.
type Module struct {
	store  *store.Store
	tr     transport.Transport
	owner  types.JID
	logger *zap.Logger

	max int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
}

func New(st *store.Store, tr transport.Transport, owner types.JID, max int, logger *zap.Logger) *Module {
	if max <= 0 {
		max = 2000
	}
	return &Module{
		store:   st,
		tr:      tr,
		owner:   owner,
		logger:  logger,
		max:     max,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
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

// Record stores a copy of an incoming message. Own messages are not
// captured.
func (m *Module) Record(env envelope.Envelope) {
	if env.FromMe || env.ID == "" {
		return
	}
	if env.Kind != envelope.KindText && env.Kind != envelope.KindMedia {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.entries[env.ID]; ok {
		el.Value.(*entry).text = env.Text
		m.order.MoveToBack(el)
		return
	}
	for len(m.entries) >= m.max {
		front := m.order.Front()
		if front == nil {
			break
		}
		m.order.Remove(front)
		delete(m.entries, front.Value.(*entry).id)
	}
	m.entries[env.ID] = m.order.PushBack(&entry{
		id:        env.ID,
		chat:      env.Chat,
		sender:    env.Sender,
		pushName:  env.PushName,
		text:      env.Text,
		media:     env.Media,
		timestamp: env.Timestamp,
	})
}

func (m *Module) lookup(id string) (entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.entries[id]
	if !ok {
		return entry{}, false
	}
	return *el.Value.(*entry), true
}

func (m *Module) updateText(id, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.entries[id]; ok {
		el.Value.(*entry).text = text
	}
}

// Size reports how many messages are currently held.
func (m *Module) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// HandleEdit reports an edit event when the stored original differs
// from the replacement, then updates the stored copy.
func (m *Module) HandleEdit(ctx context.Context, env envelope.Envelope) {
	cfg := m.Config(FeatureEdit, env.Chat.String())
	if !cfg.Enabled {
		return
	}
	orig, ok := m.lookup(env.TargetID)
	if !ok || orig.text == env.Edited {
		return
	}
	report := fmt.Sprintf("✏️ %s edited a message in %s\nBefore: %s\nAfter: %s",
		displayName(orig), env.Chat.String(), orig.text, env.Edited)
	m.deliver(ctx, env.Chat, cfg.NotifyOr(NotifyChat), report)
	m.updateText(env.TargetID, env.Edited)
}

// HandleRevoke reposts the stored content of a revoked message.
func (m *Module) HandleRevoke(ctx context.Context, env envelope.Envelope) {
	cfg := m.Config(FeatureDelete, env.Chat.String())
	if !cfg.Enabled {
		return
	}
	orig, ok := m.lookup(env.TargetID)
	if !ok {
		return
	}
	body := orig.text
	if body == "" && orig.media != envelope.MediaNone {
		body = fmt.Sprintf("[%s message]", orig.media)
	}
	report := fmt.Sprintf("🗑️ %s deleted a message in %s\nContent: %s",
		displayName(orig), env.Chat.String(), body)
	m.deliver(ctx, env.Chat, cfg.NotifyOr(NotifyChat), report)
}

func (m *Module) deliver(ctx context.Context, chat types.JID, target Notify, text string) {
	if target == NotifyChat || target == NotifyBoth {
		if err := m.tr.SendText(ctx, chat, text); err != nil {
			m.logger.Warn("capture report to chat failed", zap.String("chat", chat.String()), zap.Error(err))
		}
	}
	if (target == NotifyOwner || target == NotifyBoth) && !m.owner.IsEmpty() {
		if err := m.tr.SendText(ctx, m.owner, text); err != nil {
			m.logger.Warn("capture report to owner failed", zap.Error(err))
		}
	}
}

func displayName(e entry) string {
	if e.pushName != "" {
		return e.pushName
	}
	return e.sender.User
}
