package antirole

import (
	"context"
	"fmt"

	"wasentry/internal/gate"
	"wasentry/internal/store"
	"wasentry/internal/transport"

	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

const (
	FeaturePromote = "antipromote"
	FeatureDemote  = "antidemote"
)

// Mode selects how an unauthorized role change is answered.
type Mode string

const (
	ModeRevert Mode = "revert"
	ModeKick   Mode = "kick"
)

type Config struct {
	Enabled bool `json:"enabled"`
	Mode    Mode `json:"mode,omitempty"`
}

func (c Config) ModeOr(def Mode) Mode {
	if c.Mode == ModeRevert || c.Mode == ModeKick {
		return c.Mode
	}
	return def
}

// Module watches group role changes and reverses promotes or demotes
// performed by anyone other than the bot or the group creator.
type Module struct {
	store  *store.Store
	tr     transport.Transport
	gate   *gate.Gate
	logger *zap.Logger
}

func New(st *store.Store, tr transport.Transport, g *gate.Gate, logger *zap.Logger) *Module {
	return &Module{store: st, tr: tr, gate: g, logger: logger}
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
	if len(rc.Promoted) > 0 {
		m.react(ctx, rc, FeaturePromote, rc.Promoted, transport.OpDemote, "promoting")
	}
	if len(rc.Demoted) > 0 {
		m.react(ctx, rc, FeatureDemote, rc.Demoted, transport.OpPromote, "demoting")
	}
}

func (m *Module) react(ctx context.Context, rc transport.RoleChange, feature string, targets []types.JID, revert transport.ParticipantOp, verb string) {
	cfg := m.Config(feature, rc.Chat.String())
	if !cfg.Enabled {
		return
	}
	if m.actorExempt(ctx, rc) {
		return
	}

	switch cfg.ModeOr(ModeRevert) {
	case ModeKick:
		if err := m.tr.UpdateParticipants(ctx, rc.Chat, []types.JID{rc.Actor.ToNonAD()}, transport.OpRemove); err != nil {
			m.logger.Warn("actor kick failed",
				zap.String("chat", rc.Chat.String()), zap.String("actor", rc.Actor.String()), zap.Error(err))
			return
		}
		m.notify(ctx, rc, fmt.Sprintf("@%s removed for %s members without authorization.", rc.Actor.User, verb))
	default:
		if err := m.tr.UpdateParticipants(ctx, rc.Chat, nonAD(targets), revert); err != nil {
			m.logger.Warn("role revert failed",
				zap.String("chat", rc.Chat.String()), zap.Error(err))
			return
		}
		m.notify(ctx, rc, fmt.Sprintf("@%s reverted: %s members requires authorization.", rc.Actor.User, verb))
	}
}

// actorExempt skips changes made by the bot itself or the group
// creator. An unreadable roster exempts too.
func (m *Module) actorExempt(ctx context.Context, rc transport.RoleChange) bool {
	if rc.Actor.IsEmpty() || rc.Actor.ToNonAD() == m.tr.Me() {
		return true
	}
	meta, err := m.gate.Metadata(ctx, rc.Chat)
	if err != nil {
		m.logger.Warn("role change skipped, metadata unavailable",
			zap.String("chat", rc.Chat.String()), zap.Error(err))
		return true
	}
	for _, c := range m.gate.Candidates(rc.Actor) {
		if c == meta.Owner.ToNonAD() {
			return true
		}
	}
	return false
}

func (m *Module) notify(ctx context.Context, rc transport.RoleChange, text string) {
	if err := m.tr.SendMention(ctx, rc.Chat, text, []types.JID{rc.Actor}); err != nil {
		m.logger.Warn("role change notice failed", zap.String("chat", rc.Chat.String()), zap.Error(err))
	}
}

func nonAD(jids []types.JID) []types.JID {
	out := make([]types.JID, 0, len(jids))
	for _, j := range jids {
		out = append(out, j.ToNonAD())
	}
	return out
}
