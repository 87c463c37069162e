package gate

import (
	"context"
	"fmt"

	"wasentry/internal/identity"
	"wasentry/internal/store"
	"wasentry/internal/transport"

	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

// Gate answers authorization questions: group adminship, ownership and
// sudo standing. Admin checks fail closed: when group metadata cannot
// be fetched, nobody is admin.
type Gate struct {
	tr     transport.Transport
	ids    *identity.Resolver
	store  *store.Store
	owner  string
	logger *zap.Logger
}

func New(tr transport.Transport, ids *identity.Resolver, st *store.Store, ownerNumber string, logger *zap.Logger) *Gate {
	return &Gate{tr: tr, ids: ids, store: st, owner: ownerNumber, logger: logger}
}

// Metadata fetches group metadata and records any phone/LID pairs the
// roster asserts, keeping the identity map current as a side effect.
func (g *Gate) Metadata(ctx context.Context, chat types.JID) (*transport.GroupMetadata, error) {
	meta, err := g.tr.GroupMetadata(ctx, chat)
	if err != nil {
		return nil, fmt.Errorf("metadata for %s: %w", chat, err)
	}
	for _, p := range meta.Participants {
		g.ids.Record(p.JID, p.LID)
	}
	return meta, nil
}

// IsGroupAdmin reports whether user holds admin in chat. The user is
// matched against the roster three ways: as-is, as the resolved phone
// identity, and as the recorded LID. A metadata failure denies.
func (g *Gate) IsGroupAdmin(ctx context.Context, chat, user types.JID) bool {
	meta, err := g.Metadata(ctx, chat)
	if err != nil {
		g.logger.Warn("admin check denied, metadata unavailable",
			zap.String("chat", chat.String()), zap.Error(err))
		return false
	}
	return IsAdminIn(meta, g.Candidates(user))
}

// BotIsAdmin reports whether the bot itself holds admin in chat.
func (g *Gate) BotIsAdmin(ctx context.Context, chat types.JID) bool {
	return g.IsGroupAdmin(ctx, chat, g.tr.Me())
}

// Candidates expands a JID into every identity it may appear under in
// a group roster.
func (g *Gate) Candidates(user types.JID) []types.JID {
	out := []types.JID{user.ToNonAD()}
	if resolved := g.ids.Resolve(user); resolved.ToNonAD() != user.ToNonAD() {
		out = append(out, resolved.ToNonAD())
	}
	if lid, ok := g.ids.LIDFor(user); ok {
		out = append(out, lid.ToNonAD())
	}
	return out
}

// IsAdminIn checks a roster for admin standing under any of the given
// identities.
func IsAdminIn(meta *transport.GroupMetadata, users []types.JID) bool {
	for _, p := range meta.Participants {
		if !p.IsAdmin && !p.IsSuperAdmin {
			continue
		}
		for _, u := range users {
			if p.JID.ToNonAD() == u || p.LID.ToNonAD() == u {
				return true
			}
		}
	}
	return false
}

// IsOwner reports whether user resolves to the configured owner
// number.
func (g *Gate) IsOwner(user types.JID) bool {
	return g.ids.Resolve(user).ToNonAD().User == g.owner
}

// IsOwnerOrSudo grants the bot account itself, the configured owner
// and everyone on the sudo list.
func (g *Gate) IsOwnerOrSudo(fromMe bool, user types.JID) bool {
	if fromMe {
		return true
	}
	if g.IsOwner(user) {
		return true
	}
	resolved := g.ids.Resolve(user).ToNonAD()
	return g.store.IsSudo(resolved.User) || g.store.IsSudo(user.ToNonAD().User)
}
