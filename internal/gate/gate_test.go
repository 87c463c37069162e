package gate

import (
	"context"
	"errors"
	"testing"

	"wasentry/internal/identity"
	"wasentry/internal/store"
	"wasentry/internal/transport"

	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

type fakeTransport struct {
	me   types.JID
	meta *transport.GroupMetadata
	err  error
}

func (f *fakeTransport) Me() types.JID { return f.me }
func (f *fakeTransport) SendText(context.Context, types.JID, string) error {
	return nil
}
func (f *fakeTransport) SendMention(context.Context, types.JID, string, []types.JID) error {
	return nil
}
func (f *fakeTransport) DeleteMessage(context.Context, types.JID, types.JID, string) error {
	return nil
}
func (f *fakeTransport) GroupMetadata(context.Context, types.JID) (*transport.GroupMetadata, error) {
	return f.meta, f.err
}
func (f *fakeTransport) UpdateParticipants(context.Context, types.JID, []types.JID, transport.ParticipantOp) error {
	return nil
}

func newGate(t *testing.T, tr transport.Transport, owner string) *Gate {
	t.Helper()
	st, err := store.New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return New(tr, identity.NewResolver(st), st, owner, zap.NewNop())
}

func TestAdminFailClosedOnMetadataError(t *testing.T) {
	tr := &fakeTransport{err: errors.New("network down")}
	g := newGate(t, tr, "254799999999")

	chat := types.NewJID("123", types.GroupServer)
	admin := types.NewJID("254700000000", types.DefaultUserServer)
	if g.IsGroupAdmin(context.Background(), chat, admin) {
		t.Fatalf("metadata error must deny admin")
	}
	if g.BotIsAdmin(context.Background(), chat) {
		t.Fatalf("metadata error must deny bot admin")
	}
}

func TestAdminMatchByRawJID(t *testing.T) {
	admin := types.NewJID("254700000000", types.DefaultUserServer)
	tr := &fakeTransport{meta: &transport.GroupMetadata{
		Participants: []transport.Participant{{JID: admin, IsAdmin: true}},
	}}
	g := newGate(t, tr, "254799999999")

	chat := types.NewJID("123", types.GroupServer)
	if !g.IsGroupAdmin(context.Background(), chat, admin) {
		t.Fatalf("expected raw match")
	}
	other := types.NewJID("111", types.DefaultUserServer)
	if g.IsGroupAdmin(context.Background(), chat, other) {
		t.Fatalf("non-admin must not match")
	}
}

func TestAdminMatchThroughLID(t *testing.T) {
	phone := types.NewJID("254700000000", types.DefaultUserServer)
	lid := types.NewJID("99887766", types.HiddenUserServer)
	// Roster lists the member by phone with the LID asserted alongside;
	// the message arrives addressed by LID only.
	tr := &fakeTransport{meta: &transport.GroupMetadata{
		Participants: []transport.Participant{{JID: phone, LID: lid, IsAdmin: true}},
	}}
	g := newGate(t, tr, "254799999999")

	chat := types.NewJID("123", types.GroupServer)
	if !g.IsGroupAdmin(context.Background(), chat, lid) {
		t.Fatalf("expected match via recorded lid")
	}
}

func TestIsOwnerOrSudo(t *testing.T) {
	tr := &fakeTransport{meta: &transport.GroupMetadata{}}
	g := newGate(t, tr, "254799999999")

	owner := types.NewJID("254799999999", types.DefaultUserServer)
	sudoUser := types.NewJID("254700000000", types.DefaultUserServer)
	random := types.NewJID("254711111111", types.DefaultUserServer)

	g.store.AddSudo("254700000000")

	if !g.IsOwnerOrSudo(true, random) {
		t.Fatalf("fromMe must be privileged")
	}
	if !g.IsOwnerOrSudo(false, owner) {
		t.Fatalf("owner must be privileged")
	}
	if !g.IsOwnerOrSudo(false, sudoUser) {
		t.Fatalf("sudo user must be privileged")
	}
	if g.IsOwnerOrSudo(false, random) {
		t.Fatalf("random user must be denied")
	}
}
