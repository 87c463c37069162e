package moderation

import (
	"context"
	"errors"
	"testing"

	"wasentry/internal/envelope"
	"wasentry/internal/gate"
	"wasentry/internal/identity"
	"wasentry/internal/modules/audit"
	"wasentry/internal/storage"
	"wasentry/internal/store"
	"wasentry/internal/transport"

	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

type fakeTransport struct {
	me      types.JID
	meta    *transport.GroupMetadata
	metaErr error

	deleted  []string
	mentions []string
	kicked   []types.JID
}

func (f *fakeTransport) Me() types.JID { return f.me }
func (f *fakeTransport) SendText(context.Context, types.JID, string) error {
	return nil
}
func (f *fakeTransport) SendMention(_ context.Context, _ types.JID, text string, _ []types.JID) error {
	f.mentions = append(f.mentions, text)
	return nil
}
func (f *fakeTransport) DeleteMessage(_ context.Context, _ types.JID, _ types.JID, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeTransport) GroupMetadata(context.Context, types.JID) (*transport.GroupMetadata, error) {
	return f.meta, f.metaErr
}
func (f *fakeTransport) UpdateParticipants(_ context.Context, _ types.JID, users []types.JID, op transport.ParticipantOp) error {
	if op == transport.OpRemove {
		f.kicked = append(f.kicked, users...)
	}
	return nil
}

func newEnforcer(t *testing.T, tr *fakeTransport) *Enforcer {
	t.Helper()
	st, err := store.New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ids := identity.NewResolver(st)
	g := gate.New(tr, ids, st, "254799999999", zap.NewNop())
	return NewEnforcer(tr, g, db, audit.NewLogger(db, zap.NewNop()), 3, zap.NewNop())
}

func groupEnv(id string) envelope.Envelope {
	return envelope.Envelope{
		ID:      id,
		Chat:    types.NewJID("g1", types.GroupServer),
		Sender:  types.NewJID("254700000000", types.DefaultUserServer),
		IsGroup: true,
		Kind:    envelope.KindText,
	}
}

func TestExemptPolicy(t *testing.T) {
	sender := types.NewJID("254700000000", types.DefaultUserServer)
	tr := &fakeTransport{meta: &transport.GroupMetadata{}}
	e := newEnforcer(t, tr)

	dm := groupEnv("M1")
	dm.IsGroup = false
	if !e.Exempt(context.Background(), dm) {
		t.Fatalf("direct messages must be exempt")
	}

	own := groupEnv("M1")
	own.FromMe = true
	if !e.Exempt(context.Background(), own) {
		t.Fatalf("own messages must be exempt")
	}

	tr.meta = &transport.GroupMetadata{Owner: sender}
	if !e.Exempt(context.Background(), groupEnv("M1")) {
		t.Fatalf("group creator must be exempt")
	}

	tr.meta = &transport.GroupMetadata{Participants: []transport.Participant{{JID: sender, IsAdmin: true}}}
	if !e.Exempt(context.Background(), groupEnv("M1")) {
		t.Fatalf("admins must be exempt")
	}

	tr.meta = &transport.GroupMetadata{}
	if e.Exempt(context.Background(), groupEnv("M1")) {
		t.Fatalf("plain member must not be exempt")
	}

	tr.metaErr = errors.New("network down")
	if !e.Exempt(context.Background(), groupEnv("M1")) {
		t.Fatalf("metadata failure must skip moderation")
	}
}

func TestEnforceDelete(t *testing.T) {
	tr := &fakeTransport{meta: &transport.GroupMetadata{}}
	e := newEnforcer(t, tr)

	e.Enforce(context.Background(), "antilink", groupEnv("M1"), Act(ActionDelete, "sharing invite links"))
	if len(tr.deleted) != 1 || tr.deleted[0] != "M1" {
		t.Fatalf("expected message deleted, got %v", tr.deleted)
	}
	if len(tr.mentions) != 1 {
		t.Fatalf("expected one warning mention, got %v", tr.mentions)
	}
	if len(tr.kicked) != 0 {
		t.Fatalf("delete action must not kick")
	}
}

func TestEnforceWarnEscalatesToKick(t *testing.T) {
	tr := &fakeTransport{meta: &transport.GroupMetadata{}}
	e := newEnforcer(t, tr)

	for i := 0; i < 2; i++ {
		e.Enforce(context.Background(), "antibadword", groupEnv("M1"), Act(ActionWarn, "using forbidden words"))
	}
	if len(tr.kicked) != 0 {
		t.Fatalf("kick must wait for the threshold")
	}

	e.Enforce(context.Background(), "antibadword", groupEnv("M3"), Act(ActionWarn, "using forbidden words"))
	if len(tr.kicked) != 1 {
		t.Fatalf("expected kick at third warning, got %v", tr.kicked)
	}

	// Counter resets after the kick.
	tr.kicked = nil
	e.Enforce(context.Background(), "antibadword", groupEnv("M4"), Act(ActionWarn, "using forbidden words"))
	if len(tr.kicked) != 0 {
		t.Fatalf("expected fresh counter after kick")
	}
}

func TestEnforceKick(t *testing.T) {
	tr := &fakeTransport{meta: &transport.GroupMetadata{}}
	e := newEnforcer(t, tr)

	e.Enforce(context.Background(), "antiflood", groupEnv("M1"), Act(ActionKick, "flooding the chat"))
	if len(tr.deleted) != 1 {
		t.Fatalf("kick action still deletes the message")
	}
	if len(tr.kicked) != 1 {
		t.Fatalf("expected kick")
	}
}

func TestIgnoreDoesNothing(t *testing.T) {
	tr := &fakeTransport{meta: &transport.GroupMetadata{}}
	e := newEnforcer(t, tr)

	e.Enforce(context.Background(), "antilink", groupEnv("M1"), Ignore())
	if len(tr.deleted) != 0 || len(tr.mentions) != 0 || len(tr.kicked) != 0 {
		t.Fatalf("ignore must have no side effects")
	}
}
