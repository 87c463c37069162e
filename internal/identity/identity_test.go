package identity

import (
	"testing"

	"wasentry/internal/store"

	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

func newResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return NewResolver(st), dir
}

func TestResolvePhonePassesThrough(t *testing.T) {
	r, _ := newResolver(t)
	phone := types.NewJID("254700000000", types.DefaultUserServer)
	if got := r.Resolve(phone); got != phone {
		t.Fatalf("expected passthrough, got %s", got)
	}
}

func TestResolveUnknownLIDUnchanged(t *testing.T) {
	r, _ := newResolver(t)
	lid := types.NewJID("99887766", types.HiddenUserServer)
	if got := r.Resolve(lid); got != lid {
		t.Fatalf("expected degraded passthrough, got %s", got)
	}
}

func TestRecordThenResolve(t *testing.T) {
	r, _ := newResolver(t)
	phone := types.NewJID("254700000000", types.DefaultUserServer)
	lid := types.NewJID("99887766", types.HiddenUserServer)

	r.Record(phone, lid)
	if got := r.Resolve(lid); got != phone {
		t.Fatalf("expected %s, got %s", phone, got)
	}
	// Idempotence: resolving an already-canonical id is a no-op.
	if got := r.Resolve(r.Resolve(lid)); got != phone {
		t.Fatalf("expected stable resolution, got %s", got)
	}
}

func TestRecordRejectsWrongServers(t *testing.T) {
	r, _ := newResolver(t)
	phone := types.NewJID("254700000000", types.DefaultUserServer)
	group := types.NewJID("123-456", types.GroupServer)

	r.Record(phone, group)
	if _, ok := r.LIDFor(phone); ok {
		t.Fatalf("group jid must not be recorded as lid")
	}
}

func TestMappingsSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	phone := types.NewJID("254700000000", types.DefaultUserServer)
	lid := types.NewJID("99887766", types.HiddenUserServer)
	NewResolver(st).Record(phone, lid)

	st2, err := store.New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if got := NewResolver(st2).Resolve(lid); got != phone {
		t.Fatalf("expected persisted mapping, got %s", got)
	}
}

func TestLIDForReverseLookup(t *testing.T) {
	r, _ := newResolver(t)
	phone := types.NewJID("254700000000", types.DefaultUserServer)
	lid := types.NewJID("99887766", types.HiddenUserServer)
	r.Record(phone, lid)

	got, ok := r.LIDFor(phone)
	if !ok || got.ToNonAD() != lid {
		t.Fatalf("expected reverse lookup %s, got %s (%v)", lid, got, ok)
	}
}
