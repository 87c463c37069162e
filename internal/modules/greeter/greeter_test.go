package greeter

import (
	"context"
	"strings"
	"testing"

	"wasentry/internal/store"
	"wasentry/internal/transport"

	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

type fakeTransport struct {
	mentions []string
}

func (f *fakeTransport) Me() types.JID { return types.NewJID("254799999999", types.DefaultUserServer) }
func (f *fakeTransport) SendText(context.Context, types.JID, string) error {
	return nil
}
func (f *fakeTransport) SendMention(_ context.Context, _ types.JID, text string, _ []types.JID) error {
	f.mentions = append(f.mentions, text)
	return nil
}
func (f *fakeTransport) DeleteMessage(context.Context, types.JID, types.JID, string) error {
	return nil
}
func (f *fakeTransport) GroupMetadata(context.Context, types.JID) (*transport.GroupMetadata, error) {
	return &transport.GroupMetadata{}, nil
}
func (f *fakeTransport) UpdateParticipants(context.Context, types.JID, []types.JID, transport.ParticipantOp) error {
	return nil
}

func newModule(t *testing.T, tr *fakeTransport) *Module {
	t.Helper()
	st, err := store.New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return New(st, tr, zap.NewNop())
}

func TestWelcomeTemplate(t *testing.T) {
	tr := &fakeTransport{}
	m := newModule(t, tr)
	m.Update(FeatureWelcome, "g1@g.us", func(c *Config) {
		c.Enabled = true
		c.Text = "Hey @user, read the rules!"
	})

	member := types.NewJID("254700000000", types.DefaultUserServer)
	m.HandleRoleChange(context.Background(), transport.RoleChange{
		Chat:   types.NewJID("g1", types.GroupServer),
		Joined: []types.JID{member},
	})

	if len(tr.mentions) != 1 {
		t.Fatalf("expected one welcome, got %d", len(tr.mentions))
	}
	if !strings.Contains(tr.mentions[0], "@254700000000") {
		t.Fatalf("template must substitute the member: %s", tr.mentions[0])
	}
}

func TestGoodbyeDisabledByDefault(t *testing.T) {
	tr := &fakeTransport{}
	m := newModule(t, tr)

	m.HandleRoleChange(context.Background(), transport.RoleChange{
		Chat: types.NewJID("g1", types.GroupServer),
		Left: []types.JID{types.NewJID("254700000000", types.DefaultUserServer)},
	})

	if len(tr.mentions) != 0 {
		t.Fatalf("goodbye is off by default")
	}
}
