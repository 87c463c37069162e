package chatbot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wasentry/internal/envelope"
	"wasentry/internal/store"
	"wasentry/internal/transport"

	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

type fakeTransport struct {
	texts []string
}

func (f *fakeTransport) Me() types.JID { return types.NewJID("254799999999", types.DefaultUserServer) }
func (f *fakeTransport) SendText(_ context.Context, _ types.JID, text string) error {
	f.texts = append(f.texts, text)
	return nil
}
func (f *fakeTransport) SendMention(context.Context, types.JID, string, []types.JID) error {
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

func dmEnv(text string) envelope.Envelope {
	sender := types.NewJID("254700000000", types.DefaultUserServer)
	return envelope.Envelope{
		ID:     "M1",
		Chat:   sender,
		Sender: sender,
		Kind:   envelope.KindText,
		Text:   text,
	}
}

func TestRepliesToDirectMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(apiResponse{Reply: "echo: " + req.Message})
	}))
	defer server.Close()

	st, err := store.New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	tr := &fakeTransport{}
	m := New(st, tr, server.URL, 5*time.Second, 1, zap.NewNop())
	m.SetEnabled(true)

	m.Handle(context.Background(), dmEnv("hi there"))
	if len(tr.texts) != 1 || tr.texts[0] != "echo: hi there" {
		t.Fatalf("unexpected reply: %v", tr.texts)
	}
}

func TestDisabledAndGroupMessagesIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(apiResponse{Reply: "nope"})
	}))
	defer server.Close()

	st, err := store.New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	tr := &fakeTransport{}
	m := New(st, tr, server.URL, 5*time.Second, 1, zap.NewNop())

	m.Handle(context.Background(), dmEnv("hi"))
	if len(tr.texts) != 0 {
		t.Fatalf("disabled chatbot must not reply")
	}

	m.SetEnabled(true)
	group := dmEnv("hi")
	group.IsGroup = true
	group.Chat = types.NewJID("g1", types.GroupServer)
	m.Handle(context.Background(), group)
	if len(tr.texts) != 0 {
		t.Fatalf("group messages must not reach the chatbot")
	}
}

func TestRetriesOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(apiResponse{Reply: "recovered"})
	}))
	defer server.Close()

	st, err := store.New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	tr := &fakeTransport{}
	m := New(st, tr, server.URL, 5*time.Second, 3, zap.NewNop())
	m.SetEnabled(true)

	m.Handle(context.Background(), dmEnv("hi"))
	if attempts != 2 {
		t.Fatalf("expected retry, got %d attempts", attempts)
	}
	if len(tr.texts) != 1 || tr.texts[0] != "recovered" {
		t.Fatalf("unexpected reply: %v", tr.texts)
	}
}
