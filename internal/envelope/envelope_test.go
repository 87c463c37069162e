package envelope

import (
	"testing"
	"time"

	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func event(msg *waE2E.Message) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:    types.NewJID("g1", types.GroupServer),
				Sender:  types.NewJID("254700000000", types.DefaultUserServer),
				IsGroup: true,
			},
			ID:        "M1",
			PushName:  "Alice",
			Timestamp: time.Now(),
		},
		Message: msg,
	}
}

func TestConversationText(t *testing.T) {
	env := FromEvent(event(&waE2E.Message{Conversation: proto.String("hello")}))
	if env.Kind != KindText || env.Text != "hello" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Chat.String() != "g1@g.us" || !env.IsGroup {
		t.Fatalf("chat not carried: %+v", env)
	}
}

func TestExtendedTextWithMentions(t *testing.T) {
	msg := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String("hi @everyone"),
			ContextInfo: &waE2E.ContextInfo{
				MentionedJID: []string{"254711111111@s.whatsapp.net", "garbage"},
			},
		},
	}
	env := FromEvent(event(msg))
	if env.Kind != KindText || env.Text != "hi @everyone" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if len(env.Mentions) != 1 {
		t.Fatalf("expected one parseable mention, got %v", env.Mentions)
	}
}

func TestImageCaption(t *testing.T) {
	msg := &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{Caption: proto.String("look at this")},
	}
	env := FromEvent(event(msg))
	if env.Kind != KindMedia || env.Media != MediaImage {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Text != "look at this" {
		t.Fatalf("caption must surface as text: %+v", env)
	}
}

func TestSticker(t *testing.T) {
	env := FromEvent(event(&waE2E.Message{StickerMessage: &waE2E.StickerMessage{}}))
	if env.Kind != KindMedia || env.Media != MediaSticker {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestRevokeProtocolMessage(t *testing.T) {
	msg := &waE2E.Message{
		ProtocolMessage: &waE2E.ProtocolMessage{
			Type: waE2E.ProtocolMessage_REVOKE.Enum(),
			Key:  &waCommon.MessageKey{ID: proto.String("M9")},
		},
	}
	env := FromEvent(event(msg))
	if env.Kind != KindRevoke || env.TargetID != "M9" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestEditProtocolMessage(t *testing.T) {
	msg := &waE2E.Message{
		ProtocolMessage: &waE2E.ProtocolMessage{
			Type:          waE2E.ProtocolMessage_MESSAGE_EDIT.Enum(),
			Key:           &waCommon.MessageKey{ID: proto.String("M9")},
			EditedMessage: &waE2E.Message{Conversation: proto.String("new text")},
		},
	}
	env := FromEvent(event(msg))
	if env.Kind != KindEdit || env.TargetID != "M9" || env.Edited != "new text" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestUnsupportedPayloadIgnored(t *testing.T) {
	env := FromEvent(event(&waE2E.Message{}))
	if env.Kind != KindIgnore {
		t.Fatalf("empty message must be ignored: %+v", env)
	}
}
