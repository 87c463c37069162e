package envelope

import (
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// Kind classifies an incoming message for routing.
type Kind int

const (
	KindIgnore Kind = iota
	KindText
	KindMedia
	KindEdit
	KindRevoke
)

// MediaType names the media payload carried by a KindMedia envelope.
type MediaType string

const (
	MediaNone    MediaType = ""
	MediaImage   MediaType = "image"
	MediaVideo   MediaType = "video"
	MediaSticker MediaType = "sticker"
	MediaAudio   MediaType = "audio"
	MediaDoc     MediaType = "document"
)

// Envelope is the transport-independent view of one incoming message.
// Everything downstream of the event handler works on envelopes, never
// on raw protocol structs.
type Envelope struct {
	ID        string
	Chat      types.JID
	Sender    types.JID
	IsGroup   bool
	FromMe    bool
	PushName  string
	Timestamp time.Time

	Kind     Kind
	Text     string
	Media    MediaType
	Mentions []types.JID

	// TargetID is the ID of the message an edit or revoke refers to.
	TargetID string
	// Edited is the replacement text of an edit.
	Edited string

	Raw *waE2E.Message
}

// FromEvent normalizes a whatsmeow message event. Unsupported payloads
// come back as KindIgnore so callers can drop them without inspecting
// the proto.
func FromEvent(evt *events.Message) Envelope {
	env := Envelope{
		ID:        string(evt.Info.ID),
		Chat:      evt.Info.Chat,
		Sender:    evt.Info.Sender.ToNonAD(),
		IsGroup:   evt.Info.IsGroup,
		FromMe:    evt.Info.IsFromMe,
		PushName:  evt.Info.PushName,
		Timestamp: evt.Info.Timestamp,
		Raw:       evt.Message,
	}
	classify(&env, evt.Message)
	return env
}

func classify(env *Envelope, msg *waE2E.Message) {
	if msg == nil {
		return
	}

	if pm := msg.GetProtocolMessage(); pm != nil {
		switch pm.GetType() {
		case waE2E.ProtocolMessage_REVOKE:
			env.Kind = KindRevoke
			env.TargetID = pm.GetKey().GetID()
		case waE2E.ProtocolMessage_MESSAGE_EDIT:
			env.Kind = KindEdit
			env.TargetID = pm.GetKey().GetID()
			env.Edited = Text(pm.GetEditedMessage())
		}
		return
	}

	switch {
	case msg.GetStickerMessage() != nil:
		env.Kind = KindMedia
		env.Media = MediaSticker
	case msg.GetImageMessage() != nil:
		env.Kind = KindMedia
		env.Media = MediaImage
		env.Text = msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage() != nil:
		env.Kind = KindMedia
		env.Media = MediaVideo
		env.Text = msg.GetVideoMessage().GetCaption()
	case msg.GetAudioMessage() != nil:
		env.Kind = KindMedia
		env.Media = MediaAudio
	case msg.GetDocumentMessage() != nil:
		env.Kind = KindMedia
		env.Media = MediaDoc
		env.Text = msg.GetDocumentMessage().GetCaption()
	default:
		if text := Text(msg); text != "" {
			env.Kind = KindText
			env.Text = text
		}
	}
	env.Mentions = mentions(msg)
}

// Text extracts the human-readable text of a message, covering plain
// conversations, extended text, and media captions.
func Text(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if t := msg.GetConversation(); t != "" {
		return t
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if img := msg.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		return vid.GetCaption()
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		return doc.GetCaption()
	}
	return ""
}

func mentions(msg *waE2E.Message) []types.JID {
	var ci *waE2E.ContextInfo
	switch {
	case msg.GetExtendedTextMessage() != nil:
		ci = msg.GetExtendedTextMessage().GetContextInfo()
	case msg.GetImageMessage() != nil:
		ci = msg.GetImageMessage().GetContextInfo()
	case msg.GetVideoMessage() != nil:
		ci = msg.GetVideoMessage().GetContextInfo()
	case msg.GetStickerMessage() != nil:
		ci = msg.GetStickerMessage().GetContextInfo()
	}
	if ci == nil {
		return nil
	}
	out := make([]types.JID, 0, len(ci.GetMentionedJID()))
	for _, raw := range ci.GetMentionedJID() {
		jid, err := types.ParseJID(raw)
		if err != nil {
			continue
		}
		out = append(out, jid)
	}
	return out
}
