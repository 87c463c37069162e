package transport

import (
	"context"
	"fmt"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

// Client adapts a whatsmeow client to the Transport interface.
type Client struct {
	wa *whatsmeow.Client
}

func NewClient(wa *whatsmeow.Client) *Client {
	return &Client{wa: wa}
}

func (c *Client) Me() types.JID {
	if c.wa.Store.ID == nil {
		return types.EmptyJID
	}
	return c.wa.Store.ID.ToNonAD()
}

func (c *Client) SendText(ctx context.Context, chat types.JID, text string) error {
	_, err := c.wa.SendMessage(ctx, chat, &waE2E.Message{
		Conversation: proto.String(text),
	})
	return err
}

func (c *Client) SendMention(ctx context.Context, chat types.JID, text string, mentions []types.JID) error {
	mentioned := make([]string, 0, len(mentions))
	for _, jid := range mentions {
		mentioned = append(mentioned, jid.ToNonAD().String())
	}
	_, err := c.wa.SendMessage(ctx, chat, &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				MentionedJID: mentioned,
			},
		},
	})
	return err
}

func (c *Client) SendMessage(ctx context.Context, chat types.JID, msg *waE2E.Message) error {
	_, err := c.wa.SendMessage(ctx, chat, msg)
	return err
}

// DeleteMessage revokes a message. Revoking another member's message
// requires the bot to hold group admin; the server rejects it
// otherwise.
func (c *Client) DeleteMessage(ctx context.Context, chat, sender types.JID, id string) error {
	revoke := c.wa.BuildRevoke(chat, sender, types.MessageID(id))
	_, err := c.wa.SendMessage(ctx, chat, revoke)
	return err
}

func (c *Client) GroupMetadata(ctx context.Context, chat types.JID) (*GroupMetadata, error) {
	info, err := c.wa.GetGroupInfo(ctx, chat)
	if err != nil {
		return nil, fmt.Errorf("group info %s: %w", chat, err)
	}
	meta := &GroupMetadata{
		JID:     info.JID,
		Owner:   info.OwnerJID,
		Subject: info.Name,
	}
	for _, p := range info.Participants {
		meta.Participants = append(meta.Participants, Participant{
			JID:          p.JID,
			LID:          p.LID,
			IsAdmin:      p.IsAdmin,
			IsSuperAdmin: p.IsSuperAdmin,
		})
	}
	return meta, nil
}

func (c *Client) UpdateParticipants(ctx context.Context, chat types.JID, users []types.JID, op ParticipantOp) error {
	var change whatsmeow.ParticipantChange
	switch op {
	case OpAdd:
		change = whatsmeow.ParticipantChangeAdd
	case OpRemove:
		change = whatsmeow.ParticipantChangeRemove
	case OpPromote:
		change = whatsmeow.ParticipantChangePromote
	case OpDemote:
		change = whatsmeow.ParticipantChangeDemote
	default:
		return fmt.Errorf("unknown participant op %q", op)
	}
	_, err := c.wa.UpdateGroupParticipants(ctx, chat, users, change)
	return err
}
