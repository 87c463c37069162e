package transport

import (
	"context"

	"go.mau.fi/whatsmeow/types"
)

// ParticipantOp names a group roster mutation.
type ParticipantOp string

const (
	OpAdd     ParticipantOp = "add"
	OpRemove  ParticipantOp = "remove"
	OpPromote ParticipantOp = "promote"
	OpDemote  ParticipantOp = "demote"
)

type Participant struct {
	JID          types.JID
	LID          types.JID
	IsAdmin      bool
	IsSuperAdmin bool
}

type GroupMetadata struct {
	JID          types.JID
	Owner        types.JID
	Subject      string
	Participants []Participant
}

// RoleChange is a normalized group roster event: who did it and what
// moved.
type RoleChange struct {
	Chat     types.JID
	Actor    types.JID
	Promoted []types.JID
	Demoted  []types.JID
	Joined   []types.JID
	Left     []types.JID
}

// Transport is the messaging surface the bot drives. The whatsmeow
// client satisfies it through the adapter in this package; tests use
// an in-memory fake.
type Transport interface {
	Me() types.JID
	SendText(ctx context.Context, chat types.JID, text string) error
	SendMention(ctx context.Context, chat types.JID, text string, mentions []types.JID) error
	DeleteMessage(ctx context.Context, chat, sender types.JID, id string) error
	GroupMetadata(ctx context.Context, chat types.JID) (*GroupMetadata, error)
	UpdateParticipants(ctx context.Context, chat types.JID, users []types.JID, op ParticipantOp) error
}
