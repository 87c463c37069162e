package moderation

import (
	"context"
	"fmt"

	"wasentry/internal/envelope"
	"wasentry/internal/gate"
	"wasentry/internal/modules/audit"
	"wasentry/internal/storage"
	"wasentry/internal/transport"

	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

// Enforcer turns detector decisions into transport side effects:
// deleting the offending message, warning with escalation, and kicking.
// Every side effect is guarded independently so a failed kick never
// suppresses the warning that goes with it.
type Enforcer struct {
	tr            transport.Transport
	gate          *gate.Gate
	warnings      *storage.Store
	audit         *audit.Logger
	logger        *zap.Logger
	kickThreshold int
}

func NewEnforcer(tr transport.Transport, g *gate.Gate, warnings *storage.Store, auditor *audit.Logger, kickThreshold int, logger *zap.Logger) *Enforcer {
	if kickThreshold <= 0 {
		kickThreshold = 3
	}
	return &Enforcer{
		tr:            tr,
		gate:          g,
		warnings:      warnings,
		audit:         auditor,
		logger:        logger,
		kickThreshold: kickThreshold,
	}
}

// Exempt applies the policy shared by all message detectors: only
// group messages from other accounts are moderated, and the group
// creator and admins are never sanctioned. When group metadata cannot
// be fetched the message is skipped rather than moderated on a guess.
func (e *Enforcer) Exempt(ctx context.Context, env envelope.Envelope) bool {
	if !env.IsGroup || env.FromMe {
		return true
	}
	meta, err := e.gate.Metadata(ctx, env.Chat)
	if err != nil {
		e.logger.Warn("moderation skipped, metadata unavailable",
			zap.String("chat", env.Chat.String()), zap.Error(err))
		return true
	}
	candidates := e.gate.Candidates(env.Sender)
	for _, c := range candidates {
		if c == meta.Owner.ToNonAD() {
			return true
		}
	}
	return gate.IsAdminIn(meta, candidates)
}

// Enforce realizes a decision against the message in env on behalf of
// the named feature.
func (e *Enforcer) Enforce(ctx context.Context, feature string, env envelope.Envelope, d Decision) {
	if !d.Act {
		return
	}

	e.deleteMessage(ctx, env)

	switch d.Action {
	case ActionDelete:
		e.sendWarning(ctx, env, fmt.Sprintf("@%s %s is not allowed here.", env.Sender.User, d.Reason))
	case ActionWarn:
		e.escalate(ctx, feature, env, d)
	case ActionKick:
		e.sendWarning(ctx, env, fmt.Sprintf("@%s removed: %s.", env.Sender.User, d.Reason))
		e.kick(ctx, env.Chat, env.Sender)
	}

	e.audit.Log(ctx, audit.LevelWarn, env.Chat.String(), env.Sender.ToNonAD().String(),
		feature, fmt.Sprintf("%s (%s)", d.Reason, d.Action))
}

func (e *Enforcer) escalate(ctx context.Context, feature string, env envelope.Envelope, d Decision) {
	chatID := env.Chat.String()
	userID := env.Sender.ToNonAD().String()
	count, err := e.warnings.IncrementWarning(ctx, chatID, userID)
	if err != nil {
		e.logger.Error("warning counter update failed",
			zap.String("chat", chatID), zap.String("user", userID), zap.Error(err))
		e.sendWarning(ctx, env, fmt.Sprintf("@%s %s is not allowed here.", env.Sender.User, d.Reason))
		return
	}
	if count >= e.kickThreshold {
		e.sendWarning(ctx, env, fmt.Sprintf("@%s reached %d warnings, removing.", env.Sender.User, count))
		e.kick(ctx, env.Chat, env.Sender)
		if err := e.warnings.ResetWarnings(ctx, chatID, userID); err != nil {
			e.logger.Error("warning reset failed", zap.String("user", userID), zap.Error(err))
		}
		return
	}
	e.sendWarning(ctx, env, fmt.Sprintf("@%s %s. Warning %d/%d.", env.Sender.User, d.Reason, count, e.kickThreshold))
}

func (e *Enforcer) deleteMessage(ctx context.Context, env envelope.Envelope) {
	if err := e.tr.DeleteMessage(ctx, env.Chat, env.Sender, env.ID); err != nil {
		e.logger.Warn("delete failed",
			zap.String("chat", env.Chat.String()), zap.String("id", env.ID), zap.Error(err))
	}
}

func (e *Enforcer) sendWarning(ctx context.Context, env envelope.Envelope, text string) {
	if err := e.tr.SendMention(ctx, env.Chat, text, []types.JID{env.Sender}); err != nil {
		e.logger.Warn("warning send failed", zap.String("chat", env.Chat.String()), zap.Error(err))
	}
}

func (e *Enforcer) kick(ctx context.Context, chat, user types.JID) {
	if err := e.tr.UpdateParticipants(ctx, chat, []types.JID{user.ToNonAD()}, transport.OpRemove); err != nil {
		e.logger.Warn("kick failed",
			zap.String("chat", chat.String()), zap.String("user", user.String()), zap.Error(err))
	}
}
