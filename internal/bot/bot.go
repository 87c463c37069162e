package bot

import (
	"context"
	"fmt"
	"time"

	"wasentry/internal/config"
	"wasentry/internal/dispatch"
	"wasentry/internal/envelope"
	"wasentry/internal/gate"
	"wasentry/internal/identity"
	"wasentry/internal/moderation"
	"wasentry/internal/modules/antiflood"
	"wasentry/internal/modules/antilink"
	"wasentry/internal/modules/antimedia"
	"wasentry/internal/modules/antirole"
	"wasentry/internal/modules/antitag"
	"wasentry/internal/modules/antiword"
	"wasentry/internal/modules/audit"
	"wasentry/internal/modules/capture"
	"wasentry/internal/modules/chatbot"
	"wasentry/internal/modules/greeter"
	"wasentry/internal/storage"
	"wasentry/internal/store"
	"wasentry/internal/transport"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

// Bot owns every component and wires transport events into the
// dispatcher and detectors. It is the only place holding mutable
// application state; everything below it takes its dependencies
// explicitly.
type Bot struct {
	cfg    config.Config
	logger *zap.Logger

	tr       transport.Transport
	store    *store.Store
	db       *storage.Store
	ids      *identity.Resolver
	gate     *gate.Gate
	audit    *audit.Logger
	enforcer *moderation.Enforcer
	dispatch *dispatch.Dispatcher

	antilink  *antilink.Module
	antiword  *antiword.Module
	antitag   *antitag.Module
	antimedia *antimedia.Module
	antiflood *antiflood.Module
	antirole  *antirole.Module
	capture   *capture.Module
	chatbot   *chatbot.Module
	greeter   *greeter.Module

	startedAt time.Time
}

func New(cfg config.Config, tr transport.Transport, st *store.Store, db *storage.Store, logger *zap.Logger) *Bot {
	ids := identity.NewResolver(st)
	g := gate.New(tr, ids, st, cfg.OwnerNumber, logger)
	owner := types.NewJID(cfg.OwnerNumber, types.DefaultUserServer)

	auditor := audit.NewLogger(db, logger)
	auditor.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
		if entry.Level == audit.LevelInfo {
			return
		}
		text := fmt.Sprintf("⚠️ %s in %s\nUser: %s\n%s", entry.Event, entry.ChatID, entry.UserID, entry.Details)
		if err := tr.SendText(ctx, owner, text); err != nil {
			logger.Warn("audit notice failed", zap.Error(err))
		}
	})

	enf := moderation.NewEnforcer(tr, g, db, auditor, cfg.Warnings.KickThreshold, logger)
	d := dispatch.New(st, g, ids, tr, cfg.DefaultPrefix, logger)

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		tr:        tr,
		store:     st,
		db:        db,
		ids:       ids,
		gate:      g,
		audit:     auditor,
		enforcer:  enf,
		dispatch:  d,
		antilink:  antilink.New(st, enf),
		antiword:  antiword.New(st, enf),
		antitag:   antitag.New(st, enf),
		antimedia: antimedia.New(st, g, enf),
		antiflood: antiflood.New(st, enf, cfg.Flood.Messages, time.Duration(cfg.Flood.WindowSeconds)*time.Second),
		antirole:  antirole.New(st, tr, g, logger),
		capture:   capture.New(st, tr, owner, cfg.Capture.MaxMessages, logger),
		chatbot: chatbot.New(st, tr, cfg.Chatbot.Endpoint,
			time.Duration(cfg.Chatbot.TimeoutSeconds)*time.Second, cfg.Chatbot.Retries, logger),
		greeter:   greeter.New(st, tr, logger),
		startedAt: time.Now(),
	}

	b.registerCommands()
	d.SetFallback(b.runDetectors)
	return b
}

// HandleEvent is the single entry point hooked into the whatsmeow
// event stream.
func (b *Bot) HandleEvent(evt interface{}) {
	ctx := context.Background()
	switch e := evt.(type) {
	case *events.Message:
		b.handleMessage(ctx, envelope.FromEvent(e))
	case *events.GroupInfo:
		b.handleGroupInfo(ctx, e)
	}
}

func (b *Bot) handleMessage(ctx context.Context, env envelope.Envelope) {
	env.Sender = b.ids.Resolve(env.Sender).ToNonAD()

	switch env.Kind {
	case envelope.KindEdit:
		b.capture.HandleEdit(ctx, env)
	case envelope.KindRevoke:
		b.capture.HandleRevoke(ctx, env)
	case envelope.KindText, envelope.KindMedia:
		b.capture.Record(env)
		b.dispatch.Dispatch(ctx, env)
	}
}

func (b *Bot) handleGroupInfo(ctx context.Context, e *events.GroupInfo) {
	rc := transport.RoleChange{
		Chat:     e.JID,
		Promoted: e.Promote,
		Demoted:  e.Demote,
		Joined:   e.Join,
		Left:     e.Leave,
	}
	if e.Sender != nil {
		rc.Actor = e.Sender.ToNonAD()
	}
	b.antirole.HandleRoleChange(ctx, rc)
	b.greeter.HandleRoleChange(ctx, rc)
}

// runDetectors is the dispatcher fallback: group messages pass through
// the moderation detectors, direct messages go to the chatbot.
func (b *Bot) runDetectors(ctx context.Context, env envelope.Envelope) {
	if !env.IsGroup {
		b.chatbot.Handle(ctx, env)
		return
	}
	b.antilink.Handle(ctx, env)
	b.antiword.Handle(ctx, env)
	b.antitag.Handle(ctx, env)
	b.antimedia.Handle(ctx, env)
	b.antiflood.Handle(ctx, env)
}

// Dispatcher exposes the command router, mainly for tests.
func (b *Bot) Dispatcher() *dispatch.Dispatcher {
	return b.dispatch
}
