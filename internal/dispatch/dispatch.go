package dispatch

import (
	"context"
	"math/rand"
	"strings"

	"wasentry/internal/envelope"
	"wasentry/internal/gate"
	"wasentry/internal/identity"
	"wasentry/internal/store"
	"wasentry/internal/transport"

	"go.uber.org/zap"
)

// PrefixNone disables the command prefix; commands are matched as bare
// first-word keywords.
const PrefixNone = "none"

// Handler runs a matched command. args are the whitespace-split
// arguments after the command token; raw is the same remainder with
// original casing preserved.
type Handler func(ctx context.Context, env envelope.Envelope, args []string, raw string) error

type Command struct {
	Name          string
	Aliases       []string
	Help          string
	RequiresAdmin bool
	RequiresOwner bool
	Run           Handler
}

// Dispatcher routes normalized messages to exactly one of: a command
// handler, or the passive-detector fallback. Matching is by exact
// token so overlapping names like "anti" and "antidemote" can never
// shadow each other.
type Dispatcher struct {
	store  *store.Store
	gate   *gate.Gate
	ids    *identity.Resolver
	tr     transport.Transport
	logger *zap.Logger

	defaultPrefix string
	byToken       map[string]*Command
	ordered       []*Command
	fallback      func(context.Context, envelope.Envelope)
}

func New(st *store.Store, g *gate.Gate, ids *identity.Resolver, tr transport.Transport, defaultPrefix string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:         st,
		gate:          g,
		ids:           ids,
		tr:            tr,
		logger:        logger,
		defaultPrefix: defaultPrefix,
		byToken:       make(map[string]*Command),
	}
}

// Register adds a command under its name and aliases. The table is
// built once at startup; duplicate tokens panic.
func (d *Dispatcher) Register(cmd Command) {
	c := cmd
	tokens := append([]string{c.Name}, c.Aliases...)
	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		if _, dup := d.byToken[tok]; dup {
			panic("dispatch: duplicate command token " + tok)
		}
		d.byToken[tok] = &c
	}
	d.ordered = append(d.ordered, &c)
}

// SetFallback installs the passive-detector chain run when no command
// matches.
func (d *Dispatcher) SetFallback(fn func(context.Context, envelope.Envelope)) {
	d.fallback = fn
}

// Commands returns the registration table in registration order.
func (d *Dispatcher) Commands() []*Command {
	return d.ordered
}

// Prefix returns the currently effective prefix ("" in bare-keyword
// mode).
func (d *Dispatcher) Prefix() string {
	p := d.store.Prefix(d.defaultPrefix)
	if p == PrefixNone {
		return ""
	}
	return p
}

// Dispatch routes one envelope. Banned senders are dropped before any
// routing, with an occasional notice rather than a reply per message.
func (d *Dispatcher) Dispatch(ctx context.Context, env envelope.Envelope) {
	token, args, raw, isCommand := d.match(env.Text)

	if d.senderBanned(env) && token != "unban" {
		if rand.Intn(20) == 0 {
			d.reply(ctx, env, "You are banned from using this bot.")
		}
		return
	}

	if !isCommand {
		d.runFallback(ctx, env)
		return
	}
	cmd, ok := d.byToken[token]
	if !ok {
		d.runFallback(ctx, env)
		return
	}
	d.invoke(ctx, env, cmd, args, raw)
}

// match splits text into (token, args, raw remainder) under the
// current prefix. In bare-keyword mode the first word must be a
// registered token exactly; there is no substring matching in either
// mode.
func (d *Dispatcher) match(text string) (token string, args []string, raw string, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil, "", false
	}

	prefix := d.Prefix()
	if prefix != "" {
		if !strings.HasPrefix(text, prefix) {
			return "", nil, "", false
		}
		text = strings.TrimSpace(text[len(prefix):])
		if text == "" {
			return "", nil, "", false
		}
	}

	head, rest, _ := strings.Cut(text, " ")
	token = strings.ToLower(head)
	if prefix == "" {
		if _, registered := d.byToken[token]; !registered {
			return "", nil, "", false
		}
	}
	raw = strings.TrimSpace(rest)
	args = strings.Fields(strings.ToLower(raw))
	return token, args, raw, true
}

func (d *Dispatcher) invoke(ctx context.Context, env envelope.Envelope, cmd *Command, args []string, raw string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("command panicked",
				zap.String("command", cmd.Name), zap.Any("panic", r))
			d.reply(ctx, env, "Something went wrong running that command.")
		}
	}()

	if cmd.RequiresAdmin {
		if !env.IsGroup {
			d.reply(ctx, env, "This command only works in groups.")
			return
		}
		if !d.gate.BotIsAdmin(ctx, env.Chat) {
			d.reply(ctx, env, "I need to be a group admin for that.")
			return
		}
		if !d.gate.IsOwnerOrSudo(env.FromMe, env.Sender) && !d.gate.IsGroupAdmin(ctx, env.Chat, env.Sender) {
			d.reply(ctx, env, "Only group admins can use this command.")
			return
		}
	}
	if cmd.RequiresOwner && !d.gate.IsOwnerOrSudo(env.FromMe, env.Sender) {
		d.reply(ctx, env, "Only the bot owner can use this command.")
		return
	}

	if err := cmd.Run(ctx, env, args, raw); err != nil {
		d.logger.Error("command failed",
			zap.String("command", cmd.Name), zap.String("chat", env.Chat.String()), zap.Error(err))
		d.reply(ctx, env, "Command failed: "+err.Error())
	}
}

func (d *Dispatcher) runFallback(ctx context.Context, env envelope.Envelope) {
	if d.fallback != nil {
		d.fallback(ctx, env)
	}
}

func (d *Dispatcher) senderBanned(env envelope.Envelope) bool {
	if env.FromMe {
		return false
	}
	resolved := d.ids.Resolve(env.Sender).ToNonAD()
	return d.store.IsBanned(resolved.User) || d.store.IsBanned(env.Sender.ToNonAD().User)
}

func (d *Dispatcher) reply(ctx context.Context, env envelope.Envelope, text string) {
	if err := d.tr.SendText(ctx, env.Chat, text); err != nil {
		d.logger.Warn("reply failed", zap.String("chat", env.Chat.String()), zap.Error(err))
	}
}
