package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wasentry/internal/dispatch"
	"wasentry/internal/envelope"
	"wasentry/internal/moderation"
	"wasentry/internal/modules/antiflood"
	"wasentry/internal/modules/antilink"
	"wasentry/internal/modules/antimedia"
	"wasentry/internal/modules/antirole"
	"wasentry/internal/modules/antitag"
	"wasentry/internal/modules/antiword"
	"wasentry/internal/modules/capture"
	"wasentry/internal/modules/greeter"
	"wasentry/internal/transport"

	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

func (b *Bot) registerCommands() {
	d := b.dispatch

	// Moderation feature toggles.
	d.Register(dispatch.Command{
		Name: "antilink", RequiresAdmin: true,
		Help: "antilink on|off|delete|warn|kick|exclude|include",
		Run:  b.cmdAntilink,
	})
	d.Register(dispatch.Command{
		Name: "antibadword", Aliases: []string{"antiword"}, RequiresAdmin: true,
		Help: "antibadword on|off|delete|warn|kick|add <word>|del <word>|list",
		Run:  b.cmdAntiword,
	})
	d.Register(dispatch.Command{
		Name: "antitag", RequiresAdmin: true,
		Help: "antitag on|off|delete|warn|kick",
		Run: b.featureCommand(antitag.FeatureTag, func(chat string, apply func(*moderation.BaseConfig)) {
			b.antitag.Update(antitag.FeatureTag, chat, func(c *antitag.Config) { apply(&c.BaseConfig) })
		}),
	})
	d.Register(dispatch.Command{
		Name: "antigroupmention", Aliases: []string{"antimention"}, RequiresAdmin: true,
		Help: "antigroupmention on|off|delete|warn|kick",
		Run: b.featureCommand(antitag.FeatureMention, func(chat string, apply func(*moderation.BaseConfig)) {
			b.antitag.Update(antitag.FeatureMention, chat, func(c *antitag.Config) { apply(&c.BaseConfig) })
		}),
	})
	d.Register(dispatch.Command{
		Name: "antisticker", RequiresAdmin: true,
		Help: "antisticker on|off|delete|warn|kick",
		Run: b.featureCommand(antimedia.FeatureSticker, func(chat string, apply func(*moderation.BaseConfig)) {
			b.antimedia.Update(antimedia.FeatureSticker, chat, func(c *antimedia.Config) { apply(&c.BaseConfig) })
		}),
	})
	d.Register(dispatch.Command{
		Name: "antiphoto", RequiresAdmin: true,
		Help: "antiphoto on|off|delete|warn|kick",
		Run: b.featureCommand(antimedia.FeaturePhoto, func(chat string, apply func(*moderation.BaseConfig)) {
			b.antimedia.Update(antimedia.FeaturePhoto, chat, func(c *antimedia.Config) { apply(&c.BaseConfig) })
		}),
	})
	d.Register(dispatch.Command{
		Name: "antiflood", RequiresAdmin: true,
		Help: "antiflood on|off|delete|warn|kick",
		Run: b.featureCommand(antiflood.Feature, func(chat string, apply func(*moderation.BaseConfig)) {
			b.antiflood.Update(chat, func(c *antiflood.Config) { apply(&c.BaseConfig) })
		}),
	})
	d.Register(dispatch.Command{
		Name: "antipromote", RequiresAdmin: true,
		Help: "antipromote on|off|revert|kick",
		Run:  b.roleCommand(antirole.FeaturePromote),
	})
	d.Register(dispatch.Command{
		Name: "antidemote", RequiresAdmin: true,
		Help: "antidemote on|off|revert|kick",
		Run:  b.roleCommand(antirole.FeatureDemote),
	})
	d.Register(dispatch.Command{
		Name: "antiedit", RequiresAdmin: true,
		Help: "antiedit on|off|owner|chat|both",
		Run:  b.captureCommand(capture.FeatureEdit),
	})
	d.Register(dispatch.Command{
		Name: "antidelete", RequiresAdmin: true,
		Help: "antidelete on|off|owner|chat|both",
		Run:  b.captureCommand(capture.FeatureDelete),
	})
	d.Register(dispatch.Command{
		Name: "welcome", RequiresAdmin: true,
		Help: "welcome on|off|set <text>",
		Run:  b.greeterCommand(greeter.FeatureWelcome),
	})
	d.Register(dispatch.Command{
		Name: "goodbye", RequiresAdmin: true,
		Help: "goodbye on|off|set <text>",
		Run:  b.greeterCommand(greeter.FeatureGoodbye),
	})
	d.Register(dispatch.Command{
		Name: "reset", RequiresAdmin: true,
		Help: "reset <feature>",
		Run:  b.cmdReset,
	})

	// Owner surface.
	d.Register(dispatch.Command{
		Name: "setprefix", RequiresOwner: true,
		Help: "setprefix <1-3 chars|none>",
		Run:  b.cmdSetPrefix,
	})
	d.Register(dispatch.Command{
		Name: "sudo", RequiresOwner: true,
		Help: "sudo add|del|list <number>",
		Run:  b.cmdSudo,
	})
	d.Register(dispatch.Command{
		Name: "ban", RequiresOwner: true,
		Help: "ban <number>",
		Run:  b.cmdBan,
	})
	d.Register(dispatch.Command{
		Name: "unban", RequiresOwner: true,
		Help: "unban <number>",
		Run:  b.cmdUnban,
	})
	d.Register(dispatch.Command{
		Name: "chatbot", RequiresOwner: true,
		Help: "chatbot on|off",
		Run:  b.cmdChatbot,
	})
	d.Register(dispatch.Command{
		Name: "audit", RequiresOwner: true,
		Help: "audit [hours]",
		Run:  b.cmdAudit,
	})

	// Group helpers.
	d.Register(dispatch.Command{
		Name: "kick", RequiresAdmin: true,
		Help: "kick @user",
		Run:  b.participantCommand("kick", "removed"),
	})
	d.Register(dispatch.Command{
		Name: "promote", RequiresAdmin: true,
		Help: "promote @user",
		Run:  b.participantCommand("promote", "promoted"),
	})
	d.Register(dispatch.Command{
		Name: "demote", RequiresAdmin: true,
		Help: "demote @user",
		Run:  b.participantCommand("demote", "demoted"),
	})
	d.Register(dispatch.Command{
		Name: "tagall", RequiresAdmin: true,
		Help: "tagall [message]",
		Run:  b.cmdTagall,
	})
	d.Register(dispatch.Command{
		Name: "hidetag", RequiresAdmin: true,
		Help: "hidetag <message>",
		Run:  b.cmdHidetag,
	})

	// Open surface.
	d.Register(dispatch.Command{Name: "ping", Help: "ping", Run: b.cmdPing})
	d.Register(dispatch.Command{Name: "help", Aliases: []string{"menu"}, Help: "help", Run: b.cmdHelp})
	d.Register(dispatch.Command{Name: "stats", Help: "stats", Run: b.cmdStats})
}

func (b *Bot) reply(ctx context.Context, env envelope.Envelope, text string) {
	if err := b.tr.SendText(ctx, env.Chat, text); err != nil {
		b.logger.Warn("reply failed", zap.String("chat", env.Chat.String()), zap.Error(err))
	}
}

// featureCommand builds the on/off/delete/warn/kick handler shared by
// the plain detector features.
func (b *Bot) featureCommand(feature string, update func(chat string, apply func(*moderation.BaseConfig))) dispatch.Handler {
	return func(ctx context.Context, env envelope.Envelope, args []string, _ string) error {
		if len(args) == 0 {
			b.reply(ctx, env, "Usage: "+feature+" on|off|delete|warn|kick")
			return nil
		}
		chat := env.Chat.String()
		switch args[0] {
		case "on":
			update(chat, func(c *moderation.BaseConfig) { c.Enabled = true })
			b.reply(ctx, env, feature+" enabled.")
		case "off":
			update(chat, func(c *moderation.BaseConfig) { c.Enabled = false })
			b.reply(ctx, env, feature+" disabled.")
		case "delete", "warn", "kick":
			action := moderation.Action(args[0])
			update(chat, func(c *moderation.BaseConfig) {
				c.Enabled = true
				c.Action = action
			})
			b.reply(ctx, env, fmt.Sprintf("%s action set to %s.", feature, action))
		default:
			b.reply(ctx, env, "Usage: "+feature+" on|off|delete|warn|kick")
		}
		return nil
	}
}

func (b *Bot) cmdAntilink(ctx context.Context, env envelope.Envelope, args []string, raw string) error {
	chat := env.Chat.String()
	if len(args) > 0 {
		switch args[0] {
		case "exclude":
			b.antilink.Update(chat, func(c *antilink.Config) { c.Excluded = true })
			b.reply(ctx, env, "This chat is now excluded from antilink.")
			return nil
		case "include":
			b.antilink.Update(chat, func(c *antilink.Config) { c.Excluded = false })
			b.reply(ctx, env, "This chat is no longer excluded from antilink.")
			return nil
		}
	}
	h := b.featureCommand(antilink.Feature, func(chat string, apply func(*moderation.BaseConfig)) {
		b.antilink.Update(chat, func(c *antilink.Config) { apply(&c.BaseConfig) })
	})
	return h(ctx, env, args, raw)
}

func (b *Bot) cmdAntiword(ctx context.Context, env envelope.Envelope, args []string, raw string) error {
	chat := env.Chat.String()
	if len(args) > 0 {
		switch args[0] {
		case "add":
			word := restArgs(raw)
			if word == "" {
				b.reply(ctx, env, "Usage: antibadword add <word>")
				return nil
			}
			if b.antiword.AddWord(chat, word) {
				b.reply(ctx, env, "Word added.")
			} else {
				b.reply(ctx, env, "That word is already on the list.")
			}
			return nil
		case "del", "remove":
			word := restArgs(raw)
			if b.antiword.RemoveWord(chat, word) {
				b.reply(ctx, env, "Word removed.")
			} else {
				b.reply(ctx, env, "That word is not on the list.")
			}
			return nil
		case "list":
			words := b.antiword.Config(chat).Words
			if len(words) == 0 {
				b.reply(ctx, env, "No words configured.")
			} else {
				b.reply(ctx, env, "Forbidden words: "+strings.Join(words, ", "))
			}
			return nil
		}
	}
	h := b.featureCommand(antiword.Feature, func(chat string, apply func(*moderation.BaseConfig)) {
		b.antiword.Update(chat, func(c *antiword.Config) { apply(&c.BaseConfig) })
	})
	return h(ctx, env, args, raw)
}

func (b *Bot) roleCommand(feature string) dispatch.Handler {
	return func(ctx context.Context, env envelope.Envelope, args []string, _ string) error {
		if len(args) == 0 {
			b.reply(ctx, env, "Usage: "+feature+" on|off|revert|kick")
			return nil
		}
		chat := env.Chat.String()
		switch args[0] {
		case "on":
			b.antirole.Update(feature, chat, func(c *antirole.Config) { c.Enabled = true })
			b.reply(ctx, env, feature+" enabled.")
		case "off":
			b.antirole.Update(feature, chat, func(c *antirole.Config) { c.Enabled = false })
			b.reply(ctx, env, feature+" disabled.")
		case "revert", "kick":
			mode := antirole.Mode(args[0])
			b.antirole.Update(feature, chat, func(c *antirole.Config) {
				c.Enabled = true
				c.Mode = mode
			})
			b.reply(ctx, env, fmt.Sprintf("%s mode set to %s.", feature, mode))
		default:
			b.reply(ctx, env, "Usage: "+feature+" on|off|revert|kick")
		}
		return nil
	}
}

func (b *Bot) captureCommand(feature string) dispatch.Handler {
	return func(ctx context.Context, env envelope.Envelope, args []string, _ string) error {
		if len(args) == 0 {
			b.reply(ctx, env, "Usage: "+feature+" on|off|owner|chat|both")
			return nil
		}
		chat := env.Chat.String()
		switch args[0] {
		case "on":
			b.capture.Update(feature, chat, func(c *capture.Config) { c.Enabled = true })
			b.reply(ctx, env, feature+" enabled.")
		case "off":
			b.capture.Update(feature, chat, func(c *capture.Config) { c.Enabled = false })
			b.reply(ctx, env, feature+" disabled.")
		case "owner", "chat", "both":
			target := capture.Notify(args[0])
			b.capture.Update(feature, chat, func(c *capture.Config) {
				c.Enabled = true
				c.Notify = target
			})
			b.reply(ctx, env, fmt.Sprintf("%s reports go to %s.", feature, target))
		default:
			b.reply(ctx, env, "Usage: "+feature+" on|off|owner|chat|both")
		}
		return nil
	}
}

func (b *Bot) greeterCommand(feature string) dispatch.Handler {
	return func(ctx context.Context, env envelope.Envelope, args []string, raw string) error {
		if len(args) == 0 {
			b.reply(ctx, env, "Usage: "+feature+" on|off|set <text>")
			return nil
		}
		chat := env.Chat.String()
		switch args[0] {
		case "on":
			b.greeter.Update(feature, chat, func(c *greeter.Config) { c.Enabled = true })
			b.reply(ctx, env, feature+" enabled.")
		case "off":
			b.greeter.Update(feature, chat, func(c *greeter.Config) { c.Enabled = false })
			b.reply(ctx, env, feature+" disabled.")
		case "set":
			text := restArgs(raw)
			if text == "" {
				b.reply(ctx, env, "Usage: "+feature+" set <text>")
				return nil
			}
			b.greeter.Update(feature, chat, func(c *greeter.Config) {
				c.Enabled = true
				c.Text = text
			})
			b.reply(ctx, env, feature+" message updated.")
		default:
			b.reply(ctx, env, "Usage: "+feature+" on|off|set <text>")
		}
		return nil
	}
}

func (b *Bot) cmdReset(ctx context.Context, env envelope.Envelope, args []string, _ string) error {
	if len(args) == 0 {
		b.reply(ctx, env, "Usage: reset <feature>")
		return nil
	}
	chat := env.Chat.String()
	resets := map[string]func(){
		"antilink":         func() { b.antilink.Reset(chat) },
		"antibadword":      func() { b.antiword.Reset(chat) },
		"antiword":         func() { b.antiword.Reset(chat) },
		"antitag":          func() { b.antitag.Reset(antitag.FeatureTag, chat) },
		"antigroupmention": func() { b.antitag.Reset(antitag.FeatureMention, chat) },
		"antisticker":      func() { b.antimedia.Reset(antimedia.FeatureSticker, chat) },
		"antiphoto":        func() { b.antimedia.Reset(antimedia.FeaturePhoto, chat) },
		"antiflood":        func() { b.antiflood.Reset(chat) },
		"antipromote":      func() { b.antirole.Reset(antirole.FeaturePromote, chat) },
		"antidemote":       func() { b.antirole.Reset(antirole.FeatureDemote, chat) },
		"antiedit":         func() { b.capture.Reset(capture.FeatureEdit, chat) },
		"antidelete":       func() { b.capture.Reset(capture.FeatureDelete, chat) },
		"welcome":          func() { b.greeter.Reset(greeter.FeatureWelcome, chat) },
		"goodbye":          func() { b.greeter.Reset(greeter.FeatureGoodbye, chat) },
	}
	reset, ok := resets[args[0]]
	if !ok {
		b.reply(ctx, env, "Unknown feature: "+args[0])
		return nil
	}
	reset()
	b.reply(ctx, env, args[0]+" settings reset for this chat.")
	return nil
}

func (b *Bot) cmdSetPrefix(ctx context.Context, env envelope.Envelope, args []string, _ string) error {
	if len(args) == 0 {
		b.reply(ctx, env, "Usage: setprefix <1-3 chars|none>")
		return nil
	}
	p := args[0]
	if p != dispatch.PrefixNone && (len(p) < 1 || len(p) > 3) {
		b.reply(ctx, env, "Prefix must be 1-3 characters, or \"none\".")
		return nil
	}
	b.store.SetPrefix(p)
	if p == dispatch.PrefixNone {
		b.reply(ctx, env, "Prefix disabled; commands match as bare keywords.")
	} else {
		b.reply(ctx, env, "Prefix set to "+p)
	}
	return nil
}

func (b *Bot) cmdSudo(ctx context.Context, env envelope.Envelope, args []string, _ string) error {
	if len(args) == 0 {
		b.reply(ctx, env, "Usage: sudo add|del|list <number>")
		return nil
	}
	switch args[0] {
	case "list":
		list := b.store.SudoList()
		if len(list) == 0 {
			b.reply(ctx, env, "Sudo list is empty.")
		} else {
			b.reply(ctx, env, "Sudo users: "+strings.Join(list, ", "))
		}
		return nil
	case "add", "del", "remove":
		if !b.gate.IsOwner(env.Sender) && !env.FromMe {
			b.reply(ctx, env, "Only the true owner can change the sudo list.")
			return nil
		}
		number := targetNumber(env, args[1:])
		if number == "" {
			b.reply(ctx, env, "Give a number or mention a user.")
			return nil
		}
		if args[0] == "add" {
			if b.store.AddSudo(number) {
				b.reply(ctx, env, number+" added to sudo.")
			} else {
				b.reply(ctx, env, number+" is already sudo.")
			}
			return nil
		}
		if number == b.cfg.OwnerNumber {
			b.reply(ctx, env, "The owner cannot be removed.")
			return nil
		}
		if b.store.RemoveSudo(number) {
			b.reply(ctx, env, number+" removed from sudo.")
		} else {
			b.reply(ctx, env, number+" is not sudo.")
		}
		return nil
	default:
		b.reply(ctx, env, "Usage: sudo add|del|list <number>")
		return nil
	}
}

func (b *Bot) cmdBan(ctx context.Context, env envelope.Envelope, args []string, _ string) error {
	number := targetNumber(env, args)
	if number == "" {
		b.reply(ctx, env, "Give a number or mention a user.")
		return nil
	}
	if number == b.cfg.OwnerNumber {
		b.reply(ctx, env, "The owner cannot be banned.")
		return nil
	}
	if b.store.Ban(number) {
		b.reply(ctx, env, number+" banned from using the bot.")
	} else {
		b.reply(ctx, env, number+" is already banned.")
	}
	return nil
}

func (b *Bot) cmdUnban(ctx context.Context, env envelope.Envelope, args []string, _ string) error {
	number := targetNumber(env, args)
	if number == "" {
		b.reply(ctx, env, "Give a number or mention a user.")
		return nil
	}
	if b.store.Unban(number) {
		b.reply(ctx, env, number+" unbanned.")
	} else {
		b.reply(ctx, env, number+" is not banned.")
	}
	return nil
}

func (b *Bot) cmdChatbot(ctx context.Context, env envelope.Envelope, args []string, _ string) error {
	if len(args) == 0 {
		b.reply(ctx, env, "Usage: chatbot on|off")
		return nil
	}
	switch args[0] {
	case "on":
		b.chatbot.SetEnabled(true)
		b.reply(ctx, env, "Chatbot enabled for direct messages.")
	case "off":
		b.chatbot.SetEnabled(false)
		b.reply(ctx, env, "Chatbot disabled.")
	default:
		b.reply(ctx, env, "Usage: chatbot on|off")
	}
	return nil
}

func (b *Bot) cmdAudit(ctx context.Context, env envelope.Envelope, args []string, _ string) error {
	hours := 24
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			hours = n
		}
	}
	logs, err := b.db.ListAuditLogs(ctx, env.Chat.String(), time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		b.reply(ctx, env, fmt.Sprintf("No moderation events in the last %dh.", hours))
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Moderation events, last %dh:\n", hours)
	for _, l := range logs {
		fmt.Fprintf(&sb, "• %s [%s] %s — %s\n",
			l.CreatedAt.Format("Jan 2 15:04"), l.Level, l.Event, l.Details)
	}
	b.reply(ctx, env, sb.String())
	return nil
}

func (b *Bot) participantCommand(op, past string) dispatch.Handler {
	return func(ctx context.Context, env envelope.Envelope, args []string, _ string) error {
		target, ok := targetJID(env, args)
		if !ok {
			b.reply(ctx, env, "Mention a user or give their number.")
			return nil
		}
		change := transport.ParticipantOp(op)
		if op == "kick" {
			change = transport.OpRemove
		}
		if err := b.tr.UpdateParticipants(ctx, env.Chat, []types.JID{target}, change); err != nil {
			return fmt.Errorf("%s failed: %w", op, err)
		}
		b.reply(ctx, env, fmt.Sprintf("@%s %s.", target.User, past))
		return nil
	}
}

func (b *Bot) cmdTagall(ctx context.Context, env envelope.Envelope, _ []string, raw string) error {
	meta, err := b.gate.Metadata(ctx, env.Chat)
	if err != nil {
		return err
	}
	header := raw
	if header == "" {
		header = "Attention everyone!"
	}
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	mentions := make([]types.JID, 0, len(meta.Participants))
	for _, p := range meta.Participants {
		jid := p.JID
		if jid.IsEmpty() {
			jid = p.LID
		}
		if jid.IsEmpty() {
			continue
		}
		mentions = append(mentions, jid)
		sb.WriteString("• @")
		sb.WriteString(jid.User)
		sb.WriteString("\n")
	}
	return b.tr.SendMention(ctx, env.Chat, sb.String(), mentions)
}

func (b *Bot) cmdHidetag(ctx context.Context, env envelope.Envelope, _ []string, raw string) error {
	meta, err := b.gate.Metadata(ctx, env.Chat)
	if err != nil {
		return err
	}
	mentions := make([]types.JID, 0, len(meta.Participants))
	for _, p := range meta.Participants {
		if !p.JID.IsEmpty() {
			mentions = append(mentions, p.JID)
		}
	}
	if raw == "" {
		raw = "📢"
	}
	return b.tr.SendMention(ctx, env.Chat, raw, mentions)
}

func (b *Bot) cmdPing(ctx context.Context, env envelope.Envelope, _ []string, _ string) error {
	start := time.Now()
	b.reply(ctx, env, "Pong 🏓")
	b.logger.Debug("ping", zap.Duration("send_time", time.Since(start)))
	return nil
}

func (b *Bot) cmdHelp(ctx context.Context, env envelope.Envelope, _ []string, _ string) error {
	prefix := b.dispatch.Prefix()
	var sb strings.Builder
	sb.WriteString(b.cfg.BotName)
	sb.WriteString(" commands")
	if prefix != "" {
		sb.WriteString(" (prefix: ")
		sb.WriteString(prefix)
		sb.WriteString(")")
	} else {
		sb.WriteString(" (no prefix)")
	}
	sb.WriteString("\n")
	for _, cmd := range b.dispatch.Commands() {
		sb.WriteString("• ")
		sb.WriteString(prefix)
		sb.WriteString(cmd.Help)
		sb.WriteString("\n")
	}
	b.reply(ctx, env, sb.String())
	return nil
}

func (b *Bot) cmdStats(ctx context.Context, env envelope.Envelope, _ []string, _ string) error {
	uptime := time.Since(b.startedAt).Round(time.Second)
	b.reply(ctx, env, fmt.Sprintf("Uptime: %s\nCommands: %d\nCaptured messages: %d",
		uptime, len(b.dispatch.Commands()), b.capture.Size()))
	return nil
}

// targetJID picks the subject of a participant command: the first
// mention, else a phone number argument.
func targetJID(env envelope.Envelope, args []string) (types.JID, bool) {
	if len(env.Mentions) > 0 {
		return env.Mentions[0].ToNonAD(), true
	}
	if number := targetNumber(env, args); number != "" {
		return types.NewJID(number, types.DefaultUserServer), true
	}
	return types.EmptyJID, false
}

// targetNumber extracts a bare phone number from a mention or an
// argument.
func targetNumber(env envelope.Envelope, args []string) string {
	if len(env.Mentions) > 0 && env.Mentions[0].Server == types.DefaultUserServer {
		return env.Mentions[0].User
	}
	for _, arg := range args {
		if n := digits(arg); len(n) >= 6 {
			return n
		}
	}
	return ""
}

// restArgs drops the first token of a raw argument string, keeping the
// original casing of the remainder.
func restArgs(raw string) string {
	_, rest, _ := strings.Cut(strings.TrimSpace(raw), " ")
	return strings.TrimSpace(rest)
}

func digits(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
