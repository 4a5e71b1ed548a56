package router

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
)

// Message is the part of a guild message the router looks at.
type Message struct {
	ID        snowflake.ID
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	Author    discord.User
	Content   string
}

// Context is passed to checks and handlers.
type Context struct {
	context.Context
	Client  *bot.Client
	Message Message
	// Prefix is the prefix the message was invoked with.
	Prefix string
	// Command is the resolved command, Path its full name ("filter set").
	Command *Command
	Path    string
	Args    []string
	// Rest is the raw text after the command path.
	Rest string

	router *Router
	perms  *discord.Permissions
}

func (c *Context) GuildID() snowflake.ID   { return c.Message.GuildID }
func (c *Context) ChannelID() snowflake.ID { return c.Message.ChannelID }
func (c *Context) Author() discord.User    { return c.Message.Author }

// Arg returns the i-th argument, or "" when absent.
func (c *Context) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

// Permissions returns the author's guild permissions, resolved once.
func (c *Context) Permissions() discord.Permissions {
	if c.perms == nil {
		var p discord.Permissions
		if c.router.permissions != nil {
			p = c.router.permissions(c)
		}
		c.perms = &p
	}
	return *c.perms
}

type (
	Handler func(c *Context) error
	Check   func(c *Context) error
)

// Command is a named handler, optionally a group of subcommands. A group
// without a handler needs a subcommand.
type Command struct {
	Name        string
	Aliases     []string
	Usage       string
	Description string
	Checks      []Check
	Handler     Handler
	Subcommands []*Command

	subs map[string]*Command
}

func (c *Command) index() {
	c.subs = make(map[string]*Command)
	for _, sub := range c.Subcommands {
		sub.index()
		for _, name := range append([]string{sub.Name}, sub.Aliases...) {
			c.subs[strings.ToLower(name)] = sub
		}
	}
}

// PrefixFunc returns the prefix of a guild.
type PrefixFunc func(ctx context.Context, guildID snowflake.ID) (string, error)

// Router dispatches prefixed guild messages to commands.
type Router struct {
	mu          sync.RWMutex
	commands    map[string]*Command
	ordered     []*Command
	prefix      PrefixFunc
	selfID      snowflake.ID
	permissions func(c *Context) discord.Permissions
	onError     func(c *Context, err error)
	before      func(c *Context)
	log         *slog.Logger
}

func New(prefix PrefixFunc, log *slog.Logger) *Router {
	return &Router{
		commands: make(map[string]*Command),
		prefix:   prefix,
		onError:  func(*Context, error) {},
		log:      log.With("component", "router"),
	}
}

// Add registers commands by name and alias. Later registrations win.
func (r *Router) Add(cmds ...*Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cmd := range cmds {
		cmd.index()
		r.ordered = append(r.ordered, cmd)
		for _, name := range append([]string{cmd.Name}, cmd.Aliases...) {
			r.commands[strings.ToLower(name)] = cmd
		}
	}
}

// Commands returns the top-level commands in registration order.
func (r *Router) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Command(nil), r.ordered...)
}

func (r *Router) OnError(fn func(c *Context, err error))                 { r.onError = fn }
func (r *Router) BeforeInvoke(fn func(c *Context))                       { r.before = fn }
func (r *Router) SetPermissions(fn func(c *Context) discord.Permissions) { r.permissions = fn }

// SetSelfID enables mentions of the bot as a prefix.
func (r *Router) SetSelfID(id snowflake.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selfID = id
}

func (r *Router) OnMessageCreate(e *events.GuildMessageCreate) {
	r.dispatchEvent(e.Client(), e.Message, e.GuildID)
}

// OnMessageUpdate runs an edited message again when its content changed.
func (r *Router) OnMessageUpdate(e *events.GuildMessageUpdate) {
	if e.OldMessage.Content == e.Message.Content {
		return
	}
	r.dispatchEvent(e.Client(), e.Message, e.GuildID)
}

func (r *Router) dispatchEvent(client *bot.Client, msg discord.Message, guildID snowflake.ID) {
	r.Dispatch(context.Background(), client, Message{
		ID:        msg.ID,
		GuildID:   guildID,
		ChannelID: msg.ChannelID,
		Author:    msg.Author,
		Content:   msg.Content,
	})
}

// Dispatch runs the command named by m, if m starts with a prefix. It
// reports whether m was a command invocation.
func (r *Router) Dispatch(ctx context.Context, client *bot.Client, m Message) bool {
	if m.Author.Bot || m.GuildID == 0 {
		return false
	}

	prefix, ok := r.matchPrefix(ctx, m)
	if !ok {
		return false
	}

	c := &Context{
		Context: ctx,
		Client:  client,
		Message: m,
		Prefix:  prefix,
		router:  r,
	}

	body := strings.TrimSpace(m.Content[len(prefix):])
	name, rest := cutWord(body)
	if name == "" {
		return false
	}

	r.mu.RLock()
	cmd, ok := r.commands[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		r.onError(c, &CommandNotFoundError{Content: m.Content})
		return true
	}

	path := []string{cmd.Name}
	checks := append([]Check(nil), cmd.Checks...)
	for len(cmd.subs) > 0 {
		word, remainder := cutWord(rest)
		sub, ok := cmd.subs[strings.ToLower(word)]
		if !ok {
			break
		}
		cmd, rest = sub, remainder
		path = append(path, sub.Name)
		checks = append(checks, sub.Checks...)
	}

	c.Command = cmd
	c.Path = strings.Join(path, " ")
	c.Rest = rest
	c.Args = strings.Fields(rest)

	if r.before != nil {
		r.before(c)
	}
	for _, check := range checks {
		if err := check(c); err != nil {
			r.onError(c, err)
			return true
		}
	}

	if cmd.Handler == nil {
		if word, _ := cutWord(rest); word != "" {
			r.onError(c, &CommandNotFoundError{Content: m.Content})
		} else {
			r.onError(c, &MissingArgumentError{Name: "subcommand"})
		}
		return true
	}

	r.log.Debug("Running command", "command", c.Path, "guild_id", m.GuildID, "user_id", m.Author.ID)
	if err := cmd.Handler(c); err != nil {
		r.onError(c, err)
	}
	return true
}

func (r *Router) matchPrefix(ctx context.Context, m Message) (string, bool) {
	r.mu.RLock()
	self := r.selfID
	r.mu.RUnlock()

	if self != 0 {
		for _, mention := range []string{"<@" + self.String() + ">", "<@!" + self.String() + ">"} {
			if strings.HasPrefix(m.Content, mention) {
				return mention, true
			}
		}
	}

	prefix, err := r.prefix(ctx, m.GuildID)
	if err != nil {
		r.log.Error("Failed to resolve prefix", "guild_id", m.GuildID, "error", err)
		return "", false
	}
	if prefix == "" || !strings.HasPrefix(m.Content, prefix) {
		return "", false
	}
	return prefix, true
}

func cutWord(s string) (string, string) {
	s = strings.TrimLeft(s, " \t\n")
	i := strings.IndexAny(s, " \t\n")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// RequirePermissions fails with ErrMissingPermissions unless the author has
// every permission in perms.
func RequirePermissions(perms discord.Permissions) Check {
	return func(c *Context) error {
		if !c.Permissions().Has(perms) {
			return ErrMissingPermissions
		}
		return nil
	}
}

// OwnerOnly fails silently for everyone isOwner rejects.
func OwnerOnly(isOwner func(snowflake.ID) bool) Check {
	return func(c *Context) error {
		if !isOwner(c.Author().ID) {
			return ErrCheckFailure
		}
		return nil
	}
}

// ParseChannel reads a channel mention or a raw id.
func ParseChannel(arg string) (snowflake.ID, error) {
	raw := strings.TrimSuffix(strings.TrimPrefix(arg, "<#"), ">")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, &ChannelNotFoundError{Arg: arg}
	}
	return snowflake.ID(id), nil
}

// ParseUser reads a user mention or a raw id.
func ParseUser(arg string) (snowflake.ID, bool) {
	raw := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(arg, "<@"), "!"), ">")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return snowflake.ID(id), true
}
