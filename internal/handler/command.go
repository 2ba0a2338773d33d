package handler

import (
	"context"
	"fmt"
	"strings"
)

// UnlimitedArgs marks a command whose maximum arity is unbounded.
const UnlimitedArgs = -1

// HandlerFunc is the user-supplied body of a command. args holds the
// argument tokens after arity validation and truncation.
type HandlerFunc func(ctx context.Context, inv *Context, args []string) error

// Check gates one invocation before the handler runs. Returning false or a
// non-nil error stops dispatch; the error (when set) names the reason and
// should wrap one of the check sentinels.
type Check func(ctx context.Context, inv *Context) (bool, error)

// Spec declares one command registration. Arity is stated explicitly
// rather than derived from the handler.
type Spec struct {
	// Name is the unique key within the owning registry.
	Name string
	// Description is shown by the help command.
	Description string
	// MinArgs is the minimum number of argument tokens.
	MinArgs int
	// MaxArgs is the maximum number of argument tokens, or UnlimitedArgs.
	MaxArgs int
	// AllowExtraArgs keeps invocations with surplus tokens valid; the
	// surplus is truncated away. When false, surplus tokens are an error.
	AllowExtraArgs bool
	// AutoDefer sends a placeholder response before the handler runs.
	AutoDefer bool
	// Checks run in order before arity validation.
	Checks []Check
}

func (s Spec) validate() error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Errorf("command spec: missing name")
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return fmt.Errorf("command spec %q: name contains whitespace", s.Name)
	}
	if s.MinArgs < 0 {
		return fmt.Errorf("command spec %q: negative min args", s.Name)
	}
	if s.MaxArgs != UnlimitedArgs && s.MaxArgs < s.MinArgs {
		return fmt.Errorf("command spec %q: max args %d below min args %d", s.Name, s.MaxArgs, s.MinArgs)
	}
	return nil
}

// Entry is one invokable registry member: a *Command or a *Group.
type Entry interface {
	Name() string
	Description() string

	// base gives pipeline stages access to the shared command fields and
	// keeps the Entry set closed.
	base() *Command
}

// Command is a single invokable leaf.
type Command struct {
	name           string
	description    string
	handler        HandlerFunc
	minArgs        int
	maxArgs        int
	allowExtraArgs bool
	autoDefer      bool
	checks         []Check
}

// NewCommand builds a command from its spec and handler.
func NewCommand(spec Spec, handler HandlerFunc) (*Command, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, fmt.Errorf("command spec %q: nil handler", spec.Name)
	}

	return &Command{
		name:           strings.TrimSpace(spec.Name),
		description:    spec.Description,
		handler:        handler,
		minArgs:        spec.MinArgs,
		maxArgs:        spec.MaxArgs,
		allowExtraArgs: spec.AllowExtraArgs,
		autoDefer:      spec.AutoDefer,
		checks:         append([]Check(nil), spec.Checks...),
	}, nil
}

// MustCommand is NewCommand for statically declared commands; it panics on
// an invalid spec.
func MustCommand(spec Spec, handler HandlerFunc) *Command {
	cmd, err := NewCommand(spec, handler)
	if err != nil {
		panic(err)
	}
	return cmd
}

// Name returns the registered command name.
func (c *Command) Name() string { return c.name }

// Description returns the help description.
func (c *Command) Description() string { return c.description }

// MinArgs returns the minimum argument count.
func (c *Command) MinArgs() int { return c.minArgs }

// MaxArgs returns the maximum argument count, or UnlimitedArgs.
func (c *Command) MaxArgs() int { return c.maxArgs }

func (c *Command) base() *Command { return c }

// Group is a command that owns a nested registry of subcommands. It is
// itself invokable when no subcommand token follows it.
type Group struct {
	Command
	sub *Registry
}

// NewGroup builds a command group from its spec and fallback handler.
func NewGroup(spec Spec, handler HandlerFunc) (*Group, error) {
	cmd, err := NewCommand(spec, handler)
	if err != nil {
		return nil, err
	}
	return &Group{Command: *cmd, sub: NewRegistry()}, nil
}

// MustGroup is NewGroup for statically declared groups; it panics on an
// invalid spec.
func MustGroup(spec Spec, handler HandlerFunc) *Group {
	grp, err := NewGroup(spec, handler)
	if err != nil {
		panic(err)
	}
	return grp
}

// Subcommands returns the group's nested registry.
func (g *Group) Subcommands() *Registry { return g.sub }

// Add registers a subcommand on the group.
func (g *Group) Add(entry Entry) error { return g.sub.Add(entry) }

// Resolve walks the subcommand tree. When the first token names a
// registered subcommand the walk descends, consuming that token;
// otherwise the group itself is the target and every token is an
// argument.
func (g *Group) Resolve(tokens []string) (Entry, []string) {
	if len(tokens) == 0 {
		return g, nil
	}
	sub, ok := g.sub.Get(tokens[0])
	if !ok {
		return g, tokens
	}
	if nested, ok := sub.(*Group); ok {
		return nested.Resolve(tokens[1:])
	}
	return sub, tokens[1:]
}
