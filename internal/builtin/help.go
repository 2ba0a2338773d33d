package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/heraldbot/herald/internal/handler"
)

// Help lists registered commands, or details one command when given its
// name. Group subcommands are listed under their group.
func Help(registry *handler.Registry) *handler.Command {
	return handler.MustCommand(handler.Spec{
		Name:           "help",
		Description:    "List commands, or describe one",
		MaxArgs:        1,
		AllowExtraArgs: true,
	}, func(ctx context.Context, inv *handler.Context, args []string) error {
		var text string
		if len(args) == 1 {
			entry, ok := registry.Get(args[0])
			if !ok {
				_, err := inv.Respond(ctx, fmt.Sprintf("No command named %q.", args[0]), nil)
				return err
			}
			text = describe(entry)
		} else {
			text = overview(registry)
		}

		_, err := inv.Respond(ctx, text, nil)
		return err
	})
}

func overview(registry *handler.Registry) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, name := range registry.Names() {
		entry, ok := registry.Get(name)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s - %s\n", name, entry.Description())
	}
	return b.String()
}

func describe(entry handler.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n", entry.Name(), entry.Description())

	group, ok := entry.(*handler.Group)
	if !ok {
		return b.String()
	}
	subs := group.Subcommands()
	for _, name := range subs.Names() {
		sub, ok := subs.Get(name)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  %s %s - %s\n", entry.Name(), name, sub.Description())
	}
	return b.String()
}
