// Package builtin carries the stock commands every herald bot starts
// with.
package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/heraldbot/herald/internal/handler"
)

// Ping answers with a liveness reply. Trailing tokens are ignored.
func Ping() *handler.Command {
	return handler.MustCommand(handler.Spec{
		Name:           "ping",
		Description:    "Check that the bot is alive",
		MaxArgs:        0,
		AllowExtraArgs: true,
	}, func(ctx context.Context, inv *handler.Context, args []string) error {
		_, err := inv.Respond(ctx, "Pong!", nil)
		return err
	})
}

// Echo repeats its arguments back.
func Echo() *handler.Command {
	return handler.MustCommand(handler.Spec{
		Name:        "echo",
		Description: "Repeat the given text",
		MinArgs:     1,
		MaxArgs:     handler.UnlimitedArgs,
	}, func(ctx context.Context, inv *handler.Context, args []string) error {
		_, err := inv.Respond(ctx, strings.Join(args, " "), nil)
		return err
	})
}

// Status reports uptime to bot owners. It defers its response, so the
// placeholder edit path gets exercised on every call.
func Status(startedAt time.Time) *handler.Command {
	return handler.MustCommand(handler.Spec{
		Name:           "status",
		Description:    "Report bot status (owners only)",
		MaxArgs:        0,
		AllowExtraArgs: true,
		AutoDefer:      true,
		Checks:         []handler.Check{handler.OwnerOnly()},
	}, func(ctx context.Context, inv *handler.Context, args []string) error {
		uptime := time.Since(startedAt).Round(time.Second)
		_, err := inv.Respond(ctx, fmt.Sprintf("Up for %s.", uptime), nil)
		return err
	})
}
