package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/heraldbot/herald/internal/handler"
)

const listLimit = 10

// Commands exposes the note board as a command group:
//
//	note              random note from this chat
//	note add <text>   save a note
//	note list         show recent notes
//	note del <id>     delete a note
type Commands struct {
	store  *Store
	logger *slog.Logger
}

// NewCommands creates the note command set.
func NewCommands(db *gorm.DB, logger *slog.Logger) *Commands {
	return &Commands{store: NewStore(db), logger: logger}
}

// Group assembles the registered command tree.
func (c *Commands) Group() (*handler.Group, error) {
	grp, err := handler.NewGroup(handler.Spec{
		Name:           "note",
		Description:    "Show a random note from this chat",
		MaxArgs:        0,
		AllowExtraArgs: true,
		Checks:         []handler.Check{handler.GroupOnly()},
	}, c.random)
	if err != nil {
		return nil, err
	}

	subs := []*handler.Command{
		handler.MustCommand(handler.Spec{
			Name:        "add",
			Description: "Save a note",
			MinArgs:     1,
			MaxArgs:     handler.UnlimitedArgs,
		}, c.add),
		handler.MustCommand(handler.Spec{
			Name:           "list",
			Description:    "Show recent notes",
			MaxArgs:        0,
			AllowExtraArgs: true,
		}, c.list),
		handler.MustCommand(handler.Spec{
			Name:        "del",
			Description: "Delete a note by ID",
			MinArgs:     1,
			MaxArgs:     1,
		}, c.del),
	}
	for _, sub := range subs {
		if err := grp.Add(sub); err != nil {
			return nil, err
		}
	}
	return grp, nil
}

func (c *Commands) add(ctx context.Context, inv *handler.Context, args []string) error {
	text := strings.Join(args, " ")
	note, err := c.store.Add(ctx, inv.ChatID(), inv.Author(), text)
	if err != nil {
		return fmt.Errorf("add note: %w", err)
	}

	c.logger.Info("note added", "chat_id", inv.ChatID(), "note_id", note.ID)
	_, err = inv.Respond(ctx, fmt.Sprintf("Note #%d saved.", note.ID), nil)
	return err
}

func (c *Commands) list(ctx context.Context, inv *handler.Context, args []string) error {
	found, err := c.store.List(ctx, inv.ChatID(), listLimit)
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}
	if len(found) == 0 {
		_, err = inv.Respond(ctx, "No notes in this chat yet.", nil)
		return err
	}

	var b strings.Builder
	for _, note := range found {
		fmt.Fprintf(&b, "#%d %s\n", note.ID, note.Text)
	}
	_, err = inv.Respond(ctx, b.String(), nil)
	return err
}

func (c *Commands) del(ctx context.Context, inv *handler.Context, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		_, err = inv.Respond(ctx, fmt.Sprintf("%q is not a note ID.", args[0]), nil)
		return err
	}

	switch err := c.store.Delete(ctx, inv.ChatID(), uint(id)); {
	case errors.Is(err, gorm.ErrRecordNotFound):
		_, err = inv.Respond(ctx, fmt.Sprintf("No note #%d in this chat.", id), nil)
		return err
	case err != nil:
		return fmt.Errorf("delete note: %w", err)
	}

	c.logger.Info("note deleted", "chat_id", inv.ChatID(), "note_id", id)
	_, err = inv.Respond(ctx, fmt.Sprintf("Note #%d deleted.", id), nil)
	return err
}

func (c *Commands) random(ctx context.Context, inv *handler.Context, args []string) error {
	note, err := c.store.Random(ctx, inv.ChatID())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_, err = inv.Respond(ctx, "No notes in this chat yet.", nil)
		return err
	}
	if err != nil {
		return fmt.Errorf("random note: %w", err)
	}

	_, err = inv.Respond(ctx, note.Text, nil)
	return err
}
