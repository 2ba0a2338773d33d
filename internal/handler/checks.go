package handler

import (
	"context"
)

// OwnerOnly gates a command to users in the dispatcher's owner set.
func OwnerOnly() Check {
	return func(ctx context.Context, inv *Context) (bool, error) {
		author := inv.Author()
		if author == nil || !inv.Dispatcher().IsOwner(author.ID) {
			return false, ErrNotOwner
		}
		return true, nil
	}
}

// GroupOnly gates a command to group and supergroup chats.
func GroupOnly() Check {
	return func(ctx context.Context, inv *Context) (bool, error) {
		switch inv.Message().Chat.Type {
		case "group", "supergroup":
			return true, nil
		default:
			return false, ErrGroupOnly
		}
	}
}

// PrivateOnly gates a command to private chats.
func PrivateOnly() Check {
	return func(ctx context.Context, inv *Context) (bool, error) {
		if inv.Message().Chat.Type != "private" {
			return false, ErrPrivateOnly
		}
		return true, nil
	}
}
