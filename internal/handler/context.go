package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-telegram/bot/models"
)

// deferPlaceholder is the throwaway body of a deferred acknowledgment.
const deferPlaceholder = "…"

// Context represents one confirmed command invocation. It is created by
// the dispatcher after resolution and owned by that invocation's
// goroutine; it is never reused. All outbound responses for the turn go
// through it.
type Context struct {
	dispatcher  *Dispatcher
	message     *models.Message
	prefix      string
	invokedWith string
	command     Entry

	responses []*ResponseProxy
	responded bool
	deferred  bool
}

func newContext(d *Dispatcher, msg *models.Message, prefix, invokedWith string, command Entry) *Context {
	return &Context{
		dispatcher:  d,
		message:     msg,
		prefix:      prefix,
		invokedWith: invokedWith,
		command:     command,
	}
}

// Dispatcher returns the owning dispatcher.
func (c *Context) Dispatcher() *Dispatcher { return c.dispatcher }

// Message returns the inbound message that triggered this invocation.
func (c *Context) Message() *models.Message { return c.message }

// ChatID returns the chat the invocation came from.
func (c *Context) ChatID() int64 { return c.message.Chat.ID }

// Author returns the invoking user, or nil for anonymous senders.
func (c *Context) Author() *models.User { return c.message.From }

// Prefix returns the matched trigger prefix.
func (c *Context) Prefix() string { return c.prefix }

// InvokedWith returns the literal name token the command was invoked by.
func (c *Context) InvokedWith() string { return c.invokedWith }

// Command returns the resolved command or group.
func (c *Context) Command() Entry { return c.command }

// Deferred reports whether a deferred acknowledgment has been sent.
func (c *Context) Deferred() bool { return c.deferred }

// Responses returns every response sent during this invocation, oldest
// first.
func (c *Context) Responses() []*ResponseProxy {
	return append([]*ResponseProxy(nil), c.responses...)
}

// LastResponse returns the most recent response, or nil.
func (c *Context) LastResponse() *ResponseProxy {
	if len(c.responses) == 0 {
		return nil
	}
	return c.responses[len(c.responses)-1]
}

// Defer sends the placeholder acknowledgment ahead of the handler body.
// The first Respond call edits the placeholder in place. Deferring twice
// or after a response is a no-op.
func (c *Context) Defer(ctx context.Context) error {
	if c.deferred || c.responded {
		return nil
	}

	opts := &SendOptions{ReplyTo: c.message.ID, Silent: true}
	msg, err := c.dispatcher.gateway.SendMessage(ctx, c.ChatID(), deferPlaceholder, opts)
	if err != nil {
		return fmt.Errorf("send deferred response: %w", err)
	}

	// The placeholder body is stale as soon as the first Respond edits
	// it, so the proxy keeps only the IDs and fetches on demand.
	c.responses = append(c.responses, &ResponseProxy{
		owner:     c,
		chatID:    c.ChatID(),
		messageID: msg.ID,
	})
	c.deferred = true
	return nil
}

// Respond sends a response for this invocation. The first call performs
// the initial response: a reply to the triggering message, or an edit of
// the deferred placeholder. Every later call is a follow-up send. The
// returned proxy is appended to Responses.
func (c *Context) Respond(ctx context.Context, text string, opts *SendOptions) (*ResponseProxy, error) {
	if !c.responded && c.deferred {
		proxy := c.responses[0]
		msg, err := c.dispatcher.gateway.EditMessageText(ctx, proxy.chatID, proxy.messageID, text, opts)
		if err != nil {
			return nil, fmt.Errorf("edit deferred response: %w", err)
		}
		proxy.setMessage(msg)
		c.responded = true
		return proxy, nil
	}

	sendOpts := SendOptions{}
	if opts != nil {
		sendOpts = *opts
	}
	if !c.responded {
		sendOpts.ReplyTo = c.message.ID
	}

	msg, err := c.dispatcher.gateway.SendMessage(ctx, c.ChatID(), text, &sendOpts)
	if err != nil {
		return nil, fmt.Errorf("send response: %w", err)
	}

	proxy := &ResponseProxy{
		owner:     c,
		chatID:    msg.Chat.ID,
		messageID: msg.ID,
		message:   msg,
	}
	c.responses = append(c.responses, proxy)
	c.responded = true
	return proxy, nil
}

// EditLastResponse edits the most recent response. It fails with
// ErrNoResponses when nothing has been sent yet.
func (c *Context) EditLastResponse(ctx context.Context, text string, opts *SendOptions) (*models.Message, error) {
	last := c.LastResponse()
	if last == nil {
		return nil, ErrNoResponses
	}
	return last.Edit(ctx, text, opts)
}

// DeleteLastResponse deletes the most recent response and drops it from
// Responses. It fails with ErrNoResponses when nothing has been sent yet.
func (c *Context) DeleteLastResponse(ctx context.Context) error {
	last := c.LastResponse()
	if last == nil {
		return ErrNoResponses
	}
	if err := last.Delete(ctx); err != nil {
		return err
	}
	c.responses = c.responses[:len(c.responses)-1]
	return nil
}

// ResponseProxy represents one sent response. The backing message body is
// known for ordinary sends and fetched lazily for deferred placeholders.
type ResponseProxy struct {
	owner     *Context
	chatID    int64
	messageID int

	mu              sync.Mutex
	message         *models.Message
	deleteScheduled bool
}

// MessageID returns the platform ID of the proxied message.
func (p *ResponseProxy) MessageID() int { return p.messageID }

// ChatID returns the chat the proxied message lives in.
func (p *ResponseProxy) ChatID() int64 { return p.chatID }

// Message returns the backing message, fetching it through the gateway
// when the body is not already known.
func (p *ResponseProxy) Message(ctx context.Context) (*models.Message, error) {
	p.mu.Lock()
	cached := p.message
	p.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	msg, err := p.owner.dispatcher.gateway.FetchMessage(ctx, p.chatID, p.messageID)
	if err != nil {
		return nil, fmt.Errorf("fetch response message: %w", err)
	}
	p.setMessage(msg)
	return msg, nil
}

// Edit replaces the text of the proxied message.
func (p *ResponseProxy) Edit(ctx context.Context, text string, opts *SendOptions) (*models.Message, error) {
	msg, err := p.owner.dispatcher.gateway.EditMessageText(ctx, p.chatID, p.messageID, text, opts)
	if err != nil {
		return nil, fmt.Errorf("edit response: %w", err)
	}
	p.setMessage(msg)
	return msg, nil
}

// Delete removes the proxied message.
func (p *ResponseProxy) Delete(ctx context.Context) error {
	if err := p.owner.dispatcher.gateway.DeleteMessage(ctx, p.chatID, p.messageID); err != nil {
		return fmt.Errorf("delete response: %w", err)
	}
	return nil
}

// DeleteAfter schedules the proxied message for deletion once delay has
// passed. At most one deletion may be outstanding per response; a second
// call fails with ErrDeleteAlreadyScheduled. The timer is abandoned when
// the dispatcher shuts down.
func (p *ResponseProxy) DeleteAfter(delay time.Duration) error {
	p.mu.Lock()
	if p.deleteScheduled {
		p.mu.Unlock()
		return ErrDeleteAlreadyScheduled
	}
	p.deleteScheduled = true
	p.mu.Unlock()

	d := p.owner.dispatcher
	d.schedule(func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			if err := p.Delete(context.Background()); err != nil {
				d.logger.Error("delayed delete failed",
					"chat_id", p.chatID,
					"message_id", p.messageID,
					"error", err,
				)
			}
		case <-d.done:
		}
	})
	return nil
}

func (p *ResponseProxy) setMessage(msg *models.Message) {
	p.mu.Lock()
	p.message = msg
	p.mu.Unlock()
}
