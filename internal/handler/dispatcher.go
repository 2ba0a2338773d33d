package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-telegram/bot/models"
)

// PrefixResolver supplies the active prefix set per inbound message, for
// bots whose trigger depends on the chat or other runtime state.
type PrefixResolver func(ctx context.Context, d *Dispatcher, msg *models.Message) ([]string, error)

// ErrorHandler consumes dispatch failures. A registered handler fully
// owns the failure; nothing else runs after it returns.
type ErrorHandler func(ctx context.Context, ev *InvocationError)

// UpdateHandler processes every inbound update before command handling.
// Used for middleware like the message cache.
type UpdateHandler func(ctx context.Context, update *models.Update) error

// Options configures a dispatcher.
type Options struct {
	// Prefixes is the static trigger prefix set. The first configured
	// prefix that matches wins.
	Prefixes []string
	// ResolvePrefixes, when set, replaces Prefixes per message.
	ResolvePrefixes PrefixResolver
	// IgnoreBots drops messages authored by other bots.
	IgnoreBots bool
	// OwnerIDs seeds the owner set consulted by the OwnerOnly check.
	OwnerIDs []int64
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Dispatcher routes inbound messages through the invocation pipeline:
// ignore filter, tokenize, prefix match, registry resolution with group
// descent, checks, arity validation and finally the handler, with every
// recognized failure redirected to the error handler.
type Dispatcher struct {
	gateway         Gateway
	registry        *Registry
	prefixes        []string
	resolvePrefixes PrefixResolver
	ignoreBots      bool
	logger          *slog.Logger

	ownerMu  sync.RWMutex
	ownerIDs map[int64]struct{}

	errMu   sync.RWMutex
	onError ErrorHandler

	updateHandlers []UpdateHandler

	done     chan struct{}
	stopOnce sync.Once
	tasks    sync.WaitGroup
}

// New creates a dispatcher on top of a gateway.
func New(gateway Gateway, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	owners := make(map[int64]struct{}, len(opts.OwnerIDs))
	for _, id := range opts.OwnerIDs {
		owners[id] = struct{}{}
	}

	return &Dispatcher{
		gateway:         gateway,
		registry:        NewRegistry(),
		prefixes:        append([]string(nil), opts.Prefixes...),
		resolvePrefixes: opts.ResolvePrefixes,
		ignoreBots:      opts.IgnoreBots,
		logger:          logger,
		ownerIDs:        owners,
		done:            make(chan struct{}),
	}
}

// Registry returns the top-level command registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// AddCommand builds a command from spec and handler and registers it.
func (d *Dispatcher) AddCommand(spec Spec, h HandlerFunc) (*Command, error) {
	cmd, err := NewCommand(spec, h)
	if err != nil {
		return nil, err
	}
	if err := d.registry.Add(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// AddGroup builds a command group from spec and handler and registers it.
func (d *Dispatcher) AddGroup(spec Spec, h HandlerFunc) (*Group, error) {
	grp, err := NewGroup(spec, h)
	if err != nil {
		return nil, err
	}
	if err := d.registry.Add(grp); err != nil {
		return nil, err
	}
	return grp, nil
}

// RemoveCommand unregisters and returns the entry for name.
func (d *Dispatcher) RemoveCommand(name string) (Entry, error) {
	return d.registry.Remove(name)
}

// GetCommand returns the entry registered under name.
func (d *Dispatcher) GetCommand(name string) (Entry, bool) {
	return d.registry.Get(name)
}

// AddUpdateHandler registers middleware that sees every inbound update
// before command handling.
func (d *Dispatcher) AddUpdateHandler(h UpdateHandler) {
	d.updateHandlers = append(d.updateHandlers, h)
}

// OnError registers the failure consumer. Without one, failures propagate
// out of HandleUpdate and stop Start.
func (d *Dispatcher) OnError(h ErrorHandler) {
	d.errMu.Lock()
	d.onError = h
	d.errMu.Unlock()
}

// FetchOwnerIDs refreshes the owner set from the gateway. IDs supplied at
// construction are kept.
func (d *Dispatcher) FetchOwnerIDs(ctx context.Context) error {
	ids, err := d.gateway.OwnerIDs(ctx)
	if err != nil {
		return fmt.Errorf("fetch owner ids: %w", err)
	}

	d.ownerMu.Lock()
	for _, id := range ids {
		d.ownerIDs[id] = struct{}{}
	}
	d.ownerMu.Unlock()

	d.logger.Debug("owner ids fetched", "count", len(ids))
	return nil
}

// IsOwner reports whether a user ID belongs to the owner set.
func (d *Dispatcher) IsOwner(id int64) bool {
	d.ownerMu.RLock()
	defer d.ownerMu.RUnlock()

	_, ok := d.ownerIDs[id]
	return ok
}

// Start consumes update batches until ctx is cancelled, dispatching each
// message-bearing update on its own goroutine. It returns the first
// unconsumed dispatch failure, or ctx.Err on shutdown.
func (d *Dispatcher) Start(ctx context.Context, updates <-chan []models.Update) error {
	d.logger.Info("starting dispatcher")
	defer d.shutdown()

	errCh := make(chan error, 1)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("stopping dispatcher")
			return ctx.Err()
		case err := <-errCh:
			return err
		case batch := <-updates:
			for i := range batch {
				update := batch[i]
				d.schedule(func() {
					if err := d.HandleUpdate(ctx, &update); err != nil {
						select {
						case errCh <- err:
						default:
						}
					}
				})
			}
		}
	}
}

// HandleUpdate runs middleware and, when the update carries a message,
// the full invocation pipeline.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update *models.Update) error {
	for _, h := range d.updateHandlers {
		if err := h(ctx, update); err != nil {
			// Middleware failures never block command handling.
			d.logger.Error("update handler failed", "error", err)
		}
	}

	msg := messageFrom(update)
	if msg == nil {
		return nil
	}
	return d.Handle(ctx, msg)
}

// Handle runs the invocation pipeline for one inbound message.
// Non-command messages are dropped silently; recognized failures go to
// the error handler; only unconsumed failures are returned.
func (d *Dispatcher) Handle(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return nil
	}
	if d.ignoreBots && msg.From != nil && msg.From.IsBot {
		return nil
	}
	if msg.Text == "" {
		return nil
	}

	tokens := Tokenize(msg.Text)
	if len(tokens) == 0 {
		return nil
	}

	prefixes := d.prefixes
	if d.resolvePrefixes != nil {
		resolved, err := d.resolvePrefixes(ctx, d, msg)
		if err != nil {
			return d.dispatchError(ctx, fmt.Errorf("resolve prefixes: %w", err), msg)
		}
		prefixes = resolved
	}

	prefix, matched := matchPrefix(tokens[0], prefixes)
	if !matched {
		return nil
	}

	name := strings.TrimPrefix(tokens[0], prefix)
	entry, args, found := d.registry.Resolve(name, tokens[1:])
	if !found {
		return d.dispatchError(ctx, &UnknownCommandError{Name: name}, msg)
	}

	inv := newContext(d, msg, prefix, name, entry)
	return d.invoke(ctx, entry, inv, args)
}

// invoke runs checks, validates arity and calls the handler.
func (d *Dispatcher) invoke(ctx context.Context, entry Entry, inv *Context, args []string) error {
	cmd := entry.base()

	for _, check := range cmd.checks {
		ok, err := check(ctx, inv)
		if err != nil {
			return d.dispatchError(ctx, &CheckError{Command: cmd.name, Cause: err}, inv.message)
		}
		if !ok {
			return d.dispatchError(ctx, &CheckError{Command: cmd.name, Cause: ErrCheckFailed}, inv.message)
		}
	}

	switch {
	case cmd.maxArgs == UnlimitedArgs && len(args) >= cmd.minArgs:
		// Invoke with all args.
	case len(args) < cmd.minArgs:
		return d.dispatchError(ctx, &NotEnoughArgumentsError{
			Command: cmd.name,
			Min:     cmd.minArgs,
			Got:     len(args),
		}, inv.message)
	case len(args) > cmd.maxArgs && !cmd.allowExtraArgs:
		return d.dispatchError(ctx, &TooManyArgumentsError{
			Command: cmd.name,
			Max:     cmd.maxArgs,
			Got:     len(args),
		}, inv.message)
	case cmd.maxArgs == 0:
		args = nil
	default:
		if len(args) > cmd.maxArgs {
			args = args[:cmd.maxArgs]
		}
	}

	if cmd.autoDefer {
		if err := inv.Defer(ctx); err != nil {
			return d.dispatchError(ctx, err, inv.message)
		}
	}

	d.logger.Info("invoking command",
		"command", cmd.name,
		"chat_id", inv.ChatID(),
		"args", len(args),
	)
	if err := runHandler(ctx, cmd.handler, inv, args); err != nil {
		return d.dispatchError(ctx, err, inv.message)
	}
	return nil
}

// dispatchError routes one failure to the registered handler. Without a
// handler the failure event is returned to the caller.
func (d *Dispatcher) dispatchError(ctx context.Context, cause error, msg *models.Message) error {
	d.errMu.RLock()
	h := d.onError
	d.errMu.RUnlock()

	ev := &InvocationError{Err: cause, Message: msg}
	if h == nil {
		return ev
	}
	h(ctx, ev)
	return nil
}

// schedule tracks one background goroutine against dispatcher shutdown.
func (d *Dispatcher) schedule(fn func()) {
	d.tasks.Add(1)
	go func() {
		defer d.tasks.Done()
		fn()
	}()
}

// shutdown cancels scheduled deletions and waits for in-flight work.
func (d *Dispatcher) shutdown() {
	d.stopOnce.Do(func() {
		close(d.done)
	})
	d.tasks.Wait()
}

// runHandler calls the command body with panic containment so a broken
// handler surfaces on the error channel instead of tearing the process
// down.
func runHandler(ctx context.Context, fn HandlerFunc, inv *Context, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %q panicked: %v", inv.invokedWith, r)
		}
	}()
	return fn(ctx, inv, args)
}

// matchPrefix returns the first configured prefix the token starts with.
func matchPrefix(token string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(token, p) {
			return p, true
		}
	}
	return "", false
}

// messageFrom extracts the message from an update, handling both regular
// and edited messages.
func messageFrom(update *models.Update) *models.Message {
	switch {
	case update == nil:
		return nil
	case update.Message != nil:
		return update.Message
	case update.EditedMessage != nil:
		return update.EditedMessage
	default:
		return nil
	}
}
