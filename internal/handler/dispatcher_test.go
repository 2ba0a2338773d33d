package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGateway is a mock for the Gateway interface
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (*models.Message, error) {
	args := m.Called(ctx, chatID, text, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockGateway) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *SendOptions) (*models.Message, error) {
	args := m.Called(ctx, chatID, messageID, text, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockGateway) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	args := m.Called(ctx, chatID, messageID)
	return args.Error(0)
}

func (m *MockGateway) FetchMessage(ctx context.Context, chatID int64, messageID int) (*models.Message, error) {
	args := m.Called(ctx, chatID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockGateway) OwnerIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// Ensure MockGateway implements Gateway
var _ Gateway = (*MockGateway)(nil)

func newTestDispatcher(opts Options) (*Dispatcher, *MockGateway) {
	gateway := new(MockGateway)
	if opts.Prefixes == nil && opts.ResolvePrefixes == nil {
		opts.Prefixes = []string{"!"}
	}
	return New(gateway, opts), gateway
}

func inboundMessage(text string) *models.Message {
	return &models.Message{
		ID:   10,
		Text: text,
		Chat: models.Chat{ID: 123, Type: "group"},
		From: &models.User{ID: 456, FirstName: "Test"},
	}
}

func TestHandle_InvokesCommand(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	var gotArgs []string
	invoked := false
	_, err := d.AddCommand(Spec{Name: "ping", MaxArgs: 0}, func(ctx context.Context, inv *Context, args []string) error {
		invoked = true
		gotArgs = args
		return nil
	})
	require.NoError(t, err)

	err = d.Handle(context.Background(), inboundMessage("!ping"))
	require.NoError(t, err)
	assert.True(t, invoked)
	assert.Empty(t, gotArgs)
}

func TestHandle_PassesQuotedArgumentsAsSingleTokens(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	var gotArgs []string
	_, err := d.AddCommand(Spec{Name: "echo", MinArgs: 1, MaxArgs: UnlimitedArgs}, func(ctx context.Context, inv *Context, args []string) error {
		gotArgs = args
		return nil
	})
	require.NoError(t, err)

	err = d.Handle(context.Background(), inboundMessage(`!echo "hello world" second`))
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world", "second"}, gotArgs)
}

func TestHandle_IgnoresBotAuthors(t *testing.T) {
	d, _ := newTestDispatcher(Options{IgnoreBots: true})

	invoked := false
	_, err := d.AddCommand(Spec{Name: "ping", MaxArgs: 0}, func(ctx context.Context, inv *Context, args []string) error {
		invoked = true
		return nil
	})
	require.NoError(t, err)

	msg := inboundMessage("!ping")
	msg.From.IsBot = true

	err = d.Handle(context.Background(), msg)
	require.NoError(t, err)
	assert.False(t, invoked)
}

func TestHandle_AllowsBotAuthorsWhenNotIgnored(t *testing.T) {
	d, _ := newTestDispatcher(Options{IgnoreBots: false})

	invoked := false
	_, err := d.AddCommand(Spec{Name: "ping", MaxArgs: 0}, func(ctx context.Context, inv *Context, args []string) error {
		invoked = true
		return nil
	})
	require.NoError(t, err)

	msg := inboundMessage("!ping")
	msg.From.IsBot = true

	err = d.Handle(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, invoked)
}

func TestHandle_DropsUnprefixedMessages(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	invoked := false
	_, err := d.AddCommand(Spec{Name: "ping", MaxArgs: 0}, func(ctx context.Context, inv *Context, args []string) error {
		invoked = true
		return nil
	})
	require.NoError(t, err)

	for _, text := range []string{"ping", "hello there", "", "   "} {
		err = d.Handle(context.Background(), inboundMessage(text))
		require.NoError(t, err)
	}
	assert.False(t, invoked)
}

func TestHandle_UnknownCommandReturnedWithoutErrorHandler(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	err := d.Handle(context.Background(), inboundMessage("!nosuch"))
	require.Error(t, err)

	var ev *InvocationError
	require.ErrorAs(t, err, &ev)
	var unknown *UnknownCommandError
	require.ErrorAs(t, ev.Err, &unknown)
	assert.Equal(t, "nosuch", unknown.Name)
	assert.Equal(t, 10, ev.Message.ID)
}

func TestHandle_UnknownCommandDeliveredToErrorHandler(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	var got *InvocationError
	d.OnError(func(ctx context.Context, ev *InvocationError) {
		got = ev
	})

	err := d.Handle(context.Background(), inboundMessage("!nosuch"))
	require.NoError(t, err)
	require.NotNil(t, got)

	var unknown *UnknownCommandError
	assert.ErrorAs(t, got.Err, &unknown)
}

func TestHandle_FirstConfiguredPrefixWins(t *testing.T) {
	d, _ := newTestDispatcher(Options{Prefixes: []string{"!", "!!"}})

	_, err := d.AddCommand(Spec{Name: "ping", MaxArgs: 0}, func(ctx context.Context, inv *Context, args []string) error {
		return nil
	})
	require.NoError(t, err)

	// "!" matches first, so the name token becomes "!ping" and misses.
	err = d.Handle(context.Background(), inboundMessage("!!ping"))
	var unknown *UnknownCommandError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "!ping", unknown.Name)
}

func TestHandle_PrefixResolverReplacesStaticPrefixes(t *testing.T) {
	resolver := func(ctx context.Context, d *Dispatcher, msg *models.Message) ([]string, error) {
		return []string{"?"}, nil
	}
	d, _ := newTestDispatcher(Options{Prefixes: []string{"!"}, ResolvePrefixes: resolver})

	invoked := false
	_, err := d.AddCommand(Spec{Name: "ping", MaxArgs: 0}, func(ctx context.Context, inv *Context, args []string) error {
		invoked = true
		assert.Equal(t, "?", inv.Prefix())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, d.Handle(context.Background(), inboundMessage("?ping")))
	assert.True(t, invoked)

	// The static prefix no longer triggers.
	require.NoError(t, d.Handle(context.Background(), inboundMessage("!ping")))
}

func TestHandle_PrefixResolverFailureReported(t *testing.T) {
	resolver := func(ctx context.Context, d *Dispatcher, msg *models.Message) ([]string, error) {
		return nil, errors.New("store down")
	}
	d, _ := newTestDispatcher(Options{ResolvePrefixes: resolver})

	err := d.Handle(context.Background(), inboundMessage("!ping"))
	var ev *InvocationError
	require.ErrorAs(t, err, &ev)
	assert.Contains(t, ev.Err.Error(), "resolve prefixes")
}

func TestHandle_GroupDescendsIntoSubcommand(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	var subArgs []string
	grp := MustGroup(Spec{Name: "note", MaxArgs: 0, AllowExtraArgs: true}, func(ctx context.Context, inv *Context, args []string) error {
		return nil
	})
	require.NoError(t, grp.Add(MustCommand(Spec{Name: "add", MinArgs: 1, MaxArgs: UnlimitedArgs}, func(ctx context.Context, inv *Context, args []string) error {
		subArgs = args
		return nil
	})))
	require.NoError(t, d.Registry().Add(grp))

	err := d.Handle(context.Background(), inboundMessage("!note add remember this"))
	require.NoError(t, err)
	assert.Equal(t, []string{"remember", "this"}, subArgs)
}

func TestHandle_GroupFallsBackToItself(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	groupInvoked := false
	grp := MustGroup(Spec{Name: "note", MaxArgs: 0, AllowExtraArgs: true}, func(ctx context.Context, inv *Context, args []string) error {
		groupInvoked = true
		return nil
	})
	require.NoError(t, grp.Add(MustCommand(Spec{Name: "add", MinArgs: 1, MaxArgs: UnlimitedArgs}, func(ctx context.Context, inv *Context, args []string) error {
		return nil
	})))
	require.NoError(t, d.Registry().Add(grp))

	err := d.Handle(context.Background(), inboundMessage("!note nonsense here"))
	require.NoError(t, err)
	assert.True(t, groupInvoked)
}

func TestInvoke_NotEnoughArguments(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	invoked := false
	_, err := d.AddCommand(Spec{Name: "pair", MinArgs: 2, MaxArgs: 2}, func(ctx context.Context, inv *Context, args []string) error {
		invoked = true
		return nil
	})
	require.NoError(t, err)

	err = d.Handle(context.Background(), inboundMessage("!pair only"))
	var notEnough *NotEnoughArgumentsError
	require.ErrorAs(t, err, &notEnough)
	assert.Equal(t, "pair", notEnough.Command)
	assert.Equal(t, 2, notEnough.Min)
	assert.Equal(t, 1, notEnough.Got)
	assert.False(t, invoked)
}

func TestInvoke_TooManyArguments(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	invoked := false
	_, err := d.AddCommand(Spec{Name: "one", MinArgs: 0, MaxArgs: 1}, func(ctx context.Context, inv *Context, args []string) error {
		invoked = true
		return nil
	})
	require.NoError(t, err)

	err = d.Handle(context.Background(), inboundMessage("!one a b"))
	var tooMany *TooManyArgumentsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 1, tooMany.Max)
	assert.Equal(t, 2, tooMany.Got)
	assert.False(t, invoked)
}

func TestInvoke_TruncatesExtraArgumentsWhenAllowed(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	var gotArgs []string
	_, err := d.AddCommand(Spec{Name: "one", MaxArgs: 1, AllowExtraArgs: true}, func(ctx context.Context, inv *Context, args []string) error {
		gotArgs = args
		return nil
	})
	require.NoError(t, err)

	err = d.Handle(context.Background(), inboundMessage("!one a b c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, gotArgs)
}

func TestInvoke_ZeroMaxDropsAllArguments(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	called := false
	var gotArgs []string
	_, err := d.AddCommand(Spec{Name: "ping", MaxArgs: 0, AllowExtraArgs: true}, func(ctx context.Context, inv *Context, args []string) error {
		called = true
		gotArgs = args
		return nil
	})
	require.NoError(t, err)

	err = d.Handle(context.Background(), inboundMessage("!ping extra tokens here"))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, gotArgs)
}

func TestInvoke_UnlimitedArgsPassEverything(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	var gotArgs []string
	_, err := d.AddCommand(Spec{Name: "echo", MinArgs: 1, MaxArgs: UnlimitedArgs}, func(ctx context.Context, inv *Context, args []string) error {
		gotArgs = args
		return nil
	})
	require.NoError(t, err)

	err = d.Handle(context.Background(), inboundMessage("!echo a b c d"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, gotArgs)
}

func TestInvoke_CheckDeclineStopsInvocation(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	secondCheckRan := false
	invoked := false
	decline := func(ctx context.Context, inv *Context) (bool, error) { return false, nil }
	second := func(ctx context.Context, inv *Context) (bool, error) {
		secondCheckRan = true
		return true, nil
	}

	_, err := d.AddCommand(Spec{Name: "sec", MaxArgs: 0, Checks: []Check{decline, second}}, func(ctx context.Context, inv *Context, args []string) error {
		invoked = true
		return nil
	})
	require.NoError(t, err)

	err = d.Handle(context.Background(), inboundMessage("!sec"))
	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.ErrorIs(t, checkErr.Cause, ErrCheckFailed)
	assert.False(t, secondCheckRan)
	assert.False(t, invoked)
}

func TestInvoke_CheckErrorCarriesCause(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	failing := func(ctx context.Context, inv *Context) (bool, error) { return false, ErrNotOwner }
	_, err := d.AddCommand(Spec{Name: "adm", MaxArgs: 0, Checks: []Check{failing}}, func(ctx context.Context, inv *Context, args []string) error {
		return nil
	})
	require.NoError(t, err)

	err = d.Handle(context.Background(), inboundMessage("!adm"))
	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.ErrorIs(t, checkErr.Cause, ErrNotOwner)
	assert.ErrorIs(t, err, ErrCheckFailed)
}

func TestInvoke_ChecksRunBeforeArityValidation(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	decline := func(ctx context.Context, inv *Context) (bool, error) { return false, nil }
	_, err := d.AddCommand(Spec{Name: "pair", MinArgs: 2, MaxArgs: 2, Checks: []Check{decline}}, func(ctx context.Context, inv *Context, args []string) error {
		return nil
	})
	require.NoError(t, err)

	// Too few arguments AND a declining check: the check wins.
	err = d.Handle(context.Background(), inboundMessage("!pair only"))
	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
}

func TestInvoke_AutoDeferSendsPlaceholderBeforeHandler(t *testing.T) {
	d, gateway := newTestDispatcher(Options{})

	placeholder := &models.Message{ID: 77, Chat: models.Chat{ID: 123}}
	gateway.On("SendMessage", mock.Anything, int64(123), "…", mock.Anything).Return(placeholder, nil)

	wasDeferred := false
	_, err := d.AddCommand(Spec{Name: "slow", MaxArgs: 0, AutoDefer: true}, func(ctx context.Context, inv *Context, args []string) error {
		wasDeferred = inv.Deferred()
		return nil
	})
	require.NoError(t, err)

	err = d.Handle(context.Background(), inboundMessage("!slow"))
	require.NoError(t, err)
	assert.True(t, wasDeferred)
	gateway.AssertExpectations(t)
}

func TestInvoke_HandlerErrorDeliveredToErrorHandler(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	boom := errors.New("boom")
	var got *InvocationError
	d.OnError(func(ctx context.Context, ev *InvocationError) { got = ev })

	_, err := d.AddCommand(Spec{Name: "bad", MaxArgs: 0}, func(ctx context.Context, inv *Context, args []string) error {
		return boom
	})
	require.NoError(t, err)

	err = d.Handle(context.Background(), inboundMessage("!bad"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.ErrorIs(t, got.Err, boom)
}

func TestInvoke_HandlerPanicContained(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	_, err := d.AddCommand(Spec{Name: "bad", MaxArgs: 0}, func(ctx context.Context, inv *Context, args []string) error {
		panic("kaboom")
	})
	require.NoError(t, err)

	err = d.Handle(context.Background(), inboundMessage("!bad"))
	var ev *InvocationError
	require.ErrorAs(t, err, &ev)
	assert.Contains(t, ev.Err.Error(), "kaboom")
}

func TestHandleUpdate_MiddlewareFailureDoesNotBlockDispatch(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	d.AddUpdateHandler(func(ctx context.Context, update *models.Update) error {
		return errors.New("cache down")
	})

	invoked := false
	_, err := d.AddCommand(Spec{Name: "ping", MaxArgs: 0}, func(ctx context.Context, inv *Context, args []string) error {
		invoked = true
		return nil
	})
	require.NoError(t, err)

	update := &models.Update{Message: inboundMessage("!ping")}
	require.NoError(t, d.HandleUpdate(context.Background(), update))
	assert.True(t, invoked)
}

func TestHandleUpdate_HandlesEditedMessages(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	invoked := false
	_, err := d.AddCommand(Spec{Name: "ping", MaxArgs: 0}, func(ctx context.Context, inv *Context, args []string) error {
		invoked = true
		return nil
	})
	require.NoError(t, err)

	update := &models.Update{EditedMessage: inboundMessage("!ping")}
	require.NoError(t, d.HandleUpdate(context.Background(), update))
	assert.True(t, invoked)
}

func TestStart_StopsOnUnconsumedFailure(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	updates := make(chan []models.Update, 1)
	updates <- []models.Update{{ID: 1, Message: inboundMessage("!nosuch")}}

	done := make(chan error, 1)
	go func() {
		done <- d.Start(context.Background(), updates)
	}()

	select {
	case err := <-done:
		var unknown *UnknownCommandError
		assert.ErrorAs(t, err, &unknown)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop on failure")
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan []models.Update)

	done := make(chan error, 1)
	go func() {
		done <- d.Start(ctx, updates)
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop on cancel")
	}
}

func TestStart_ConsumedFailuresKeepRunning(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	handled := make(chan *InvocationError, 1)
	d.OnError(func(ctx context.Context, ev *InvocationError) { handled <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan []models.Update, 1)
	updates <- []models.Update{{ID: 1, Message: inboundMessage("!nosuch")}}

	done := make(chan error, 1)
	go func() {
		done <- d.Start(ctx, updates)
	}()

	select {
	case ev := <-handled:
		var unknown *UnknownCommandError
		assert.ErrorAs(t, ev.Err, &unknown)
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not called")
	}

	select {
	case err := <-done:
		t.Fatalf("dispatcher stopped unexpectedly: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	cancel()
}

func TestFetchOwnerIDs_MergesIntoOwnerSet(t *testing.T) {
	d, gateway := newTestDispatcher(Options{OwnerIDs: []int64{1}})
	gateway.On("OwnerIDs", mock.Anything).Return([]int64{2, 3}, nil)

	require.NoError(t, d.FetchOwnerIDs(context.Background()))

	assert.True(t, d.IsOwner(1))
	assert.True(t, d.IsOwner(2))
	assert.True(t, d.IsOwner(3))
	assert.False(t, d.IsOwner(4))
}

func TestFetchOwnerIDs_GatewayFailure(t *testing.T) {
	d, gateway := newTestDispatcher(Options{OwnerIDs: []int64{1}})
	gateway.On("OwnerIDs", mock.Anything).Return(nil, errors.New("api down"))

	err := d.FetchOwnerIDs(context.Background())
	require.Error(t, err)
	assert.True(t, d.IsOwner(1))
}

func TestAddCommand_RejectsDuplicates(t *testing.T) {
	d, _ := newTestDispatcher(Options{})

	noop := func(ctx context.Context, inv *Context, args []string) error { return nil }
	_, err := d.AddCommand(Spec{Name: "ping", MaxArgs: 0}, noop)
	require.NoError(t, err)

	_, err = d.AddCommand(Spec{Name: "ping", MaxArgs: 0}, noop)
	assert.ErrorIs(t, err, ErrDuplicateName)
}
