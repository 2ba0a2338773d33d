package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/heraldbot/herald/internal/builtin"
	"github.com/heraldbot/herald/internal/cache"
	"github.com/heraldbot/herald/internal/config"
	"github.com/heraldbot/herald/internal/handler"
	"github.com/heraldbot/herald/internal/notes"
	"github.com/heraldbot/herald/internal/storage"
	"github.com/heraldbot/herald/internal/telegram"
	"golang.org/x/sync/errgroup"
)

// updateBuffer bounds the queue between bot polling and the dispatcher.
const updateBuffer = 64

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Configure slog with debug level
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	logHandler := slog.NewTextHandler(os.Stderr, opts)
	slog.SetDefault(slog.New(logHandler))

	// Parse command/subcommand
	cmd := parseCommand()

	// Load configuration
	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Execute command
	switch cmd {
	case "server":
		return runServer(cfg)
	case "migrate":
		return runMigrations(cfg)
	default:
		// Default: run migrations and server
		if err := runMigrations(cfg); err != nil {
			return err
		}
		return runServer(cfg)
	}
}

func parseCommand() string {
	if len(os.Args) < 2 {
		return "default"
	}
	return os.Args[1]
}

func runMigrations(cfg *config.Config) error {
	db, err := storage.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return storage.RunMigrations(db.DB, cfg.Database.Migrations)
}

func runServer(cfg *config.Config) error {
	slog.Info("starting herald server", "environment", cfg.Environment)
	startedAt := time.Now()

	// Create context with signal handling
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	// Initialize database
	db, err := storage.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize cache service
	cacheService := cache.NewService(db.DB)

	// Feed every polled update into the dispatcher queue
	updates := make(chan []models.Update, updateBuffer)
	botOpts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			select {
			case updates <- []models.Update{*update}:
			case <-ctx.Done():
			}
		}),
	}

	// Initialize Telegram bot
	b, err := bot.New(cfg.Telegram.Token, botOpts...)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	gateway := telegram.NewGateway(b, cacheService, telegram.Config{
		OwnerIDs:    cfg.Handler.OwnerIDs,
		OwnerChatID: cfg.Handler.OwnerChatID,
	})

	dispatcher := handler.New(gateway, handler.Options{
		Prefixes:   cfg.Handler.Prefixes,
		IgnoreBots: cfg.Handler.IgnoreBots,
		OwnerIDs:   cfg.Handler.OwnerIDs,
		Logger:     slog.Default(),
	})
	dispatcher.AddUpdateHandler(cache.Middleware(cacheService, slog.Default()))
	dispatcher.OnError(errorResponder(gateway))

	if err := registerCommands(dispatcher, db, startedAt); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	if err := dispatcher.FetchOwnerIDs(ctx); err != nil {
		slog.Warn("could not fetch owner ids", "error", err)
	}

	// Create errgroup for concurrent component management
	g, ctx := errgroup.WithContext(ctx)

	// Verify bot
	user, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify bot: %w", err)
	}

	// Component 1: Bot polling
	g.Go(func() error {
		slog.Info("starting bot polling", "firstName", user.FirstName, "lastName", user.LastName)
		b.Start(ctx)
		return ctx.Err()
	})

	// Component 2: Command dispatcher
	g.Go(func() error {
		return dispatcher.Start(ctx, updates)
	})

	// Component 3: Cache cleaner
	cleanerConfig := cache.Config{
		CleanInterval: cfg.Cache.CleanInterval,
		KeepDuration:  cfg.Cache.KeepDuration,
	}
	cleaner := cache.NewCleaner(cacheService, cleanerConfig, slog.Default())
	g.Go(func() error {
		return cleaner.Start(ctx)
	})

	slog.Info("all components started, waiting for shutdown signal")

	// Wait for all components to complete
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("graceful shutdown completed")
			return nil
		}
		return fmt.Errorf("component error: %w", err)
	}

	slog.Info("application stopped")
	return nil
}

func registerCommands(d *handler.Dispatcher, db *storage.DB, startedAt time.Time) error {
	entries := []handler.Entry{
		builtin.Ping(),
		builtin.Echo(),
		builtin.Status(startedAt),
		builtin.Help(d.Registry()),
	}

	noteGroup, err := notes.NewCommands(db.DB, slog.Default()).Group()
	if err != nil {
		return err
	}
	entries = append(entries, noteGroup)

	for _, entry := range entries {
		if err := d.Registry().Add(entry); err != nil {
			return err
		}
	}
	return nil
}

// errorResponder turns dispatch failures into chat replies. Unknown
// commands are only logged so the bot stays quiet on typos.
func errorResponder(gateway handler.Gateway) handler.ErrorHandler {
	return func(ctx context.Context, ev *handler.InvocationError) {
		msg := ev.Message

		var unknown *handler.UnknownCommandError
		if errors.As(ev.Err, &unknown) {
			slog.Debug("unknown command", "name", unknown.Name, "chat_id", msg.Chat.ID)
			return
		}

		text := userMessage(ev.Err)
		if text == "" {
			slog.Error("command invocation failed", "error", ev.Err, "chat_id", msg.Chat.ID)
			return
		}

		if _, err := gateway.SendMessage(ctx, msg.Chat.ID, text, &handler.SendOptions{ReplyTo: msg.ID}); err != nil {
			slog.Error("could not send error reply", "error", err)
		}
	}
}

// userMessage renders failures the author can act on. Anything else
// returns "" and is handled by logging alone.
func userMessage(err error) string {
	var notEnough *handler.NotEnoughArgumentsError
	if errors.As(err, &notEnough) {
		return fmt.Sprintf("%s needs at least %d argument(s), got %d.", notEnough.Command, notEnough.Min, notEnough.Got)
	}

	var tooMany *handler.TooManyArgumentsError
	if errors.As(err, &tooMany) {
		return fmt.Sprintf("%s takes at most %d argument(s), got %d.", tooMany.Command, tooMany.Max, tooMany.Got)
	}

	var check *handler.CheckError
	if errors.As(err, &check) {
		switch {
		case errors.Is(check.Cause, handler.ErrNotOwner):
			return "That command is reserved for the bot owner."
		case errors.Is(check.Cause, handler.ErrGroupOnly):
			return "That command only works in group chats."
		case errors.Is(check.Cause, handler.ErrPrivateOnly):
			return "That command only works in a private chat."
		case errors.Is(check.Cause, handler.ErrCheckFailed):
			return "You are not allowed to use that command here."
		}
	}

	return ""
}
