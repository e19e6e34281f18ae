package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/internal"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/server"
	"chat-relay/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes everything, hands the listeners to the supervisor,
// and blocks until shutdown. Keeping the body out of main ensures the
// defers (badger close, sequence release) fire before the process exits.
func run() error {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories & services
	messageRepo := repositories.NewMessageRepository(db, log)
	defer func() { _ = messageRepo.Close() }()
	cursorRepo := repositories.NewCursorRepository(db)
	userRepo := repositories.NewUserRepository(db)
	channelRepo := repositories.NewChannelRepository(db)

	signer := auth.NewCookieSigner([]byte(config.CookieKey), config.AuthTokenDuration)
	authService := services.NewAuthService(userRepo, signer, log)
	store := services.NewStore(authService, messageRepo, cursorRepo, log)

	if err := seedAdmin(authService, config); err != nil {
		return err
	}

	// 4. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Directory server & channels
	supervisor := runtime.NewSupervisor(log)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	directory, err := server.NewDirectory(
		address, authService, store, channelRepo, supervisor, config.SinkBufferSize, log,
	)
	if err != nil {
		return err
	}
	if err := directory.Bootstrap(ctx, splitChannels(config.DefaultChannels)); err != nil {
		return fmt.Errorf("bootstrapping channels: %w", err)
	}
	log.Info("Directory server running", "address", directory.Addr())

	if config.DebugPort > 0 {
		internal.StartDebugServer(db, config.DebugPort, internal.MessageMapper)
		log.Info("Debug inspector up", "port", config.DebugPort)
	}

	// 6. Run until a signal lands
	supervisor.Add(directory)
	supervisor.Run(ctx)
	log.Info("Program stopped cleanly")

	return nil
}

// seedAdmin guarantees one usable account on a fresh store so the first
// operator can log in and create the others.
func seedAdmin(authService *services.AuthService, config Config) error {
	err := authService.CreateUser(config.AdminUser, config.AdminPassword)
	if err != nil && !stderrors.Is(err, errors.ErrNameTaken) {
		return fmt.Errorf("seeding admin user: %w", err)
	}
	return nil
}

func splitChannels(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ";") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
